package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bomdev/auth-service/internal/document"
	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/email"
	"github.com/bomdev/auth-service/internal/password"
	"github.com/bomdev/auth-service/internal/repository"
	"github.com/bomdev/auth-service/internal/usecase"
	"golang.org/x/crypto/bcrypt"
)

// ---- in-memory token store ----

type memTokenStore struct {
	mu     sync.Mutex
	rows   map[string]*domain.Token
	offset time.Duration
	seq    int
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{rows: make(map[string]*domain.Token)}
}

func (s *memTokenStore) now() time.Time {
	return time.Now().Add(s.offset)
}

// advance moves the store clock forward, the way expires_at > NOW() would
// see it in Postgres.
func (s *memTokenStore) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset += d
}

func (s *memTokenStore) Create(_ context.Context, t *domain.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.rows[t.TokenHash]; dup {
		return errors.New("duplicate token hash")
	}
	s.seq++
	t.ID = fmt.Sprintf("tok-%d", s.seq)
	t.CreatedAt = s.now()
	row := *t
	s.rows[t.TokenHash] = &row
	return nil
}

func (s *memTokenStore) Consume(_ context.Context, in repository.ConsumeTokenInput) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.rows[in.TokenHash]
	switch {
	case !ok, t.Purpose != in.Purpose, t.ConsumedAt != nil, !s.now().Before(t.ExpiresAt):
		return nil, domain.ErrTokenInvalid
	case t.IPBound && (t.IssuingIP == nil || *t.IssuingIP != in.RequestIP):
		return nil, domain.ErrTokenInvalid
	}
	consumed := s.now()
	t.ConsumedAt = &consumed
	out := *t
	return &out, nil
}

func (s *memTokenStore) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, t := range s.rows {
		if t.ExpiresAt.Before(cutoff) || (t.ConsumedAt != nil && t.ConsumedAt.Before(cutoff)) {
			delete(s.rows, hash)
			n++
		}
	}
	return n, nil
}

func (s *memTokenStore) byHash(hash string) *domain.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[hash]
}

func (s *memTokenStore) count(purpose domain.Purpose) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.rows {
		if t.Purpose == purpose {
			n++
		}
	}
	return n
}

// ---- in-memory credential store ----

type memUserRepo struct {
	mu       sync.Mutex
	users    map[int64]*domain.User
	bindings map[int64][]int64
	nextID   int64

	createErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:    make(map[int64]*domain.User),
		bindings: make(map[int64][]int64),
	}
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string, projectID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.ProjectID == projectID {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *memUserRepo) Exists(ctx context.Context, email string, projectID int64) (bool, error) {
	_, err := r.FindByEmail(ctx, email, projectID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memUserRepo) CreateWithRole(_ context.Context, user *domain.User, roleID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.users {
		if u.Email == user.Email && u.ProjectID == user.ProjectID {
			return nil, domain.ErrUserExists
		}
	}
	r.nextID++
	row := *user
	row.ID = r.nextID
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	r.users[row.ID] = &row
	r.bindings[row.ID] = []int64{roleID}
	out := row
	return &out, nil
}

func (r *memUserRepo) UpdatePassword(_ context.Context, userID int64, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordDigest = &digest
	return nil
}

func (r *memUserRepo) ConfirmEmail(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.EmailConfirmed = true
	return nil
}

func (r *memUserRepo) BindRole(_ context.Context, userID, roleID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.bindings[userID], roleID) {
		r.bindings[userID] = append(r.bindings[userID], roleID)
		slices.Sort(r.bindings[userID])
	}
	return nil
}

func (r *memUserRepo) FindRoleBindings(_ context.Context, userID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.bindings[userID]), nil
}

func (r *memUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *memUserRepo) update(id int64, fn func(*domain.User)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.users[id])
}

// ---- roles and projects ----

var bootstrapRoleIDs = map[domain.RoleName]int64{
	domain.RoleAdministrator: 1,
	domain.RoleApplication:   2,
	domain.RoleUser:          3,
}

type memRoleRepo struct{}

func (memRoleRepo) GetByName(_ context.Context, name domain.RoleName) (*domain.Role, error) {
	id, ok := bootstrapRoleIDs[name]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return &domain.Role{ID: id, Name: name}, nil
}

func (memRoleRepo) ListByIDs(_ context.Context, ids []int64) ([]*domain.Role, error) {
	out := []*domain.Role{}
	for _, name := range domain.BootstrapRoles {
		id := bootstrapRoleIDs[name]
		if slices.Contains(ids, id) {
			out = append(out, &domain.Role{ID: id, Name: name})
		}
	}
	slices.SortFunc(out, func(a, b *domain.Role) int { return int(a.ID - b.ID) })
	return out, nil
}

type memProjectRepo struct {
	ids []int64
}

func (r memProjectRepo) Exists(_ context.Context, projectID int64) (bool, error) {
	return slices.Contains(r.ids, projectID), nil
}

// ---- mail ----

type captureSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *captureSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func (s *captureSender) last(t *testing.T) email.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		t.Fatal("no email was sent")
	}
	return s.sent[len(s.sent)-1]
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// tokenFromEmail pulls the raw token out of the first link in the body.
func tokenFromEmail(t *testing.T, msg email.Message) string {
	t.Helper()
	idx := strings.Index(msg.HTML, "token=")
	if idx == -1 {
		t.Fatalf("email body has no token: %s", msg.HTML)
	}
	rest := msg.HTML[idx+len("token="):]
	end := strings.IndexAny(rest, `"&<`)
	if end == -1 {
		end = len(rest)
	}
	return rest[:end]
}

// ---- harness ----

const (
	testJWTSecret = "test-jwt-secret-at-least-32-chars!!"
	testIssuer    = "auth-test"
	testProjectID = int64(1)
	otherProject  = int64(2)
	accessTTL     = time.Hour
	refreshTTL    = 7 * 24 * time.Hour
)

type harnessConfig struct {
	requireConfirmation bool
	federation          usecase.FederationConfig
	providers           []usecase.ExternalProvider
}

type harness struct {
	users    *memUserRepo
	store    *memTokenStore
	projects memProjectRepo
	sender   *captureSender
	hasher   *password.Bcrypt

	tokens       *usecase.TokenService
	roles        *usecase.RoleResolver
	signer       *usecase.AccessTokenSigner
	sessions     *usecase.SessionIssuer
	registration *usecase.RegistrationOrchestrator
	reset        *usecase.PasswordReset
	federation   *usecase.FederationCoordinator
}

func newHarness(t *testing.T, opts ...func(*harnessConfig)) *harness {
	t.Helper()

	cfg := harnessConfig{
		federation: usecase.FederationConfig{
			StateTTL:             10 * time.Minute,
			RefreshTTL:           3 * time.Minute,
			AllowAnyRedirectHost: true,
		},
	}
	for _, o := range opts {
		o(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		users:    newMemUserRepo(),
		store:    newMemTokenStore(),
		projects: memProjectRepo{ids: []int64{testProjectID, otherProject}},
		sender:   &captureSender{},
		hasher:   password.NewBcrypt(bcrypt.MinCost),
	}

	h.tokens = usecase.NewTokenService(h.store)
	h.roles = usecase.NewRoleResolver(memRoleRepo{}, h.users, []domain.RoleName{domain.RoleAdministrator})
	h.signer = usecase.NewAccessTokenSigner([]byte(testJWTSecret), testIssuer, accessTTL)
	mailer := usecase.NewMailer(h.sender, "no-reply@test", logger)

	h.sessions = usecase.NewSessionIssuer(h.users, h.projects, h.tokens, h.roles, h.hasher, h.signer, mailer,
		usecase.SessionConfig{RefreshTTL: refreshTTL, OTPTTL: accessTTL, OTPURL: "https://app.test/otp"})
	h.registration = usecase.NewRegistrationOrchestrator(h.users, h.projects, h.roles, h.tokens, h.hasher,
		document.DefaultRegistry(), mailer,
		usecase.RegistrationConfig{
			RequireEmailConfirmation: cfg.requireConfirmation,
			ConfirmationTTL:          accessTTL,
			ConfirmationURL:          "https://app.test/confirm",
		}, logger)
	h.reset = usecase.NewPasswordReset(h.users, h.tokens, h.hasher, mailer,
		usecase.PasswordResetConfig{TTL: accessTTL, ResetURL: "https://app.test/reset"}, logger)
	h.federation = usecase.NewFederationCoordinator(h.tokens, h.users, h.projects, h.roles,
		cfg.federation, logger, cfg.providers...)

	return h
}

// seedUser stores a confirmed, enabled user bound to roles (USER when none
// are given).
func (h *harness) seedUser(t *testing.T, emailAddr, plain string, projectID int64, roles ...domain.RoleName) *domain.User {
	t.Helper()
	digest, err := h.hasher.Hash(plain)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if len(roles) == 0 {
		roles = []domain.RoleName{domain.RoleUser}
	}

	u, err := h.users.CreateWithRole(context.Background(), &domain.User{
		ProjectID:      projectID,
		FirstName:      "Test",
		LastName:       "User",
		Email:          emailAddr,
		PasswordDigest: &digest,
		Enabled:        true,
		EmailConfirmed: true,
	}, bootstrapRoleIDs[roles[0]])
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	for _, r := range roles[1:] {
		_ = h.users.BindRole(context.Background(), u.ID, bootstrapRoleIDs[r])
	}
	return u
}

func ptr[T any](v T) *T { return &v }
