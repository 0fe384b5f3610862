package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/transport/http/handler"
	"github.com/bomdev/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

type fakeRegistrar struct {
	register        func(ctx context.Context, in usecase.RegisterInput) (*domain.User, error)
	registerByAdmin func(ctx context.Context, caller *usecase.AccessClaims, in usecase.RegisterInput) (*domain.User, error)
	confirm         func(ctx context.Context, rawToken, requestIP string) error
	resend          func(ctx context.Context, in usecase.ResendConfirmationInput) error
}

func (f *fakeRegistrar) Register(ctx context.Context, in usecase.RegisterInput) (*domain.User, error) {
	return f.register(ctx, in)
}

func (f *fakeRegistrar) RegisterByAdmin(ctx context.Context, caller *usecase.AccessClaims, in usecase.RegisterInput) (*domain.User, error) {
	return f.registerByAdmin(ctx, caller, in)
}

func (f *fakeRegistrar) ConfirmEmail(ctx context.Context, rawToken, requestIP string) error {
	return f.confirm(ctx, rawToken, requestIP)
}

func (f *fakeRegistrar) ResendConfirmation(ctx context.Context, in usecase.ResendConfirmationInput) error {
	return f.resend(ctx, in)
}

func newRegistrationEngine(f *fakeRegistrar, caller *usecase.AccessClaims) *gin.Engine {
	h := handler.NewRegistrationHandler(f, testRecorder(), testLogger())

	e := gin.New()
	e.POST("/api/v1/auth/register", h.Register)
	e.POST("/api/v1/auth/confirm-email", h.ConfirmEmail)
	e.POST("/api/v1/auth/confirm-email/resend", h.ResendConfirmation)
	e.POST("/api/v1/users", func(c *gin.Context) {
		if caller != nil {
			handler.SetClaims(c, caller)
		}
		h.CreateUser(c)
	})
	return e
}

const registerBody = `{"firstName":"A","lastName":"B","email":"a@x.com","password":"secret123","projectId":1,"documentTypeId":1,"document":"529.982.247-25"}`

func TestRegister_Created(t *testing.T) {
	var got usecase.RegisterInput
	f := &fakeRegistrar{register: func(_ context.Context, in usecase.RegisterInput) (*domain.User, error) {
		got = in
		return &domain.User{ID: 5, ProjectID: 1, Email: in.Email, EmailConfirmed: false}, nil
	}}
	w := postJSON(newRegistrationEngine(f, nil), "/api/v1/auth/register", registerBody)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	env := decode(t, w)
	if !env.Success || env.Status != "ok-created" || env.Message == "" {
		t.Errorf("unexpected envelope %+v", env)
	}
	if strings.Contains(w.Body.String(), "secret123") {
		t.Error("password echoed back")
	}
	if got.DocumentTypeID == nil || *got.DocumentTypeID != 1 || got.Document == nil {
		t.Errorf("document not forwarded: %+v", got)
	}
}

func TestRegister_Duplicate_ValidationFailed(t *testing.T) {
	f := &fakeRegistrar{register: func(context.Context, usecase.RegisterInput) (*domain.User, error) {
		return nil, domain.ErrUserExists
	}}
	w := postJSON(newRegistrationEngine(f, nil), "/api/v1/auth/register", registerBody)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if env := decode(t, w); env.Status != "validation-failed" || len(env.Errors) != 1 {
		t.Errorf("unexpected envelope %+v", env)
	}
}

func TestCreateUser_NoClaims_Returns401(t *testing.T) {
	w := postJSON(newRegistrationEngine(&fakeRegistrar{}, nil), "/api/v1/users", registerBody)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestCreateUser_PassesCaller(t *testing.T) {
	caller := &usecase.AccessClaims{UserID: 1, ProjectID: 1, Roles: []string{"APPLICATION"}}
	var gotCaller *usecase.AccessClaims
	f := &fakeRegistrar{registerByAdmin: func(_ context.Context, c *usecase.AccessClaims, in usecase.RegisterInput) (*domain.User, error) {
		gotCaller = c
		return &domain.User{ID: 6, ProjectID: in.ProjectID, EmailConfirmed: true}, nil
	}}
	w := postJSON(newRegistrationEngine(f, caller), "/api/v1/users", registerBody)

	if w.Code != http.StatusCreated || gotCaller != caller {
		t.Errorf("status = %d caller = %+v", w.Code, gotCaller)
	}
}

func TestCreateUser_ForeignProject_Returns401(t *testing.T) {
	caller := &usecase.AccessClaims{UserID: 1, ProjectID: 2, Roles: []string{"ADMINISTRATOR"}}
	f := &fakeRegistrar{registerByAdmin: func(context.Context, *usecase.AccessClaims, usecase.RegisterInput) (*domain.User, error) {
		return nil, domain.ErrUnauthorized
	}}
	w := postJSON(newRegistrationEngine(f, caller), "/api/v1/users", registerBody)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestConfirmEmail(t *testing.T) {
	f := &fakeRegistrar{confirm: func(_ context.Context, raw, _ string) error {
		if raw != "good" {
			return domain.ErrTokenInvalid
		}
		return nil
	}}
	e := newRegistrationEngine(f, nil)

	if w := postJSON(e, "/api/v1/auth/confirm-email", `{"token":"good"}`); w.Code != http.StatusOK {
		t.Errorf("good token: status = %d, want 200", w.Code)
	}
	if w := postJSON(e, "/api/v1/auth/confirm-email", `{"token":"bad"}`); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", w.Code)
	}
}

func TestResendConfirmation_Returns200(t *testing.T) {
	f := &fakeRegistrar{resend: func(context.Context, usecase.ResendConfirmationInput) error { return nil }}
	w := postJSON(newRegistrationEngine(f, nil), "/api/v1/auth/confirm-email/resend", `{"email":"a@x.com","projectId":1}`)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
