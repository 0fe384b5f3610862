package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/transport/http/handler"
	"github.com/bomdev/auth-service/internal/transport/http/middleware"
	"github.com/bomdev/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

const testKey = "middleware-test-secret-32-chars!!"

func init() {
	gin.SetMode(gin.TestMode)
}

var signer = usecase.NewAccessTokenSigner([]byte(testKey), "auth-test", time.Hour)

// newEngine builds a minimal gin engine with Auth protecting GET /protected
// and Auth+RequireRole protecting GET /admin. Handlers echo the user id.
func newEngine() *gin.Engine {
	echo := func(c *gin.Context) {
		claims, _ := handler.ClaimsFrom(c)
		c.String(http.StatusOK, "%d", claims.UserID)
	}
	r := gin.New()
	r.GET("/protected", middleware.Auth(signer), echo)
	r.GET("/admin", middleware.Auth(signer), middleware.RequireRole(domain.RoleAdministrator, domain.RoleApplication), echo)
	return r
}

func accessToken(t *testing.T, s *usecase.AccessTokenSigner, roles ...domain.RoleName) string {
	t.Helper()
	user := &domain.User{ID: 42, ProjectID: 7, Email: "a@x.com", FirstName: "A"}
	raw, _, err := s.Sign(user, domain.RoleSet{Names: roles}, time.Now())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func get(path, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	newEngine().ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader_Returns401(t *testing.T) {
	w := get("/protected", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"unauthorized"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAuth_NonBearerScheme_Returns401(t *testing.T) {
	if w := get("/protected", "Basic dXNlcjpwYXNz"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_InvalidToken_Returns401(t *testing.T) {
	if w := get("/protected", "Bearer not.a.jwt"); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ExpiredToken_Returns401(t *testing.T) {
	short := usecase.NewAccessTokenSigner([]byte(testKey), "auth-test", time.Millisecond)
	user := &domain.User{ID: 42, ProjectID: 7}
	raw, _, err := short.Sign(user, domain.RoleSet{Names: []domain.RoleName{domain.RoleUser}}, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if w := get("/protected", "Bearer "+raw); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_WrongSigningKey_Returns401(t *testing.T) {
	other := usecase.NewAccessTokenSigner([]byte("different-key-that-is-32-chars!!"), "auth-test", time.Hour)
	if w := get("/protected", "Bearer "+accessToken(t, other, domain.RoleUser)); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ValidToken_PassesAndSetsClaims(t *testing.T) {
	w := get("/protected", "Bearer "+accessToken(t, signer, domain.RoleUser))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "42" {
		t.Errorf("body = %q, want 42", got)
	}
}

func TestRequireRole_PlainUser_Returns401(t *testing.T) {
	if w := get("/admin", "Bearer "+accessToken(t, signer, domain.RoleUser)); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireRole_Application_Passes(t *testing.T) {
	if w := get("/admin", "Bearer "+accessToken(t, signer, domain.RoleUser, domain.RoleApplication)); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
