package handler

import (
	"context"
	"log/slog"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/errorlog"
	"github.com/bomdev/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

// sessionIssuer is the subset of SessionIssuer the handler needs.
// Defined here (point of use) so tests can inject a fake.
type sessionIssuer interface {
	Login(ctx context.Context, in usecase.LoginInput) (*domain.Session, error)
	RequestOTP(ctx context.Context, in usecase.LoginInput) error
	VerifyOTP(ctx context.Context, rawToken, requestIP string) (*domain.Session, error)
}

type passwordResetter interface {
	Request(ctx context.Context, in usecase.PasswordResetRequest) error
	Reset(ctx context.Context, in usecase.ResetPasswordInput) error
}

type AuthHandler struct {
	sessions sessionIssuer
	reset    passwordResetter
	responder
}

func NewAuthHandler(sessions sessionIssuer, reset passwordResetter, recorder *errorlog.Recorder, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions:  sessions,
		reset:     reset,
		responder: newResponder(recorder, logger.With("component", "auth_handler")),
	}
}

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	ProjectID int64  `json:"projectId"`
	Token     string `json:"token"`
}

func (r loginRequest) input(ip string) usecase.LoginInput {
	return usecase.LoginInput{
		Email:     r.Email,
		Password:  r.Password,
		ProjectID: r.ProjectID,
		Token:     r.Token,
		RequestIP: ip,
	}
}

type tokenRequest struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email     string `json:"email"`
	ProjectID int64  `json:"projectId"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type meResponse struct {
	UserID      int64    `json:"userId"`
	Email       string   `json:"email"`
	FirstName   string   `json:"firstName"`
	ProjectID   int64    `json:"projectId"`
	AllProjects bool     `json:"allProjects"`
	Roles       []string `json:"roles"`
}

// POST /api/v1/auth/login
// Accepts either credentials or a single continuation token, never both.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.input(c.ClientIP()))
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, session, "")
}

// POST /api/v1/auth/otp
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	if err := h.sessions.RequestOTP(c.Request.Context(), req.input(c.ClientIP())); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, nil, msgOTPSent)
}

// POST /api/v1/auth/otp/verify
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	session, err := h.sessions.VerifyOTP(c.Request.Context(), req.Token, c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, session, "")
}

// POST /api/v1/auth/forgot-password
// Succeeds for unknown accounts too.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	err := h.reset.Request(c.Request.Context(), usecase.PasswordResetRequest{
		Email:     req.Email,
		ProjectID: req.ProjectID,
		RequestIP: c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, nil, msgResetRequested)
}

// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	err := h.reset.Reset(c.Request.Context(), usecase.ResetPasswordInput{
		Token:     req.Token,
		Password:  req.Password,
		RequestIP: c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, nil, msgPasswordChanged)
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, found := ClaimsFrom(c)
	if !found {
		Unauthorized(c)
		return
	}
	ok(c, meResponse{
		UserID:      claims.UserID,
		Email:       claims.Email,
		FirstName:   claims.FirstName,
		ProjectID:   claims.ProjectID,
		AllProjects: claims.AllProjects(),
		Roles:       claims.Roles,
	}, "")
}
