package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/errorlog"
	"github.com/bomdev/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

type registrar interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*domain.User, error)
	RegisterByAdmin(ctx context.Context, caller *usecase.AccessClaims, in usecase.RegisterInput) (*domain.User, error)
	ConfirmEmail(ctx context.Context, rawToken, requestIP string) error
	ResendConfirmation(ctx context.Context, in usecase.ResendConfirmationInput) error
}

type RegistrationHandler struct {
	registration registrar
	responder
}

func NewRegistrationHandler(registration registrar, recorder *errorlog.Recorder, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		registration: registration,
		responder:    newResponder(recorder, logger.With("component", "registration_handler")),
	}
}

type registerRequest struct {
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ProjectID       int64   `json:"projectId"`
	Document        *string `json:"document"`
	DocumentTypeID  *int    `json:"documentTypeId"`
	DefaultLanguage *string `json:"defaultLanguage"`
	Picture         *string `json:"picture"`
}

func (r registerRequest) input() usecase.RegisterInput {
	return usecase.RegisterInput{
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		Email:           r.Email,
		Password:        r.Password,
		ProjectID:       r.ProjectID,
		Document:        r.Document,
		DocumentTypeID:  r.DocumentTypeID,
		DefaultLanguage: r.DefaultLanguage,
		Picture:         r.Picture,
	}
}

type resendConfirmationRequest struct {
	Email     string `json:"email"`
	ProjectID int64  `json:"projectId"`
}

type userResponse struct {
	ID              int64     `json:"id"`
	ProjectID       int64     `json:"projectId"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Email           string    `json:"email"`
	DefaultLanguage *string   `json:"defaultLanguage,omitempty"`
	Picture         *string   `json:"picture,omitempty"`
	EmailConfirmed  bool      `json:"emailConfirmed"`
	CreatedAt       time.Time `json:"createdAt"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:              u.ID,
		ProjectID:       u.ProjectID,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		DefaultLanguage: u.DefaultLanguage,
		Picture:         u.Picture,
		EmailConfirmed:  u.EmailConfirmed,
		CreatedAt:       u.CreatedAt,
	}
}

// POST /api/v1/auth/register
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	user, err := h.registration.Register(c.Request.Context(), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}

	env := Envelope{Success: true, Status: statusCreated, Data: newUserResponse(user)}
	if !user.EmailConfirmed {
		env.Message = msgConfirmationAwait
	}
	c.JSON(http.StatusCreated, env)
}

// POST /api/v1/users
// Runs behind Auth; the usecase enforces role and project scope.
func (h *RegistrationHandler) CreateUser(c *gin.Context) {
	claims, found := ClaimsFrom(c)
	if !found {
		Unauthorized(c)
		return
	}

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	user, err := h.registration.RegisterByAdmin(c.Request.Context(), claims, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	created(c, newUserResponse(user))
}

// POST /api/v1/auth/confirm-email
func (h *RegistrationHandler) ConfirmEmail(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	if err := h.registration.ConfirmEmail(c.Request.Context(), req.Token, c.ClientIP()); err != nil {
		h.fail(c, err)
		return
	}
	ok(c, nil, msgEmailConfirmed)
}

// POST /api/v1/auth/confirm-email/resend
func (h *RegistrationHandler) ResendConfirmation(c *gin.Context) {
	var req resendConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, msgInvalidBody)
		return
	}

	err := h.registration.ResendConfirmation(c.Request.Context(), usecase.ResendConfirmationInput{
		Email:     req.Email,
		ProjectID: req.ProjectID,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, nil, msgConfirmationSent)
}
