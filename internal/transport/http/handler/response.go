package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/errorlog"
	"github.com/gin-gonic/gin"
)

const (
	statusCreated         = "ok-created"
	statusOK              = "ok"
	statusBadRequest      = "bad-request"
	statusValidation      = "validation-failed"
	statusNotFound        = "not-found"
	statusUnauthorized    = "unauthorized"
	statusServerError     = "server-error"
	statusTooManyRequests = "too-many-requests"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool     `json:"success"`
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Ticket  string   `json:"ticket,omitempty"`
}

// TooManyRequests is used by the rate limiter, which sits outside any handler.
func TooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, Envelope{
		Status:  statusTooManyRequests,
		Message: msgTooManyRequests,
	})
}

// Unauthorized aborts with the canned unauthorized envelope.
func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{
		Status:  statusUnauthorized,
		Message: msgUnauthorized,
	})
}

// Recovery turns a panic into a ticketed server-error envelope recorded at
// critical severity.
func Recovery(recorder *errorlog.Recorder) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		ev := errorlog.Event{
			Endpoint:  c.FullPath(),
			Code:      http.StatusInternalServerError,
			Severity:  errorlog.SeverityCritical,
			Err:       fmt.Errorf("panic: %v", recovered),
			IPAddress: c.ClientIP(),
		}
		if claims, ok := ClaimsFrom(c); ok {
			ev.UserID = &claims.UserID
		}
		t := recorder.Capture(c.Request.Context(), ev)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Envelope{
			Status:  statusServerError,
			Message: errorlog.Message(t),
			Ticket:  t,
		})
	})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Status: statusCreated, Data: data})
}

func ok(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, Envelope{Success: true, Status: statusOK, Data: data, Message: message})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{Status: statusBadRequest, Message: message})
}

// responder maps usecase errors onto envelopes. Anything it does not
// recognise is captured with a ticket and reported as a server error.
type responder struct {
	recorder *errorlog.Recorder
	logger   *slog.Logger
}

func newResponder(recorder *errorlog.Recorder, logger *slog.Logger) responder {
	return responder{recorder: recorder, logger: logger}
}

func (r responder) fail(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		r.logger.DebugContext(c.Request.Context(), "request rejected", "path", c.FullPath(), "error", err)
	}
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, Envelope{Status: statusValidation, Errors: verr.Errors})
	case errors.Is(err, domain.ErrUserExists):
		c.JSON(http.StatusBadRequest, Envelope{Status: statusValidation, Errors: []string{msgUserExists}})
	case errors.Is(err, domain.ErrMalformedRequest):
		badRequest(c, msgMalformedRequest)
	case errors.Is(err, domain.ErrProviderMismatch):
		badRequest(c, msgProviderMismatch)
	case errors.Is(err, domain.ErrRedirectURIMissing):
		badRequest(c, msgRedirectMissing)
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, Envelope{Status: statusNotFound, Message: msgUserNotFound})
	case errors.Is(err, domain.ErrInvalidCredentials):
		r.unauthorized(c, msgInvalidCredentials)
	case errors.Is(err, domain.ErrAccountLocked):
		r.unauthorized(c, msgAccountLocked)
	case errors.Is(err, domain.ErrEmailNotConfirmed):
		r.unauthorized(c, msgEmailNotConfirmed)
	case errors.Is(err, domain.ErrTokenInvalid):
		r.unauthorized(c, msgTokenInvalid)
	case errors.Is(err, domain.ErrOriginMismatch):
		r.unauthorized(c, msgTokenInvalid)
	case errors.Is(err, domain.ErrUnauthorized):
		r.unauthorized(c, msgUnauthorized)
	default:
		r.serverError(c, err)
	}
}

func (r responder) unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, Envelope{Status: statusUnauthorized, Message: message})
}

func (r responder) serverError(c *gin.Context, err error) {
	t := r.capture(c, err)
	c.JSON(http.StatusInternalServerError, Envelope{
		Status:  statusServerError,
		Message: errorlog.Message(t),
		Ticket:  t,
	})
}

func (r responder) capture(c *gin.Context, err error) string {
	ev := errorlog.Event{
		Endpoint:  c.FullPath(),
		Code:      http.StatusInternalServerError,
		Err:       err,
		IPAddress: c.ClientIP(),
	}
	if claims, ok := ClaimsFrom(c); ok {
		ev.UserID = &claims.UserID
	}
	return r.recorder.Capture(c.Request.Context(), ev)
}
