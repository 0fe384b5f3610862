package httptransport

import (
	"fmt"
	"log/slog"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/errorlog"
	"github.com/bomdev/auth-service/internal/transport/http/handler"
	"github.com/bomdev/auth-service/internal/transport/http/middleware"
	"github.com/bomdev/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

type Handlers struct {
	Recorder     *errorlog.Recorder
	Auth         *handler.AuthHandler
	Registration *handler.RegistrationHandler
	Federation   *handler.FederationHandler
}

// NewRouter builds the engine. Only peers listed in trustedProxies may set the
// client IP through forwarding headers; with none, the socket address is used.
func NewRouter(logger *slog.Logger, h Handlers, signer *usecase.AccessTokenSigner, limiter *middleware.IPRateLimiter, trustedProxies []string) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(handler.Recovery(h.Recorder))
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(signer)
	limited := middleware.RateLimit(limiter)

	v1 := r.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", limited, h.Registration.Register)
	auth.POST("/confirm-email", h.Registration.ConfirmEmail)
	auth.POST("/confirm-email/resend", limited, h.Registration.ResendConfirmation)
	auth.POST("/login", limited, h.Auth.Login)
	auth.POST("/otp", limited, h.Auth.RequestOTP)
	auth.POST("/otp/verify", limited, h.Auth.VerifyOTP)
	auth.POST("/forgot-password", limited, h.Auth.ForgotPassword)
	auth.POST("/reset-password", limited, h.Auth.ResetPassword)
	auth.GET("/me", authMW, h.Auth.Me)

	// Federated login
	external := auth.Group("/login/external")
	external.GET("/redirect", h.Federation.Redirect)
	external.GET("/:provider", limited, h.Federation.Initiate)
	external.GET("/:provider/callback", h.Federation.Callback)

	// Protected user management
	users := v1.Group("/users", authMW, middleware.RequireRole(domain.RoleAdministrator, domain.RoleApplication))
	users.POST("", h.Registration.CreateUser)

	return r, nil
}
