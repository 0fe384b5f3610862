package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bomdev/auth-service/internal/errorlog"
	"github.com/bomdev/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

type federationCoordinator interface {
	Initiate(ctx context.Context, in usecase.InitiateInput) (string, error)
	ResolveRedirect(ctx context.Context, rawToken, requestIP string) (string, error)
	Complete(ctx context.Context, in usecase.CompleteInput) (string, error)
}

type FederationHandler struct {
	federation federationCoordinator
	responder
}

func NewFederationHandler(federation federationCoordinator, recorder *errorlog.Recorder, logger *slog.Logger) *FederationHandler {
	return &FederationHandler{
		federation: federation,
		responder:  newResponder(recorder, logger.With("component", "federation_handler")),
	}
}

type redirectTokenResponse struct {
	Token string `json:"token"`
}

// GET /api/v1/auth/login/external/:provider?redirectUri=&projectId=
// Returns an opaque token; the browser follows it through Redirect.
func (h *FederationHandler) Initiate(c *gin.Context) {
	// a malformed projectId is left as zero and reported by validation
	projectID, _ := strconv.ParseInt(c.Query("projectId"), 10, 64)

	token, err := h.federation.Initiate(c.Request.Context(), usecase.InitiateInput{
		Provider:    c.Param("provider"),
		RedirectURI: c.Query("redirectUri"),
		ProjectID:   projectID,
		RequestIP:   c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	ok(c, redirectTokenResponse{Token: token}, "")
}

// GET /api/v1/auth/login/external/redirect?token=
func (h *FederationHandler) Redirect(c *gin.Context) {
	target, err := h.federation.ResolveRedirect(c.Request.Context(), c.Query("token"), c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// GET /api/v1/auth/login/external/:provider/callback?code=&state=
func (h *FederationHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	if code == "" || c.Query("error") != "" {
		badRequest(c, msgMalformedRequest)
		return
	}

	target, err := h.federation.Complete(c.Request.Context(), usecase.CompleteInput{
		Provider:  c.Param("provider"),
		Code:      code,
		State:     c.Query("state"),
		RequestIP: c.ClientIP(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}
