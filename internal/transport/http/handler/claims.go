package handler

import (
	"github.com/bomdev/auth-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// SetClaims stores verified access-token claims on the request.
func SetClaims(c *gin.Context, claims *usecase.AccessClaims) {
	c.Set(claimsKey, claims)
}

func ClaimsFrom(c *gin.Context) (*usecase.AccessClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*usecase.AccessClaims)
	return claims, ok && claims != nil
}
