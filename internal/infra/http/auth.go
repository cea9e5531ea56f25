package http

import (
	"net/http"
	"strings"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/observability/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const claimsContextKey = "claims"

// bearerToken reads the token from "Authorization: Bearer <token>". The scheme
// is matched case-sensitively and exactly one space must separate the parts.
func bearerToken(header http.Header) (string, error) {
	value := header.Get("Authorization")
	if value == "" {
		return "", domain.ErrMissingAuthorizationHeader()
	}
	parts := strings.Split(value, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", domain.ErrMalformedAuthorizationHeader()
	}
	return parts[1], nil
}

// requiresAuth verifies the bearer token and checks permission before the
// route handler runs. On failure the chain is aborted with the classified error.
func (s *Server) requiresAuth(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if s.authInitErr != nil || s.authenticator == nil || s.authorizer == nil {
			logger.From(ctx).Error("auth not configured", logger.Err(s.authInitErr))
			writeErrorStatus(c, http.StatusInternalServerError, "internal server error")
			return
		}
		token, err := bearerToken(c.Request.Header)
		if err != nil {
			s.abortAuth(c, permission, err)
			return
		}
		claims, err := s.authenticator.Authenticate(ctx, token)
		if err != nil {
			s.abortAuth(c, permission, err)
			return
		}
		if err := s.authorizer.Require(ctx, claims, permission); err != nil {
			s.abortAuth(c, permission, err)
			return
		}
		c.Set(claimsContextKey, claims)
		scoped := logger.From(ctx).With(logger.Subject(claims.Subject()))
		c.Request = c.Request.WithContext(logger.ToContext(ctx, scoped))
	}
}

func (s *Server) abortAuth(c *gin.Context, permission string, err error) {
	authErr, ok := domain.AsAuthError(err)
	if !ok {
		writeError(c, err)
		return
	}
	s.metrics.authFailures.WithLabelValues(authErr.Code).Inc()
	logger.From(c.Request.Context()).Info("request not authorized",
		logger.Permission(permission),
		logger.Status(authErr.Status),
		zap.String("code", authErr.Code),
		zap.String("reason", authErr.Description),
	)
	writeError(c, authErr)
}

func claimsFromContext(c *gin.Context) (domain.Claims, bool) {
	raw, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := raw.(domain.Claims)
	return claims, ok
}
