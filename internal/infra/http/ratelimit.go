package http

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/observability/logger"

	"github.com/gin-gonic/gin"
)

// rateLimit counts requests per route and token subject. It must follow
// requiresAuth, which stores the claims.
func (s *Server) rateLimit(routeID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
			return
		}
		key := "route:" + routeID
		if claims, ok := claimsFromContext(c); ok && claims.Subject() != "" {
			sum := sha256.Sum256([]byte(claims.Subject()))
			key += ":subject_hash:" + hex.EncodeToString(sum[:])
		}

		decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
		if err != nil {
			logger.From(c.Request.Context()).Warn("rate limiter error", logger.Err(err))
			if s.rateLimitFailClosed {
				writeErrorStatus(c, http.StatusTooManyRequests, "rate limiter unavailable")
			}
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			writeErrorStatus(c, http.StatusTooManyRequests, "rate limit exceeded")
		}
	}
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if decision.ResetAt.IsZero() {
		return
	}
	c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	if !decision.Allowed {
		retryAfter := int64(time.Until(decision.ResetAt).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
	}
}
