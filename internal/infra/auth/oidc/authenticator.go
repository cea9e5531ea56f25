package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"coffeeshop/internal/config"
	"coffeeshop/internal/domain"
	"coffeeshop/internal/observability/logger"

	"github.com/golang-jwt/jwt/v5"
)

var supportedAlgorithms = map[string]bool{
	"RS256": true,
	"RS384": true,
	"RS512": true,
}

// Authenticator verifies RSA-signed bearer tokens against the issuer's JWKS.
type Authenticator struct {
	issuer    string
	audience  string
	algorithm string
	jwks      *jwksCache
	parser    *jwt.Parser
}

type Option func(*Authenticator)

func WithHTTPClient(client *http.Client) Option {
	return func(a *Authenticator) {
		if client != nil {
			a.jwks.httpClient = client
		}
	}
}

// WithRefreshObserver is called once per JWKS fetch with its outcome.
func WithRefreshObserver(fn func(error)) Option {
	return func(a *Authenticator) {
		a.jwks.onRefresh = fn
	}
}

func NewAuthenticator(cfg config.Config, opts ...Option) (*Authenticator, error) {
	jwksURL := cfg.JWKSURL()
	if jwksURL == "" {
		return nil, errors.New("OIDC_ISSUER_URL or OIDC_JWKS_URL is required")
	}
	audience := strings.TrimSpace(cfg.OIDCAudience)
	if audience == "" {
		return nil, errors.New("OIDC_AUDIENCE is required")
	}
	alg := strings.ToUpper(strings.TrimSpace(cfg.OIDCAlgorithm))
	if alg == "" {
		alg = "RS256"
	}
	if !supportedAlgorithms[alg] {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.OIDCAlgorithm)
	}
	auth := &Authenticator{
		issuer:    strings.TrimSpace(cfg.OIDCIssuerURL),
		audience:  audience,
		algorithm: alg,
		jwks:      newJWKSCache(jwksURL, nil, cfg.JWKSCacheTTL(), cfg.JWKSFetchTimeout()),
	}
	for _, opt := range opts {
		opt(auth)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.ClockSkew()),
	}
	if auth.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(auth.issuer))
	}
	auth.parser = jwt.NewParser(parserOpts...)
	return auth, nil
}

// Authenticate decodes the header for its kid, resolves the signing key,
// verifies the signature and the standard claims, and returns the payload.
// Every failure is a *domain.AuthError.
func (a *Authenticator) Authenticate(ctx context.Context, bearerToken string) (domain.Claims, error) {
	tokenString := strings.TrimSpace(bearerToken)
	if tokenString == "" {
		return nil, domain.ErrAuthorizationMalformed()
	}
	unverified, _, err := a.parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, domain.ErrAuthorizationMalformed()
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, domain.ErrAuthorizationMalformed()
	}

	key, err := a.jwks.getKey(ctx, kid)
	if err != nil {
		logger.From(ctx).Info("jwks key lookup failed", logger.Kid(kid), logger.Err(err))
		return nil, domain.ErrKeyNotFound()
	}

	claims := jwt.MapClaims{}
	token, err := a.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	if !token.Valid {
		return nil, domain.ErrUnparseableToken()
	}
	return domain.Claims(claims), nil
}

func classifyParseError(err error) *domain.AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired()
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return domain.ErrIncorrectClaims()
	default:
		return domain.ErrUnparseableToken()
	}
}
