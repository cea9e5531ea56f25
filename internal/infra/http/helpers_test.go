package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"coffeeshop/internal/config"
	"coffeeshop/internal/domain"
	"coffeeshop/internal/infra/drinkmem"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://coffee.auth.test/"
	testAudience = "drinks"
	testKid      = "barista-key-1"
	testJWKSURL  = "https://coffee.auth.test/.well-known/jwks.json"
)

var allPermissions = []string{
	domain.PermGetDrinks,
	domain.PermGetDrinksDetail,
	domain.PermPostDrinks,
	domain.PermPatchDrinks,
	domain.PermDeleteDrinks,
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// countingRepo records how often the drink store is reached.
type countingRepo struct {
	*drinkmem.Store
	calls atomic.Int32
}

func (r *countingRepo) List(ctx context.Context) ([]domain.Drink, error) {
	r.calls.Add(1)
	return r.Store.List(ctx)
}

func (r *countingRepo) Get(ctx context.Context, id int64) (domain.Drink, error) {
	r.calls.Add(1)
	return r.Store.Get(ctx, id)
}

func (r *countingRepo) Create(ctx context.Context, drink domain.Drink) (domain.Drink, error) {
	r.calls.Add(1)
	return r.Store.Create(ctx, drink)
}

func (r *countingRepo) Update(ctx context.Context, drink domain.Drink) (domain.Drink, error) {
	r.calls.Add(1)
	return r.Store.Update(ctx, drink)
}

func (r *countingRepo) Delete(ctx context.Context, id int64) error {
	r.calls.Add(1)
	return r.Store.Delete(ctx, id)
}

type testEnv struct {
	server   *Server
	key      *rsa.PrivateKey
	repo     *countingRepo
	registry *prometheus.Registry
	jwksHits atomic.Int32
}

type envOption func(*config.Config, *ServerDeps)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	env := &testEnv{
		key:      key,
		repo:     &countingRepo{Store: drinkmem.New()},
		registry: prometheus.NewRegistry(),
	}
	cfg := testConfig()
	jwks := buildJWKS(t, &key.PublicKey, testKid)
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		env.jwksHits.Add(1)
		if req.URL.String() != testJWKSURL {
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}
		return jsonResponse(http.StatusOK, jwks), nil
	})}

	deps := ServerDeps{
		Drinks:     env.repo,
		JWKSClient: client,
		Registry:   env.registry,
	}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}
	env.server = NewServerWithDeps(cfg, deps)
	return env
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.OIDCIssuerURL = testIssuer
	cfg.OIDCAudience = testAudience
	return cfg
}

func (e *testEnv) token(t *testing.T, permissions []string, mutate ...func(jwt.MapClaims)) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": testIssuer,
		"sub": "auth0|barista",
		"aud": testAudience,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	if permissions != nil {
		claims["permissions"] = permissions
	}
	for _, fn := range mutate {
		fn(claims)
	}
	return signToken(t, e.key, testKid, claims)
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	}
	return rec, payload
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, payload map[string]any, status int, message string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	require.Equal(t, false, payload["success"])
	require.Equal(t, float64(status), payload["error"])
	require.Equal(t, message, payload["message"])
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func buildJWKS(t *testing.T, key *rsa.PublicKey, kid string) string {
	t.Helper()
	out, err := json.Marshal(map[string]any{
		"keys": []map[string]any{{
			"kty": "RSA",
			"kid": kid,
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	})
	require.NoError(t, err)
	return string(out)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}
