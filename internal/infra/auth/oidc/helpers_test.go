package oidc

import (
	"bytes"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func staticJWKSClient(jwksURL, jwks string) *http.Client {
	return &http.Client{
		Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.URL.String() == jwksURL {
				return jsonResponse(http.StatusOK, jwks), nil
			}
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}),
	}
}

func buildJWKS(t *testing.T, key *rsa.PublicKey, kid string) string {
	t.Helper()
	payload := map[string]any{
		"keys": []map[string]any{jwkEntry(key, kid)},
	}
	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return string(out)
}

func jwkEntry(key *rsa.PublicKey, kid string) map[string]any {
	return map[string]any{
		"kty": "RSA",
		"kid": kid,
		"alg": "RS256",
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(bigEndian(key.E)),
	}
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims map[string]any) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims(claims))
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func bigEndian(value int) []byte {
	out := []byte{}
	for v := value; v > 0; v >>= 8 {
		out = append([]byte{byte(v & 0xff)}, out...)
	}
	if len(out) == 0 {
		return []byte{0}
	}
	return out
}
