package oidc

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	defaultJWKSCacheTTL     = 10 * time.Minute
	defaultJWKSFetchTimeout = 5 * time.Second
)

var (
	errKidRequired  = errors.New("kid is required")
	errKeyNotFound  = errors.New("jwks key not found")
	errNoUsableKeys = errors.New("jwks contains no usable keys")
)

// jwksCache keeps the issuer's RSA keys by kid. A kid miss forces a refetch of
// the whole set; concurrent misses share one fetch.
type jwksCache struct {
	url          string
	httpClient   *http.Client
	fetchTimeout time.Duration
	onRefresh    func(error)

	keys  *gocache.Cache
	group singleflight.Group
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func newJWKSCache(url string, httpClient *http.Client, ttl, fetchTimeout time.Duration) *jwksCache {
	if ttl <= 0 {
		ttl = defaultJWKSCacheTTL
	}
	if fetchTimeout <= 0 {
		fetchTimeout = defaultJWKSFetchTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: fetchTimeout}
	}
	return &jwksCache{
		url:          url,
		httpClient:   httpClient,
		fetchTimeout: fetchTimeout,
		keys:         gocache.New(ttl, 2*ttl),
	}
}

func (c *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		return nil, errKidRequired
	}
	if key, ok := c.lookup(kid); ok {
		return key, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if key, ok := c.lookup(kid); ok {
		return key, nil
	}
	return nil, errKeyNotFound
}

func (c *jwksCache) lookup(kid string) (*rsa.PublicKey, bool) {
	raw, ok := c.keys.Get(kid)
	if !ok {
		return nil, false
	}
	key, ok := raw.(*rsa.PublicKey)
	return key, ok
}

func (c *jwksCache) refresh(ctx context.Context) error {
	ch := c.group.DoChan(c.url, func() (any, error) {
		// The fetch is shared, so it must outlive any single caller's cancellation.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		keys, err := c.fetch(fetchCtx)
		if c.onRefresh != nil {
			c.onRefresh(err)
		}
		if err != nil {
			return nil, err
		}
		c.store(keys)
		return len(keys), nil
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *jwksCache) store(keys map[string]*rsa.PublicKey) {
	for kid, key := range keys {
		c.keys.Set(kid, key, gocache.DefaultExpiration)
	}
	for kid := range c.keys.Items() {
		if _, ok := keys[kid]; !ok {
			c.keys.Delete(kid)
		}
	}
}

func (c *jwksCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jwks fetch failed: status %d", resp.StatusCode)
	}
	var payload jwksResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}
	keys := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, key := range payload.Keys {
		if key.Kty != "RSA" || key.Kid == "" {
			continue
		}
		if key.Use != "" && key.Use != "sig" {
			continue
		}
		pub, err := jwkToRSAPublicKey(key)
		if err != nil {
			continue
		}
		keys[key.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errNoUsableKeys
	}
	return keys, nil
}

func jwkToRSAPublicKey(key jwkKey) (*rsa.PublicKey, error) {
	if key.N == "" || key.E == "" {
		return nil, errors.New("missing rsa params")
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() <= 1 || e.Int64() > int64(^uint32(0)) {
		return nil, errors.New("invalid rsa exponent")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}
