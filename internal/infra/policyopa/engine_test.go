package policyopa

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"coffeeshop/internal/domain"

	"github.com/stretchr/testify/require"
)

const membershipPolicy = `package coffeeshop.authz

default allow = false

allow {
	input.permissions[_] == input.permission
}
`

// Managers may do anything with drinks; everyone else needs the exact permission.
const managerPolicy = `package coffeeshop.authz

default allow = false

allow {
	input.permissions[_] == input.permission
}

allow {
	input.permissions[_] == "manage:drinks"
	startswith(input.permission, "patch:")
}
`

func TestEngine_Membership(t *testing.T) {
	engine, err := NewEngine(context.Background(), "membership.rego", membershipPolicy)
	require.NoError(t, err)

	decision, err := engine.Evaluate(context.Background(), domain.PolicyInput{
		Permission:  "get:drinks",
		Permissions: []string{"get:drinks", "post:drinks"},
	})
	require.NoError(t, err)
	require.True(t, decision.Allow)
	require.Equal(t, "allowed by data.coffeeshop.authz.allow", decision.Reason)

	decision, err = engine.Evaluate(context.Background(), domain.PolicyInput{
		Permission:  "delete:drinks",
		Permissions: []string{"get:drinks"},
	})
	require.NoError(t, err)
	require.False(t, decision.Allow)
	require.Equal(t, "denied by data.coffeeshop.authz.allow", decision.Reason)

	decision, err = engine.Evaluate(context.Background(), domain.PolicyInput{Permission: "get:drinks"})
	require.NoError(t, err)
	require.False(t, decision.Allow)
}

func TestEngine_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authz.rego")
	require.NoError(t, os.WriteFile(path, []byte(managerPolicy), 0o600))

	engine, err := NewEngineFromFile(context.Background(), path)
	require.NoError(t, err)

	decision, err := engine.Evaluate(context.Background(), domain.PolicyInput{
		Permission:  "patch:drinks",
		Permissions: []string{"manage:drinks"},
	})
	require.NoError(t, err)
	require.True(t, decision.Allow)

	decision, err = engine.Evaluate(context.Background(), domain.PolicyInput{
		Permission:  "delete:drinks",
		Permissions: []string{"manage:drinks"},
	})
	require.NoError(t, err)
	require.False(t, decision.Allow)
}

func TestEngine_RejectsForbiddenBuiltins(t *testing.T) {
	policy := `package coffeeshop.authz

default allow = false

allow {
	resp := http.send({"method": "get", "url": "https://example.test"})
	resp.status_code == 200
}
`
	_, err := NewEngine(context.Background(), "net.rego", policy)
	require.Error(t, err)
}

func TestEngine_MissingFile(t *testing.T) {
	_, err := NewEngineFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.rego"))
	require.Error(t, err)
}
