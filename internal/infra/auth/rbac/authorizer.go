package rbac

import (
	"context"
	"fmt"

	"coffeeshop/internal/domain"
	"coffeeshop/internal/observability/logger"

	"go.uber.org/zap"
)

// Authorizer checks that a verified token carries the permission a route needs.
// With a policy attached, the membership decision is delegated to it.
type Authorizer struct {
	policy domain.PermissionPolicy
}

func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

func NewPolicyAuthorizer(policy domain.PermissionPolicy) *Authorizer {
	return &Authorizer{policy: policy}
}

func (a *Authorizer) Require(ctx context.Context, claims domain.Claims, permission string) error {
	permissions, ok := claims.Permissions()
	if !ok {
		return domain.ErrPermissionsMissing()
	}
	if permission == "" {
		return nil
	}
	if a.policy != nil {
		decision, err := a.policy.Evaluate(ctx, domain.PolicyInput{
			Permission:  permission,
			Permissions: permissions,
			Subject:     claims.Subject(),
		})
		if err != nil {
			return fmt.Errorf("evaluate permission policy: %w", err)
		}
		if !decision.Allow {
			logger.From(ctx).Info("permission denied by policy",
				logger.Permission(permission),
				zap.String("reason", decision.Reason),
			)
			return domain.ErrPermissionNotFound()
		}
		return nil
	}
	if !hasPermission(permissions, permission) {
		return domain.ErrPermissionNotFound()
	}
	return nil
}

func hasPermission(permissions []string, permission string) bool {
	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}
