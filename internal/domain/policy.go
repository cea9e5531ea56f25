package domain

import "context"

// PolicyInput is the document handed to an external permission policy.
type PolicyInput struct {
	Permission  string   `json:"permission"`
	Permissions []string `json:"permissions"`
	Subject     string   `json:"subject,omitempty"`
}

type PolicyDecision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

type PermissionPolicy interface {
	Evaluate(ctx context.Context, input PolicyInput) (PolicyDecision, error)
}
