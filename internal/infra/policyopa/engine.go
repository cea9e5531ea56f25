package policyopa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"coffeeshop/internal/domain"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
)

const defaultQuery = "data.coffeeshop.authz.allow"

// Engine evaluates a Rego permission policy. The module must define
// data.coffeeshop.authz.allow as a boolean.
type Engine struct {
	query rego.PreparedEvalQuery
}

func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return NewEngine(ctx, path, string(raw))
}

func NewEngine(ctx context.Context, name, module string) (*Engine, error) {
	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	r := rego.New(
		rego.Query(defaultQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
		rego.Module(name, module),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

func (e *Engine) Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyDecision, error) {
	if e == nil {
		return domain.PolicyDecision{}, errors.New("policy engine is nil")
	}
	permissions := input.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]any{
		"permission":  input.Permission,
		"permissions": permissions,
		"subject":     input.Subject,
	}))
	if err != nil {
		return domain.PolicyDecision{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.PolicyDecision{}, errors.New("policy produced no decision")
	}
	allow, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return domain.PolicyDecision{}, fmt.Errorf("policy decision is %T, want bool", results[0].Expressions[0].Value)
	}
	reason := "denied by " + defaultQuery
	if allow {
		reason = "allowed by " + defaultQuery
	}
	return domain.PolicyDecision{Allow: allow, Reason: reason}, nil
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if _, ok := allowedBuiltins[name]; ok {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}
