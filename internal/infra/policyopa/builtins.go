package policyopa

import "github.com/open-policy-agent/opa/ast"

// Permission policies only need comparisons and string helpers.
var allowedBuiltins = map[string]struct{}{
	"assign":            {},
	"concat":            {},
	"contains":          {},
	"count":             {},
	"endswith":          {},
	"eq":                {},
	"equal":             {},
	"internal.member_2": {},
	"lower":             {},
	"neq":               {},
	"split":             {},
	"sprintf":           {},
	"startswith":        {},
	"trim":              {},
	"upper":             {},
}

func filterBuiltins(builtins []*ast.Builtin) []*ast.Builtin {
	allowed := make([]*ast.Builtin, 0, len(builtins))
	for _, builtin := range builtins {
		if _, ok := allowedBuiltins[builtin.Name]; !ok {
			continue
		}
		allowed = append(allowed, builtin)
	}
	return allowed
}
