package ownership

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/vantagehq/vantage/internal/auth"
)

// Rule is a compiled ownership predicate. The expression sees the
// authenticated user, the request path parameters and the HTTP method,
// and must evaluate to a boolean:
//
//	user.id == params.id
//	user.role == "admin" || method == "GET"
type Rule struct {
	// Expr is the original expression source, kept for error messages.
	Expr string

	compiled *vm.Program
}

// Compile parses and type-checks an ownership expression.
func Compile(src string) (*Rule, error) {
	if src == "" {
		return nil, fmt.Errorf("ownership: empty expression")
	}
	program, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("ownership: compiling %q: %w", src, err)
	}
	return &Rule{Expr: src, compiled: program}, nil
}

// Allows evaluates the predicate against the authenticated identity and
// the request's path parameters.
func (r *Rule) Allows(identity auth.Identity, params map[string]string, method string) (bool, error) {
	out, err := expr.Run(r.compiled, map[string]any{
		"user": map[string]any{
			"id":    identity.UserID,
			"email": identity.Email,
			"role":  string(identity.Role),
		},
		"params": params,
		"method": method,
	})
	if err != nil {
		return false, fmt.Errorf("ownership: evaluating %q: %w", r.Expr, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return false, fmt.Errorf("ownership: expression %q did not evaluate to a boolean", r.Expr)
	}
	return ok, nil
}
