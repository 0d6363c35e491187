package ownership

import (
	"testing"

	"github.com/vantagehq/vantage/internal/auth"
	"github.com/vantagehq/vantage/internal/rbac"
)

func TestCompileRejectsInvalidExpressions(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"syntax error", "user.id =="},
		{"not boolean", `"just a string"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.src); err == nil {
				t.Fatalf("Compile(%q) succeeded, want error", tt.src)
			}
		})
	}
}

func TestAllows(t *testing.T) {
	owner := auth.Identity{UserID: "u-1", Email: "ada@example.com", Role: rbac.RoleUser}
	stranger := auth.Identity{UserID: "u-2", Email: "eve@example.com", Role: rbac.RoleViewer}

	tests := []struct {
		name     string
		src      string
		identity auth.Identity
		params   map[string]string
		method   string
		want     bool
	}{
		{
			name:     "self match",
			src:      "user.id == params.id",
			identity: owner,
			params:   map[string]string{"id": "u-1"},
			want:     true,
		},
		{
			name:     "self mismatch",
			src:      "user.id == params.id",
			identity: stranger,
			params:   map[string]string{"id": "u-1"},
			want:     false,
		},
		{
			name:     "role disjunction",
			src:      `user.role == "viewer" || user.id == params.id`,
			identity: stranger,
			params:   map[string]string{"id": "u-1"},
			want:     true,
		},
		{
			name:     "method guard",
			src:      `method == "GET"`,
			identity: owner,
			method:   "GET",
			want:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Compile(tt.src)
			if err != nil {
				t.Fatalf("Compile(%q) failed: %v", tt.src, err)
			}
			got, err := rule.Allows(tt.identity, tt.params, tt.method)
			if err != nil {
				t.Fatalf("Allows() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllowsReportsEvaluationErrors(t *testing.T) {
	rule, err := Compile(`1/len(params.id) == 1`)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if _, err := rule.Allows(auth.Identity{}, map[string]string{"id": ""}, "GET"); err == nil {
		t.Fatal("Allows() succeeded, want evaluation error")
	}
}
