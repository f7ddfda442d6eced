package secret

import (
	"context"
	"strings"
	"testing"
)

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("RESTOPS_TEST_KEY", "key-value")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain value", "no-vars-here", "no-vars-here", false},
		{"braced var", "${RESTOPS_TEST_KEY}", "key-value", false},
		{"embedded var", "prefix-${RESTOPS_TEST_KEY}-suffix", "prefix-key-value-suffix", false},
		{"missing var", "${RESTOPS_TEST_MISSING}", "", true},
		{"escaped dollar", "cost: $$5", "cost: $5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExpandEnvStrict(%q) = %q, want error", tt.in, got)
				}
				if !strings.Contains(err.Error(), "RESTOPS_TEST_MISSING") {
					t.Errorf("error %v does not name the missing variable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExpandEnvStrict(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolver_ResolveValue(t *testing.T) {
	t.Setenv("RESTOPS_TEST_KEY", "from-env")
	r := NewResolver(NewStaticProvider("vault", map[string]string{
		"aims/access_key": "from-vault",
	}))

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"env expansion", "${RESTOPS_TEST_KEY}", "from-env", false},
		{"secret ref", "secretref:vault:aims/access_key", "from-vault", false},
		{"unknown provider", "secretref:nope:some/key", "", true},
		{"unknown ref", "secretref:vault:missing/key", "", true},
		{"literal", "plain-credential", "plain-credential", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveValue(context.Background(), tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ResolveValue(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveValue(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ResolveValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in           string
		provider     string
		ref          string
		ok           bool
	}{
		{"secretref:vault:path/to/key", "vault", "path/to/key", true},
		{"secretref:vault:", "", "", false},
		{"secretref::ref", "", "", false},
		{"not-a-ref", "", "", false},
	}
	for _, tt := range tests {
		provider, ref, ok := ParseSecretRef(tt.in)
		if provider != tt.provider || ref != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, provider, ref, ok, tt.provider, tt.ref, tt.ok)
		}
	}
}
