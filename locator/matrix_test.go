package locator

import "testing"

func productionNodes() []Descriptor {
	return []Descriptor{
		{ID: "global:api", URI: "api.global.example.com", Environment: "production", Residency: "US"},
		{ID: "global:api", URI: "api.global-integration.example.com", Environment: "integration"},
		{ID: "cd17:base", URI: "console.example.com", Environment: "production", Residency: "US", LocationID: "defender-us-denver"},
		{ID: "cd17:base", URI: "console.emea.example.com", Environment: "production", Residency: "EMEA", LocationID: "defender-uk-newport"},
		{ID: "cd17:accounts", ParentID: "cd17:base", URI: "/#/accounts", Environment: "production", Residency: "US"},
		{ID: "any:stack", URI: "https://anywhere.example.com"},
	}
}

// TestMatrix_ResolveTiers verifies lookup degrades from the most specific
// key to the most generic match available.
func TestMatrix_ResolveTiers(t *testing.T) {
	m := NewMatrix(productionNodes()...)

	tests := []struct {
		name    string
		ctx     Context
		id      string
		wantURI string
		wantNil bool
	}{
		{
			name:    "exact env and residency",
			ctx:     Context{Environment: "production", Residency: "US"},
			id:      "global:api",
			wantURI: "api.global.example.com",
		},
		{
			name:    "wildcard residency fallback",
			ctx:     Context{Environment: "integration", Residency: "EMEA"},
			id:      "global:api",
			wantURI: "api.global-integration.example.com",
		},
		{
			name:    "wildcard env fallback",
			ctx:     Context{Environment: "development", Residency: "APAC"},
			id:      "any:stack",
			wantURI: "https://anywhere.example.com",
		},
		{
			name:    "location pinned",
			ctx:     Context{Environment: "production", Residency: "EMEA", Location: "defender-uk-newport"},
			id:      "cd17:base",
			wantURI: "console.emea.example.com",
		},
		{
			name:    "accessible location variant",
			ctx:     Context{Environment: "production", Residency: "US", Location: "defender-us-ashburn", Accessible: []string{"defender-us-denver"}},
			id:      "cd17:base",
			wantURI: "console.example.com",
		},
		{
			name:    "unknown id",
			ctx:     Context{Environment: "production", Residency: "US"},
			id:      "nope:nothing",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := m.ResolveIn(tt.id, tt.ctx)
			if tt.wantNil {
				if d != nil {
					t.Fatalf("ResolveIn(%q) = %+v, want nil", tt.id, d)
				}
				return
			}
			if d == nil {
				t.Fatalf("ResolveIn(%q) = nil, want %q", tt.id, tt.wantURI)
			}
			if d.URI != tt.wantURI {
				t.Errorf("ResolveIn(%q).URI = %q, want %q", tt.id, d.URI, tt.wantURI)
			}
		})
	}
}

// TestMatrix_FastPath verifies ambient lookups are cached per id and the
// cache is flushed on context and descriptor-set changes.
func TestMatrix_FastPath(t *testing.T) {
	m := NewMatrix(productionNodes()...)
	m.SetContext(Context{Environment: "production", Residency: "US"})

	first := m.Resolve("global:api")
	if first == nil {
		t.Fatal("Resolve(global:api) = nil")
	}
	second := m.Resolve("global:api")
	if second != first {
		t.Error("second ambient Resolve should return the cached descriptor")
	}

	// Context change must flush the cache.
	m.SetContext(Context{Environment: "integration"})
	d := m.Resolve("global:api")
	if d == nil || d.URI != "api.global-integration.example.com" {
		t.Errorf("Resolve after context change = %+v, want integration stack", d)
	}

	// Descriptor mutation must flush it too.
	m.Add(Descriptor{ID: "global:api", URI: "api.override.example.com", Environment: "integration", Residency: "US"})
	m.SetContext(Context{Environment: "integration", Residency: "US"})
	d = m.Resolve("global:api")
	if d == nil || d.URI != "api.override.example.com" {
		t.Errorf("Resolve after Add = %+v, want override stack", d)
	}
}

// TestMatrix_FullURI verifies ancestor concatenation and https defaulting.
func TestMatrix_FullURI(t *testing.T) {
	m := NewMatrix(productionNodes()...)
	m.SetContext(Context{Environment: "production", Residency: "US"})

	tests := []struct {
		id   string
		want string
	}{
		{"cd17:accounts", "https://console.example.com/#/accounts"},
		{"cd17:base", "https://console.example.com"},
		{"any:stack", "https://anywhere.example.com"},
		{"nope:nothing", ""},
	}
	for _, tt := range tests {
		if got := m.ResolveURI(tt.id); got != tt.want {
			t.Errorf("ResolveURI(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}

	// Memoized value survives repeat calls.
	if got := m.ResolveURI("cd17:accounts"); got != "https://console.example.com/#/accounts" {
		t.Errorf("memoized ResolveURI = %q", got)
	}
}

// TestMatrix_FullURICycle verifies a cyclic parent chain terminates.
func TestMatrix_FullURICycle(t *testing.T) {
	m := NewMatrix(
		Descriptor{ID: "a", ParentID: "b", URI: "/a"},
		Descriptor{ID: "b", ParentID: "a", URI: "/b"},
	)
	if got := m.ResolveURI("a"); got == "" {
		t.Error("cyclic chain should still yield a URI")
	}
}

// TestMatrix_SetActingURI verifies longest-prefix reverse resolution and
// context adoption.
func TestMatrix_SetActingURI(t *testing.T) {
	m := NewMatrix(productionNodes()...)
	m.SetContext(Context{Environment: "production", Residency: "US"})

	d := m.SetActingURI("https://console.emea.example.com/#/deployments/12345")
	if d == nil {
		t.Fatal("SetActingURI returned nil for a known host")
	}
	if d.LocationID != "defender-uk-newport" {
		t.Errorf("matched location = %q, want defender-uk-newport", d.LocationID)
	}

	ctx := m.Context()
	if ctx.Residency != "EMEA" {
		t.Errorf("adopted residency = %q, want EMEA", ctx.Residency)
	}
	if ctx.Environment != "production" {
		t.Errorf("adopted environment = %q, want production", ctx.Environment)
	}
	if ctx.Location != "defender-uk-newport" {
		t.Errorf("adopted location = %q, want defender-uk-newport", ctx.Location)
	}

	if got := m.SetActingURI("https://unknown.invalid/page"); got != nil {
		t.Errorf("SetActingURI for unknown host = %+v, want nil", got)
	}
}

// TestMatrix_FirstRegistrationWins verifies ties resolve to the first
// descriptor registered for a key.
func TestMatrix_FirstRegistrationWins(t *testing.T) {
	m := NewMatrix(
		Descriptor{ID: "svc", URI: "first.example.com", Environment: "production", Residency: "US"},
		Descriptor{ID: "svc", URI: "second.example.com", Environment: "production", Residency: "US"},
	)
	d := m.ResolveIn("svc", Context{Environment: "production", Residency: "US"})
	if d == nil || d.URI != "first.example.com" {
		t.Errorf("Resolve = %+v, want first registration", d)
	}
}
