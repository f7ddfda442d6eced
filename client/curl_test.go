package client

import (
	"context"
	"strings"
	"testing"
)

func TestAsCURL(t *testing.T) {
	sess := &fakeSession{token: "tok-1"}
	c := newTestClient("https://api.example.com", func(cfg *Config) { cfg.Session = sess })

	got, err := c.AsCURL(context.Background(), Request{
		Method:      "POST",
		ServiceName: "aims",
		Version:     "v1",
		AccountID:   "2",
		Path:        "users",
		Body:        map[string]string{"name": "alex"},
	})
	if err != nil {
		t.Fatalf("AsCURL: %v", err)
	}

	for _, want := range []string{
		"curl -X POST",
		"-H 'Content-Type: application/json'",
		"-H 'X-AIMS-Auth-Token: tok-1'",
		`--data '{"name":"alex"}'`,
		"'https://api.example.com/aims/v1/2/users'",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("AsCURL output missing %q:\n%s", want, got)
		}
	}
}

func TestAsCURLDefaultsToGet(t *testing.T) {
	c := newTestClient("https://api.example.com", nil)
	got, err := c.AsCURL(context.Background(), Request{ServiceName: "aims"})
	if err != nil {
		t.Fatalf("AsCURL: %v", err)
	}
	if !strings.HasPrefix(got, "curl -X GET ") {
		t.Errorf("AsCURL = %q, want GET prefix", got)
	}
	if !strings.HasSuffix(got, "'https://api.example.com/aims'") {
		t.Errorf("AsCURL = %q, want resolved URL suffix", got)
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote("a'b"); got != `'a'\''b'` {
		t.Errorf("shellQuote = %q", got)
	}
}
