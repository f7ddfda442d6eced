package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("warn", &buf)

	ctx := context.Background()
	l.Debug(ctx, "dropped debug")
	l.Info(ctx, "dropped info")
	l.Warn(ctx, "kept warn")
	l.Error(ctx, "kept error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "kept warn") || !strings.Contains(lines[1], "kept error") {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestLogger_RedactsCredentialFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("info", &buf)

	l.Info(context.Background(), "authenticated",
		Field{Key: "Authorization", Value: "Basic dXNlcjpwYXNz"},
		Field{Key: "X-AIMS-Session-Token", Value: "super-secret"},
		Field{Key: "url", Value: "https://api.example.com"},
	)

	entry := map[string]any{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["Authorization"] != "[REDACTED]" {
		t.Errorf("Authorization = %v, want [REDACTED]", entry["Authorization"])
	}
	if entry["X-AIMS-Session-Token"] != "[REDACTED]" {
		t.Errorf("X-AIMS-Session-Token = %v, want [REDACTED]", entry["X-AIMS-Session-Token"])
	}
	if entry["url"] != "https://api.example.com" {
		t.Errorf("url = %v, want unredacted", entry["url"])
	}
}

func TestLogger_WithRequest(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("info", &buf)

	rl := l.WithRequest(RequestMeta{Service: "aims", Method: "GET", Host: "api.example.com"})
	rl.Info(context.Background(), "request complete")

	entry := map[string]any{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["service.logical_name"] != "aims" {
		t.Errorf("service.logical_name = %v, want aims", entry["service.logical_name"])
	}
	if entry["http.method"] != "GET" {
		t.Errorf("http.method = %v, want GET", entry["http.method"])
	}
}
