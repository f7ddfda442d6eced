package client

import (
	"strings"
	"testing"
	"time"
)

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{0, true},
		{200, false},
		{201, false},
		{301, true},
		{307, true},
		{400, false},
		{404, false},
		{429, false},
		{500, true},
		{502, true},
		{503, true},
	}
	for _, tt := range tests {
		if got := retryableStatus(tt.status); got != tt.want {
			t.Errorf("retryableStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestRetryDelayIsLinear(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 0; attempt < 4; attempt++ {
		want := base * time.Duration(attempt+1)
		if got := retryDelay(base, attempt); got != want {
			t.Errorf("retryDelay(%v, %d) = %v, want %v", base, attempt, got, want)
		}
	}
	if got := retryDelay(0, 0); got != DefaultRetryInterval {
		t.Errorf("retryDelay(0, 0) = %v, want default interval", got)
	}
}

func TestAppendCacheBuster(t *testing.T) {
	plain := appendCacheBuster("https://x.example.com/a")
	if !strings.Contains(plain, "?cache_buster=") {
		t.Errorf("no buster on bare URL: %q", plain)
	}

	withQuery := appendCacheBuster("https://x.example.com/a?b=1")
	if !strings.Contains(withQuery, "&cache_buster=") {
		t.Errorf("buster should extend an existing query: %q", withQuery)
	}

	if appendCacheBuster("https://x/a") == appendCacheBuster("https://x/a") {
		t.Error("consecutive busters should differ")
	}
}
