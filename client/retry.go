package client

import (
	"encoding/hex"
	"math/rand/v2"
	"strings"
	"time"
)

// DefaultRetryInterval is the base backoff used when a request enables
// retries without naming an interval.
const DefaultRetryInterval = time.Second

// retryableStatus reports whether a response status may be retried.
// Network-level failures surface as status 0. Redirects and server
// errors are transient; 2xx is success and 4xx is a terminal caller
// error.
func retryableStatus(status int) bool {
	if status == 0 {
		return true
	}
	if status >= 300 && status < 400 {
		return true
	}
	return status >= 500
}

// retryDelay computes the linear backoff before re-attempting after the
// 0-indexed attempt has failed: interval × (attempt+1).
func retryDelay(interval time.Duration, attempt int) time.Duration {
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	return interval * time.Duration(attempt+1)
}

// cacheBuster produces a fresh pseudo-random token appended to retried
// URLs so intermediate HTTP caches cannot serve the response that just
// failed. Randomness is process-local; collisions across processes are
// possible but harmless at 16 hex chars.
func cacheBuster() string {
	var raw [8]byte
	// #nosec G404 -- cache busting is non-cryptographic.
	v := rand.Uint64()
	for i := 0; i < 8; i++ {
		raw[i] = byte(v >> (8 * i))
	}
	return hex.EncodeToString(raw[:])
}

// appendCacheBuster adds the buster as a query parameter without
// disturbing the existing query string.
func appendCacheBuster(rawURL string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "cache_buster=" + cacheBuster()
}
