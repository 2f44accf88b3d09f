//go:build integration

package integration

import (
	"net/http"
	"os"
	"testing"
)

// skipIfShort skips the test if running in short mode or if SKIP_INTEGRATION is set
func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if os.Getenv("SKIP_INTEGRATION") != "" {
		t.Skip("Skipping integration test (SKIP_INTEGRATION set)")
	}
}

// noRedirectClient returns redirects to the caller instead of following them.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
