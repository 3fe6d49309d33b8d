//go:build e2e

// Package e2e_test drives a running server. Start it with AI_PROVIDER=stub and
// APP_ENV=dev so the demo vacancy is seeded.
package e2e_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	baseURL     = getenv("E2E_BASE_URL", "http://localhost:8080/v1")
	vacancyID   = getenv("E2E_VACANCY_ID", "demo-backend-engineer")
	employerID  = getenv("E2E_EMPLOYER_ID", "demo-employer")
	httpTimeout = 30 * time.Second
)

// getenv returns the value of the environment variable k or def if empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func rootURL() string { return strings.TrimSuffix(baseURL, "/v1") }

// waitForAppReady skips the test when the server does not answer /healthz in time.
func waitForAppReady(t *testing.T, client *http.Client, maxWait time.Duration) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}
	deadline := time.Now().Add(maxWait)
	for time.Now().Before(deadline) {
		resp, err := client.Get(rootURL() + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Skip("App not available; skipping E2E")
}

// doJSON sends body (nil for none) and decodes the JSON response. 429s are
// retried briefly.
func doJSON(t *testing.T, client *http.Client, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	for i := 0; ; i++ {
		req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Employer-ID", employerID)
		resp, err := client.Do(req)
		require.NoError(t, err)
		if resp.StatusCode == http.StatusTooManyRequests && i < 5 {
			resp.Body.Close()
			time.Sleep(500 * time.Millisecond)
			continue
		}
		defer resp.Body.Close()
		out := map[string]any{}
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp.StatusCode, out
	}
}

// applyCandidate applies a fresh candidate to the demo vacancy and returns the session id.
func applyCandidate(t *testing.T, client *http.Client) (candidateID, sessionID string) {
	t.Helper()
	candidateID = "cand-" + uuid.NewString()[:8]
	status, body := doJSON(t, client, http.MethodPost, "/vacancies/"+vacancyID+"/applications",
		map[string]string{"id": candidateID, "name": "E2E Candidate", "email": candidateID + "@example.com"})
	require.Equal(t, http.StatusCreated, status, "apply: %#v", body)
	sess, ok := body["session"].(map[string]any)
	require.True(t, ok, "session missing: %#v", body)
	sessionID, _ = sess["session_id"].(string)
	require.NotEmpty(t, sessionID)
	return candidateID, sessionID
}

// dumpJSON writes v under E2E_DUMP_DIR when set.
func dumpJSON(t *testing.T, name string, v any) {
	t.Helper()
	dir := os.Getenv("E2E_DUMP_DIR")
	if dir == "" {
		return
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	_ = os.MkdirAll(dir, 0o755)
	_ = os.WriteFile(filepath.Join(dir, name), b, 0o600)
}
