package testutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WriteACMEStore writes a minimal Traefik acme.json under the resolver name
// with one certificate record per main domain, and returns its path.
func WriteACMEStore(t *testing.T, resolver string, mains ...string) string {
	t.Helper()

	certs := make([]map[string]interface{}, 0, len(mains))
	for _, main := range mains {
		certs = append(certs, map[string]interface{}{
			"domain":      map[string]string{"main": main},
			"certificate": "ZmFrZS1jZXJ0",
			"key":         "ZmFrZS1rZXk=",
			"Store":       "default",
		})
	}
	store := map[string]interface{}{
		resolver: map[string]interface{}{
			"Certificates": certs,
		},
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal acme store: %s", err)
	}
	return WriteTempFile(t, "acme-dns.json", string(data))
}

// WriteTempFile writes content to name inside a per-test temp directory and
// returns the full path.
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %s", name, err)
	}
	return path
}
