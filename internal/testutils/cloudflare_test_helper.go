package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeZone is one zone the fake API reports as accessible.
type FakeZone struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// FakeCloudflare is an httptest stand-in for the two Cloudflare v4 endpoints
// the probe uses. The default behavior is a successful envelope on both; set
// ZonesHandler or RecordsHandler to override one endpoint. RequestCount
// observes whether any network call was attempted at all.
type FakeCloudflare struct {
	Server *httptest.Server

	// Zones returned by GET /zones when ZonesHandler is nil.
	Zones []FakeZone

	// ZonesHandler, if set, fully handles GET /zones.
	ZonesHandler http.HandlerFunc
	// RecordsHandler, if set, fully handles GET /zones/{id}/dns_records.
	RecordsHandler http.HandlerFunc

	mu       sync.Mutex
	requests int
}

// NewFakeCloudflare starts the fake API. The returned server is shut down
// automatically when the test ends.
func NewFakeCloudflare(t *testing.T, zones ...FakeZone) *FakeCloudflare {
	t.Helper()

	f := &FakeCloudflare{Zones: zones}
	f.Server = httptest.NewServer(http.HandlerFunc(f.route))
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL to point a client at.
func (f *FakeCloudflare) URL() string {
	return f.Server.URL
}

// RequestCount returns how many requests the fake has served.
func (f *FakeCloudflare) RequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *FakeCloudflare) route(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests++
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/zones":
		if f.ZonesHandler != nil {
			f.ZonesHandler(w, r)
			return
		}
		WriteEnvelope(w, http.StatusOK, true, f.Zones, nil)
	case strings.HasPrefix(r.URL.Path, "/zones/") && strings.HasSuffix(r.URL.Path, "/dns_records"):
		if f.RecordsHandler != nil {
			f.RecordsHandler(w, r)
			return
		}
		records := []map[string]string{{"id": "rec-1", "name": "probe", "type": "TXT"}}
		WriteEnvelope(w, http.StatusOK, true, records, nil)
	default:
		http.NotFound(w, r)
	}
}

// EnvelopeError mirrors one entry of the v4 envelope "errors" array.
type EnvelopeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// WriteEnvelope writes a Cloudflare v4 response envelope.
func WriteEnvelope(w http.ResponseWriter, status int, success bool, result interface{}, errs []EnvelopeError) {
	if errs == nil {
		errs = []EnvelopeError{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": success,
		"errors":  errs,
		"result":  result,
	})
}
