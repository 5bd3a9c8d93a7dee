package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"simple-file-share/internal/config"
)

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)
	uploadFile(t, s, "one.txt", []byte("abc"))
	uploadFile(t, s, "two.txt", []byte("defgh"))

	rr := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var h Health
	if err := json.Unmarshal(rr.Body.Bytes(), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Status != HealthStatusHealthy {
		t.Errorf("status = %q", h.Status)
	}
	st := h.Components["storage"]
	if st.Status != ComponentStatusUp || st.Details == nil {
		t.Fatalf("storage = %+v", st)
	}
	if st.Details.Files != 2 || st.Details.Bytes != 8 {
		t.Errorf("details = %+v, want 2 files / 8 bytes", *st.Details)
	}
}

func TestHealthHandler_StorageDown(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := newTestServer(t, func(c *config.Config) { c.UploadDir = filepath.Join(blocker, "uploads") })

	rr := do(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rr.Code)
	}
	var h Health
	if err := json.Unmarshal(rr.Body.Bytes(), &h); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Status != HealthStatusUnhealthy || h.Components["storage"].Status != ComponentStatusDown {
		t.Errorf("health = %+v", h)
	}
}
