package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"simple-file-share/internal/config"
	"simple-file-share/internal/logging"
)

// newTestServer returns a server rooted in fresh temp directories.
func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.UploadDir = filepath.Join(t.TempDir(), "uploads")
	cfg.StaticDir = t.TempDir()
	for _, m := range mutate {
		m(&cfg)
	}
	return New(cfg, logging.Discard())
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

// multipartBody builds a form with one file part under field.
func multipartBody(t *testing.T, field, filename string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func uploadFile(t *testing.T, s *Server, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	return do(s, req)
}

func assertCORS(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	want := map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, GET, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type",
	}
	for k, v := range want {
		if got := rr.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestRouting(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		target   string
		wantCode int
		wantBody string
	}{
		{"unknown POST", http.MethodPost, "/nope", http.StatusNotFound, "Not Found"},
		{"PUT anywhere", http.MethodPut, "/upload", http.StatusNotImplemented, "Unsupported method"},
		{"DELETE download", http.MethodDelete, "/download/x", http.StatusNotImplemented, "Unsupported method"},
		{"preflight", http.MethodOptions, "/upload", http.StatusNoContent, ""},
		{"preflight any path", http.MethodOptions, "/whatever/deep", http.StatusNoContent, ""},
		{"missing static", http.MethodGet, "/missing.html", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(s, httptest.NewRequest(tt.method, tt.target, nil))
			if rr.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d (%q)", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantBody != "" && strings.TrimSpace(rr.Body.String()) != tt.wantBody {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.wantBody)
			}
			assertCORS(t, rr)
		})
	}
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	rr := do(s, httptest.NewRequest(http.MethodGet, "/list-files", nil))
	if rr.Header().Get(HeaderRequestID) == "" {
		t.Error("Expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/list-files", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rr = do(s, req)
	if got := rr.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("request id = %q, want inbound id kept", got)
	}
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode int
		wantBody string
	}{
		{
			name: "panic before response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("boom")
			},
			wantCode: http.StatusInternalServerError,
			wantBody: "Internal Server Error: boom\n",
		},
		{
			name: "panic after response started",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("partial"))
				panic("late boom")
			},
			wantCode: http.StatusOK,
			wantBody: "partial",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			s := newTestServer(t)
			s.log = logging.New(&logBuf, "info", "text")

			rr := httptest.NewRecorder()
			corsMiddleware(s.recovery()(tt.handler)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			if rr.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, rr.Code)
			}
			if rr.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rr.Body.String(), tt.wantBody)
			}
			if !strings.Contains(logBuf.String(), "panic_recovered") {
				t.Errorf("panic not logged: %q", logBuf.String())
			}
			assertCORS(t, rr)
		})
	}
}

func TestServeAndShutdown(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.MaxConnections = 2 })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/list-files")
	if err != nil {
		t.Fatalf("GET /list-files: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("Expected 200 [], got %d %q", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Errorf("Serve returned %v after shutdown", err)
	}
}
