package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"simple-file-share/internal/config"
)

func TestUploadHandler_Success(t *testing.T) {
	s := newTestServer(t)
	content := []byte("hello upload")

	rr := uploadFile(t, s, "hello.txt", content)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%q)", rr.Code, rr.Body.String())
	}
	assertCORS(t, rr)

	var resp uploadResp
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.Message != "File uploaded" {
		t.Errorf("unexpected response: %+v", resp)
	}

	got, err := os.ReadFile(filepath.Join(s.cfg.UploadDir, "hello.txt"))
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("stored content = %q, want %q", got, content)
	}
}

func TestUploadHandler_PathTraversal(t *testing.T) {
	s := newTestServer(t)

	for _, filename := range []string{"../../escape.txt", `..\..\win.txt`, "/etc/abs.txt"} {
		t.Run(filename, func(t *testing.T) {
			rr := uploadFile(t, s, filename, []byte("x"))
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d (%q)", rr.Code, rr.Body.String())
			}
		})
	}

	for _, name := range []string{"escape.txt", "win.txt", "abs.txt"} {
		if _, err := os.Stat(filepath.Join(s.cfg.UploadDir, name)); err != nil {
			t.Errorf("%s not stored inside upload dir: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(s.cfg.UploadDir), "escape.txt")); !os.IsNotExist(err) {
		t.Error("file escaped the upload directory")
	}
}

func TestUploadHandler_ClientErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		body     func(t *testing.T) (string, string) // body, content type
		wantBody string
	}{
		{
			name:     "text/plain",
			body:     func(t *testing.T) (string, string) { return "just text", "text/plain" },
			wantBody: "Bad Request: Expected multipart/form-data",
		},
		{
			name:     "no content type",
			body:     func(t *testing.T) (string, string) { return "x", "" },
			wantBody: "Bad Request: Expected multipart/form-data",
		},
		{
			name:     "missing boundary",
			body:     func(t *testing.T) (string, string) { return "x", "multipart/form-data" },
			wantBody: "Bad Request: Malformed multipart body",
		},
		{
			name: "garbage framing",
			body: func(t *testing.T) (string, string) {
				return "not a multipart body at all\r\n", "multipart/form-data; boundary=XYZ"
			},
			wantBody: "Bad Request: Malformed multipart body",
		},
		{
			name: "no file part",
			body: func(t *testing.T) (string, string) {
				r, ct := multipartBody(t, "other", "a.txt", []byte("x"))
				b := new(bytes.Buffer)
				_, _ = b.ReadFrom(r)
				return b.String(), ct
			},
			wantBody: "Bad Request: No file uploaded",
		},
		{
			name: "empty filename",
			body: func(t *testing.T) (string, string) {
				r, ct := multipartBody(t, "file", "", []byte("x"))
				b := new(bytes.Buffer)
				_, _ = b.ReadFrom(r)
				return b.String(), ct
			},
			wantBody: "Bad Request: Empty filename",
		},
		{
			name: "dot dot filename",
			body: func(t *testing.T) (string, string) {
				r, ct := multipartBody(t, "file", "..", []byte("x"))
				b := new(bytes.Buffer)
				_, _ = b.ReadFrom(r)
				return b.String(), ct
			},
			wantBody: "Bad Request: Invalid filename",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := tt.body(t)
			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body))
			if ct != "" {
				req.Header.Set("Content-Type", ct)
			}
			rr := do(s, req)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d (%q)", rr.Code, rr.Body.String())
			}
			if got := strings.TrimSpace(rr.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
			assertCORS(t, rr)
		})
	}

	entries, _ := os.ReadDir(s.cfg.UploadDir)
	if len(entries) != 0 {
		t.Errorf("rejected uploads left %d entries behind", len(entries))
	}
}

func TestUploadHandler_TooLarge(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.MaxUploadBytes = 1024 })

	rr := uploadFile(t, s, "big.bin", bytes.Repeat([]byte("a"), 64*1024))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected 413, got %d (%q)", rr.Code, rr.Body.String())
	}
	if _, err := os.Stat(filepath.Join(s.cfg.UploadDir, "big.bin")); !os.IsNotExist(err) {
		t.Error("oversized upload should not be stored")
	}

	rr = uploadFile(t, s, "small.bin", []byte("fits"))
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 under the limit, got %d", rr.Code)
	}
}

func TestUploadHandler_Overwrite(t *testing.T) {
	s := newTestServer(t)

	if rr := uploadFile(t, s, "same.txt", []byte("first, and longer")); rr.Code != http.StatusOK {
		t.Fatalf("first upload: %d", rr.Code)
	}
	if rr := uploadFile(t, s, "same.txt", []byte("second")); rr.Code != http.StatusOK {
		t.Fatalf("second upload: %d", rr.Code)
	}

	got, err := os.ReadFile(filepath.Join(s.cfg.UploadDir, "same.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Errorf("content = %q, want the second upload", got)
	}
}
