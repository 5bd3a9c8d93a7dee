package server

import (
	"io"
	"net/http"
	"time"
)

// idleReader pushes the connection read deadline forward before every read,
// so a transfer only times out when the client stops sending.
type idleReader struct {
	io.ReadCloser
	rc   *http.ResponseController
	idle time.Duration
}

func newIdleReader(w http.ResponseWriter, body io.ReadCloser, idle time.Duration) io.ReadCloser {
	if idle <= 0 {
		return body
	}
	return &idleReader{ReadCloser: body, rc: http.NewResponseController(w), idle: idle}
}

func (r *idleReader) Read(p []byte) (int, error) {
	// ErrNotSupported from recorders and wrapped writers is fine to ignore.
	_ = r.rc.SetReadDeadline(time.Now().Add(r.idle))
	return r.ReadCloser.Read(p)
}

// idleWriter is the write-side counterpart of idleReader.
type idleWriter struct {
	w    io.Writer
	rc   *http.ResponseController
	idle time.Duration
}

func newIdleWriter(w http.ResponseWriter, idle time.Duration) io.Writer {
	if idle <= 0 {
		return w
	}
	return &idleWriter{w: w, rc: http.NewResponseController(w), idle: idle}
}

func (w *idleWriter) Write(p []byte) (int, error) {
	_ = w.rc.SetWriteDeadline(time.Now().Add(w.idle))
	return w.w.Write(p)
}
