package server

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"simple-file-share/internal/storage"
)

// uploadFormField is the multipart field that carries the file.
const uploadFormField = "file"

// uploadResp is the JSON body returned after a successful upload.
type uploadResp struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleUpload handles POST /upload with a multipart/form-data body.
// The body is streamed part by part; only the "file" part is stored, chunk
// by chunk, and nothing is buffered whole in memory.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		s.rejectUpload(w, "Bad Request: Expected multipart/form-data", http.StatusBadRequest)
		return
	}

	r.Body = newIdleReader(w, r.Body, s.cfg.IdleTimeout)
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		s.rejectUpload(w, "Bad Request: Malformed multipart body", http.StatusBadRequest)
		return
	}

	part, err := nextFilePart(mr)
	if err != nil {
		switch {
		case isTooLarge(err):
			s.rejectUpload(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
		case err == io.EOF:
			// Only a well-formed closing boundary yields a bare io.EOF;
			// truncated bodies come back wrapped.
			s.rejectUpload(w, "Bad Request: No file uploaded", http.StatusBadRequest)
		default:
			s.rejectUpload(w, "Bad Request: Malformed multipart body", http.StatusBadRequest)
		}
		return
	}
	defer func() { _ = part.Close() }()

	filename := part.FileName()
	if filename == "" {
		s.rejectUpload(w, "Bad Request: Empty filename", http.StatusBadRequest)
		return
	}
	name, err := storage.SanitizeName(filename)
	if err != nil {
		s.rejectUpload(w, "Bad Request: Invalid filename", http.StatusBadRequest)
		return
	}

	n, err := s.store.Save(r.Context(), name, part)
	if err != nil {
		s.log.Warn("upload_failed",
			"rid", RequestIDFromContext(r.Context()),
			"file", name,
			"bytes", n,
			"err", err,
		)
		switch {
		case isTooLarge(err):
			s.rejectUpload(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, context.Canceled):
			// Client is gone; the status only reaches the access log.
			s.metrics.RecordUpload(resultClientError, 0)
			w.WriteHeader(http.StatusBadRequest)
		default:
			s.metrics.RecordUpload(resultError, 0)
			http.Error(w, "Internal Server Error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	s.metrics.RecordUpload(resultSuccess, n)
	s.log.Info("upload_stored",
		"rid", RequestIDFromContext(r.Context()),
		"file", name,
		"bytes", n,
	)
	_ = writeJSON(w, r, http.StatusOK, uploadResp{
		Status:  "success",
		Message: "File uploaded",
	})
}

// nextFilePart advances mr to the upload field. Parts before it are
// skipped; io.EOF means the body had no such field.
func nextFilePart(mr *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == uploadFormField {
			return part, nil
		}
		_ = part.Close()
	}
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func (s *Server) rejectUpload(w http.ResponseWriter, msg string, code int) {
	s.metrics.RecordUpload(resultClientError, 0)
	http.Error(w, msg, code)
}
