package server

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"simple-file-share/internal/storage"
)

var dispositionEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// handleDownload handles GET /download/{name}. The name arrives still
// percent-encoded and is reduced to a bare filename before any lookup, so
// nothing outside the upload directory is reachable.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["name"]
	if raw == "" {
		s.metrics.RecordDownload(resultClientError, 0)
		http.Error(w, "Bad Request: Empty filename", http.StatusBadRequest)
		return
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		s.metrics.RecordDownload(resultClientError, 0)
		http.Error(w, "Bad Request: Invalid filename encoding", http.StatusBadRequest)
		return
	}

	name, err := storage.SanitizeName(decoded)
	if err != nil {
		s.notFound(w, decoded)
		return
	}

	fh, info, err := s.store.Open(name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.notFound(w, name)
			return
		}
		s.metrics.RecordDownload(resultError, 0)
		http.Error(w, "Internal Server Error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() { _ = fh.Close() }()

	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Disposition", `attachment; filename="`+dispositionEscaper.Replace(info.Name)+`"`)
	h.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)

	n, err := s.sendChunks(newIdleWriter(w, s.cfg.IdleTimeout), fh)
	if err != nil {
		// Headers are gone. The short body makes net/http close the
		// connection after we return.
		s.metrics.RecordDownload(resultError, n)
		s.log.Warn("download_interrupted",
			"rid", RequestIDFromContext(r.Context()),
			"file", name,
			"sent", n,
			"size", info.Size,
			"err", err,
		)
		return
	}
	s.metrics.RecordDownload(resultSuccess, n)
}

// sendChunks copies src to dst ChunkSize bytes at a time.
func (s *Server) sendChunks(dst io.Writer, src io.Reader) (int64, error) {
	size := s.cfg.ChunkSize
	if size <= 0 {
		size = storage.DefaultChunkSize
	}
	buf := make([]byte, size)
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}

func (s *Server) notFound(w http.ResponseWriter, name string) {
	s.metrics.RecordDownload(resultNotFound, 0)
	http.Error(w, "File not found: "+name, http.StatusNotFound)
}
