package server

import (
	"net/http"
	"net/url"

	"simple-file-share/internal/storage"
)

// fileEntry is one element of the GET /list-files response.
type fileEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// downloadURL is the path a client uses to fetch name.
func downloadURL(name string) string {
	return "/download/" + url.PathEscape(name)
}

func toEntries(files []storage.File) []fileEntry {
	entries := make([]fileEntry, 0, len(files))
	for _, f := range files {
		entries = append(entries, fileEntry{Name: f.Name, Size: f.Size, URL: downloadURL(f.Name)})
	}
	return entries
}

// handleListFiles handles GET /list-files: every stored file with its
// current size and download link, gzip-compressed when the client allows.
func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("list_failed", "rid", RequestIDFromContext(r.Context()), "err", err)
		http.Error(w, "Internal Server Error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.metrics.RecordListing()
	if err := writeJSON(w, r, http.StatusOK, toEntries(files)); err != nil {
		s.log.Warn("list_write_failed", "rid", RequestIDFromContext(r.Context()), "err", err)
	}
}
