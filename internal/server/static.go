package server

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"simple-file-share/internal/storage"
)

// cacheableExt lists the asset extensions that get browser cache headers.
var cacheableExt = map[string]bool{
	".html": true,
	".css":  true,
	".js":   true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// staticHandler serves the static directory with the standard file server
// (MIME detection, index.html, directory listings) and adds cache headers
// for known asset types.
type staticHandler struct {
	files  http.Handler
	maxAge time.Duration
	now    func() time.Time
}

func newStaticHandler(root string, maxAge time.Duration) *staticHandler {
	return &staticHandler{
		files:  http.FileServer(hideTempFS{http.Dir(root)}),
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if cacheableExt[strings.ToLower(path.Ext(r.URL.Path))] {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int64(h.maxAge.Seconds())))
		w.Header().Set("Expires", h.now().Add(h.maxAge).UTC().Format(http.TimeFormat))
	}
	h.files.ServeHTTP(w, r)
}

// hideTempFS keeps in-flight uploads out of the static tree. The upload
// directory usually sits inside the static root.
type hideTempFS struct {
	http.FileSystem
}

func (h hideTempFS) Open(name string) (http.File, error) {
	if storage.IsTempName(path.Base(name)) {
		return nil, os.ErrNotExist
	}
	f, err := h.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	return hideTempFile{f}, nil
}

type hideTempFile struct {
	http.File
}

// Readdir drops temp entries. A positive count may need more than one read
// when a whole batch was filtered out.
func (f hideTempFile) Readdir(count int) ([]fs.FileInfo, error) {
	for {
		infos, err := f.File.Readdir(count)
		kept := infos[:0]
		for _, fi := range infos {
			if !storage.IsTempName(fi.Name()) {
				kept = append(kept, fi)
			}
		}
		if len(kept) > 0 || err != nil || count <= 0 || len(infos) == 0 {
			return kept, err
		}
	}
}
