// Package storage manages the upload directory: the single place files are
// written to and served from. The directory listing is the only index; no
// metadata is kept anywhere else.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultChunkSize bounds how much of an upload is held in memory at once.
const DefaultChunkSize = 8 * 1024

const (
	tempPrefix = ".fileshare-"
	tempSuffix = ".part"
)

var (
	// ErrNotFound is returned for names that do not resolve to a regular file.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidName is returned for client names with no usable final segment.
	ErrInvalidName = errors.New("invalid filename")
)

// File describes one stored file. Size is read from the filesystem on every
// query.
type File struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Store is the upload directory.
type Store struct {
	dir       string
	chunkSize int
}

// New returns a Store rooted at dir. The directory is not touched until the
// first operation needs it.
func New(dir string, chunkSize int) *Store {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Store{dir: dir, chunkSize: chunkSize}
}

// Dir returns the upload directory path as configured.
func (s *Store) Dir() string {
	return s.dir
}

// EnsureDir creates the upload directory if it is missing.
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	return nil
}

// SanitizeName reduces a client supplied name to its final path segment.
// Both slash and backslash count as separators so Windows-style paths are
// stripped as well.
func SanitizeName(raw string) (string, error) {
	name := strings.ReplaceAll(raw, `\`, "/")
	name = strings.TrimRight(name, "/")
	if name == "" {
		return "", ErrInvalidName
	}
	name = path.Base(name)
	switch {
	case name == "." || name == ".." || name == "/":
		return "", ErrInvalidName
	case strings.ContainsRune(name, 0):
		return "", ErrInvalidName
	case IsTempName(name):
		return "", ErrInvalidName
	}
	return name, nil
}

// IsTempName reports whether name is an in-flight upload. Such files are
// never served, whichever route asks for them.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempSuffix)
}

// List returns every regular file directly inside the upload directory.
// Subdirectories and in-flight uploads are skipped. Order follows the
// directory.
func (s *Store) List(ctx context.Context) ([]File, error) {
	if err := s.EnsureDir(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.dir)
	if err != nil {
		return nil, fmt.Errorf("open upload dir: %w", err)
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	files := make([]File, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if IsTempName(name) {
			continue
		}
		// Stat follows symlinks, so a link to a regular file is listed.
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, File{Name: name, Size: info.Size()})
	}
	return files, nil
}

// Open opens a stored file for reading. The returned File carries the size
// of the opened handle, which stays consistent even if the name is replaced
// concurrently.
func (s *Store) Open(name string) (*os.File, File, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, File{}, err
	}
	fh, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, File{}, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, File{}, fmt.Errorf("open %s: %w", name, err)
	}
	info, err := fh.Stat()
	if err != nil {
		fh.Close()
		return nil, File{}, fmt.Errorf("stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		fh.Close()
		return nil, File{}, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return fh, File{Name: name, Size: info.Size()}, nil
}

// Save streams src into the upload directory under name, replacing any
// existing file. Data goes to a temporary file first and is renamed into
// place only once fully written, so readers see either the old content or
// the new one. On error nothing is left behind.
func (s *Store) Save(ctx context.Context, name string, src io.Reader) (int64, error) {
	p, err := s.path(name)
	if err != nil {
		return 0, err
	}
	if err := s.EnsureDir(); err != nil {
		return 0, err
	}

	tmpPath := filepath.Join(s.dir, tempPrefix+uuid.NewString()+tempSuffix)
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	n, err := s.copyChunks(ctx, tmp, src)
	if err != nil {
		return n, err
	}
	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		_ = os.Remove(tmpPath)
		committed = true
		return n, fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return n, nil
}

func (s *Store) copyChunks(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, s.chunkSize)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, fmt.Errorf("write chunk: %w", werr)
			}
			if nw != nr {
				return written, fmt.Errorf("write chunk: %w", io.ErrShortWrite)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("read upload: %w", rerr)
		}
	}
}

// path joins a sanitized name onto the upload directory. Names that are not
// already a single clean segment are rejected rather than silently fixed.
func (s *Store) path(name string) (string, error) {
	clean, err := SanitizeName(name)
	if err != nil || clean != name {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return filepath.Join(s.dir, name), nil
}
