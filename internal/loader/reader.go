// Package loader supplies source bytes to the parser and resolves
// import paths against the injected std/project/packages roots.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// ErrNotFound reports that a path names no file. Callers distinguish
// it from real I/O failures.
var ErrNotFound = errors.New("file not found")

// Reader supplies source bytes for import resolution. The driver backs
// it with the local filesystem; tests back it with an in-memory store.
type Reader interface {
	Read(filePath string) ([]byte, error)
	Exists(filePath string) bool
}

// Service is a Reader over an afs storage service. Paths are joined
// onto the base URL, so the same code serves file:// and mem:// stores.
type Service struct {
	fs      afs.Service
	baseURL string
}

// NewFS returns a Reader over the local filesystem.
func NewFS() *Service {
	return &Service{fs: afs.New(), baseURL: ""}
}

// NewMem returns a Reader over an in-memory store preloaded with the
// given path → content map.
func NewMem(files map[string]string) (*Service, error) {
	fs := afs.New()
	base := "mem://localhost/wisp"
	ctx := context.Background()
	for p, content := range files {
		url := base + "/" + strings.TrimPrefix(p, "/")
		if err := fs.Upload(ctx, url, file.DefaultFileOsMode, strings.NewReader(content)); err != nil {
			return nil, fmt.Errorf("preloading %s: %w", p, err)
		}
	}
	return &Service{fs: fs, baseURL: base}, nil
}

func (s *Service) url(filePath string) string {
	if s.baseURL == "" {
		return filePath
	}
	return s.baseURL + "/" + strings.TrimPrefix(filePath, "/")
}

// Read returns the file's bytes, or ErrNotFound.
func (s *Service) Read(filePath string) ([]byte, error) {
	ctx := context.Background()
	url := s.url(filePath)
	if ok, _ := s.fs.Exists(ctx, url); !ok {
		return nil, fmt.Errorf("%s: %w", filePath, ErrNotFound)
	}
	data, err := s.fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filePath, err)
	}
	return data, nil
}

// Exists reports whether the path names a file.
func (s *Service) Exists(filePath string) bool {
	ok, _ := s.fs.Exists(context.Background(), s.url(filePath))
	return ok
}

// Join joins path segments with forward slashes.
func Join(parts ...string) string {
	return path.Join(parts...)
}
