package scanner

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FrameSource yields camera frames. Next returns io.EOF once no more frames
// will arrive. Close releases the device and must be safe to call twice.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, error)
	Close() error
}

// FileSource replays still images as frames, in order.
type FileSource struct {
	mu     sync.Mutex
	paths  []string
	pos    int
	closed bool
}

func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

// NewDirSource replays every PNG or JPEG in dir sorted by name.
func NewDirSource(dir string) (*FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images in %s", dir)
	}
	sort.Strings(paths)
	return NewFileSource(paths...), nil
}

func (s *FileSource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, io.ErrClosedPipe
	}
	if s.pos >= len(s.paths) {
		s.mu.Unlock()
		return nil, io.EOF
	}
	path := s.paths[s.pos]
	s.pos++
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func (s *FileSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *FileSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
