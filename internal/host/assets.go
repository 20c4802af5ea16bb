package host

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
)

// Asset is the content behind a locator
type Asset struct {
	Path string
	Data []byte
	MIME string
}

// AssetStore serves page assets from an indexed directory plus entries
// added in memory. Memory entries win over files with the same path.
type AssetStore struct {
	root    string
	include []string

	mu     sync.RWMutex
	files  map[string]string
	memory map[string][]byte
}

// NewAssetStore creates a store over root. Only files matching one of the
// include patterns are indexed; no patterns means everything.
func NewAssetStore(root string, include []string) (*AssetStore, error) {
	for _, p := range include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
	}
	return &AssetStore{
		root:    root,
		include: include,
		files:   make(map[string]string),
		memory:  make(map[string][]byte),
	}, nil
}

// Index walks the root directory and replaces the file index. It returns
// the number of indexed files.
func (s *AssetStore) Index(ctx context.Context) (int, error) {
	if s.root == "" {
		return 0, nil
	}
	root, err := filepath.Abs(s.root)
	if err != nil {
		return 0, fmt.Errorf("asset root: %w", err)
	}

	var mu sync.Mutex
	files := make(map[string]string)
	conf := fastwalk.Config{Follow: false}

	err = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !s.included(rel) {
			return nil
		}

		mu.Lock()
		files[rel] = p
		mu.Unlock()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("index %s: %w", root, err)
	}

	s.mu.Lock()
	s.files = files
	s.mu.Unlock()
	return len(files), nil
}

func (s *AssetStore) included(rel string) bool {
	if len(s.include) == 0 {
		return true
	}
	for _, p := range s.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Add registers an in-memory asset
func (s *AssetStore) Add(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory[cleanName(name)] = data
}

// Find returns the asset stored under name
func (s *AssetStore) Find(name string) (Asset, error) {
	key := cleanName(name)

	s.mu.RLock()
	data, inMemory := s.memory[key]
	file, onDisk := s.files[key]
	s.mu.RUnlock()

	switch {
	case inMemory:
		return Asset{Path: key, Data: data, MIME: MIMEType(key, data)}, nil
	case onDisk:
		data, err := os.ReadFile(file)
		if err != nil {
			if os.IsNotExist(err) {
				return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, key)
			}
			return Asset{}, fmt.Errorf("read asset %s: %w", key, err)
		}
		return Asset{Path: key, Data: data, MIME: MIMEType(key, data)}, nil
	default:
		return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
}

// Paths lists every known asset path, sorted
func (s *AssetStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.files)+len(s.memory))
	for p := range s.files {
		seen[p] = struct{}{}
	}
	for p := range s.memory {
		seen[p] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// cleanName maps a locator path onto an index key
func cleanName(name string) string {
	return strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(name)), "/")
}

var mimeByExt = map[string]string{
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".js":    "application/javascript",
	".mjs":   "application/javascript",
	".json":  "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".wasm":  "application/wasm",
	".txt":   "text/plain",
	".mp3":   "audio/mpeg",
	".mp4":   "video/mp4",
}

// MIMEType picks a media type from the extension, sniffing data when the
// extension is unknown
func MIMEType(name string, data []byte) string {
	if m, ok := mimeByExt[strings.ToLower(path.Ext(name))]; ok {
		return m
	}
	return mimetype.Detect(data).String()
}
