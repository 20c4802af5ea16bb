package host

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/kui/internal/bridge"
	"github.com/GriffinCanCode/kui/internal/shared/types"
)

// File binding names
const (
	OpenBinding  = "__fs_open"
	ReadBinding  = "__fs_read"
	WriteBinding = "__fs_write"
	SeekBinding  = "__fs_seek"
	CloseBinding = "__fs_close"
)

const (
	maxHandles = 256
	readChunk  = 64 * 1024
	readLimit  = 4 * 1024 * 1024
)

var (
	ErrMissingPath  = errors.New("missing path")
	ErrOpenFailed   = errors.New("open failed")
	ErrTooManyFiles = errors.New("too many open files")
	ErrBadHandle    = errors.New("bad handle")
	ErrBadArgs      = errors.New("args")
	ErrSeek         = errors.New("seek")
)

// Files exposes streamed file access to the page. Paths are confined to
// root; handles run from 1 to 255 and 0 is never valid.
type Files struct {
	root   string
	logger *zap.Logger

	mu      sync.Mutex
	handles [maxHandles]*os.File
}

// NewFiles creates the file bindings over root
func NewFiles(root string, logger *zap.Logger) (*Files, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("files root: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Files{root: abs, logger: logger.Named("files")}, nil
}

// Bindings returns the file bindings keyed by name
func (f *Files) Bindings() map[string]bridge.Binding {
	return map[string]bridge.Binding{
		OpenBinding:  f.open,
		ReadBinding:  f.read,
		WriteBinding: f.write,
		SeekBinding:  f.seek,
		CloseBinding: f.close,
	}
}

// Open returns the number of open handles
func (f *Files) Open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, fp := range f.handles {
		if fp != nil {
			n++
		}
	}
	return n
}

// Close closes every open handle
func (f *Files) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for h, fp := range f.handles {
		if fp == nil {
			continue
		}
		if err := fp.Close(); err != nil {
			errs = append(errs, err)
		}
		f.handles[h] = nil
	}
	return errors.Join(errs...)
}

func (f *Files) open(ctx context.Context, payload types.Payload) (interface{}, error) {
	name, ok := payload.String("path")
	if !ok || name == "" {
		return nil, ErrMissingPath
	}
	mode, ok := payload.String("mode")
	if !ok || mode == "" {
		mode = "rb"
	}
	flag, err := openFlag(mode)
	if err != nil {
		return nil, err
	}

	full := f.confine(name)
	fp, err := os.OpenFile(full, flag, 0o644)
	if err != nil {
		f.logger.Debug("Open failed", zap.String("path", name), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	f.mu.Lock()
	h := 0
	for i := 1; i < maxHandles; i++ {
		if f.handles[i] == nil {
			f.handles[i] = fp
			h = i
			break
		}
	}
	f.mu.Unlock()

	if h == 0 {
		fp.Close()
		return nil, ErrTooManyFiles
	}
	return types.Result{"handle": h}, nil
}

func (f *Files) read(ctx context.Context, payload types.Payload) (interface{}, error) {
	fp, err := f.lookup(payload)
	if err != nil {
		return nil, err
	}

	limit := int64(readChunk)
	if v, ok := payload.Int("max"); ok && v > 0 {
		limit = v
	}
	if limit > readLimit {
		limit = readLimit
	}

	buf := make([]byte, limit)
	n, err := io.ReadFull(fp, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read: %w", err)
	}
	return types.Result{
		"b64": base64.StdEncoding.EncodeToString(buf[:n]),
		"n":   n,
	}, nil
}

func (f *Files) write(ctx context.Context, payload types.Payload) (interface{}, error) {
	fp, err := f.lookup(payload)
	if err != nil {
		return nil, ErrBadArgs
	}
	encoded, ok := payload.String("b64")
	if !ok {
		return nil, ErrBadArgs
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("b64 decode: %w", err)
	}

	n, err := fp.Write(data)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return types.Result{"n": n}, nil
}

func (f *Files) seek(ctx context.Context, payload types.Payload) (interface{}, error) {
	fp, err := f.lookup(payload)
	if err != nil {
		return nil, ErrSeek
	}
	offset, _ := payload.Int("offset")
	whence, _ := payload.Int("whence")
	if whence < io.SeekStart || whence > io.SeekEnd {
		return nil, ErrSeek
	}

	pos, err := fp.Seek(offset, int(whence))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSeek, err)
	}
	return types.Result{"pos": pos}, nil
}

func (f *Files) close(ctx context.Context, payload types.Payload) (interface{}, error) {
	h, ok := payload.Int("handle")
	if !ok || h <= 0 || h >= maxHandles {
		return nil, ErrBadHandle
	}

	f.mu.Lock()
	fp := f.handles[h]
	f.handles[h] = nil
	f.mu.Unlock()

	if fp == nil {
		return nil, ErrBadHandle
	}
	if err := fp.Close(); err != nil {
		return nil, fmt.Errorf("close: %w", err)
	}
	return types.Result{"ok": true}, nil
}

func (f *Files) lookup(payload types.Payload) (*os.File, error) {
	h, ok := payload.Int("handle")
	if !ok || h <= 0 || h >= maxHandles {
		return nil, ErrBadHandle
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if fp := f.handles[h]; fp != nil {
		return fp, nil
	}
	return nil, ErrBadHandle
}

// confine maps a page path into root; .. never climbs above it
func (f *Files) confine(name string) string {
	clean := path.Clean("/" + filepath.ToSlash(name))
	return filepath.Join(f.root, filepath.FromSlash(clean))
}

func openFlag(mode string) (int, error) {
	switch strings.ReplaceAll(mode, "b", "") {
	case "r":
		return os.O_RDONLY, nil
	case "r+":
		return os.O_RDWR, nil
	case "w":
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case "w+":
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	case "a":
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case "a+":
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, nil
	default:
		return 0, fmt.Errorf("%w: mode %q", ErrBadArgs, mode)
	}
}
