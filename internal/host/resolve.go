package host

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/kui/internal/bridge"
	"github.com/GriffinCanCode/kui/internal/shared/types"
)

var (
	ErrMissingURL = errors.New("missing url")
	ErrNotFound   = errors.New("not found")
	ErrBadLocator = errors.New("bad locator")
)

const (
	schemePrefix = "kui:/"
	assetScheme  = "asset://"
	fileScheme   = "file://"
)

// Resolver answers the resolution binding from assets, local files and
// remote URLs
type Resolver struct {
	assets *AssetStore
	remote *Remote
	logger *zap.Logger
}

// NewResolver creates a resolver. remote may be nil, which makes http(s)
// locators unresolvable.
func NewResolver(assets *AssetStore, remote *Remote, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{assets: assets, remote: remote, logger: logger.Named("resolve")}
}

// Binding returns the resolution binding. It replies with the JSON text
// {"mime": ..., "b64": ...}.
func (r *Resolver) Binding() bridge.Binding {
	return func(ctx context.Context, payload types.Payload) (interface{}, error) {
		locator, ok := payload.String("url")
		if !ok || locator == "" {
			return nil, ErrMissingURL
		}

		asset, err := r.Load(ctx, locator)
		if err != nil {
			r.logger.Debug("Resolve failed", zap.String("url", locator), zap.Error(err))
			return nil, err
		}

		return sonic.MarshalString(map[string]string{
			"mime": asset.MIME,
			"b64":  base64.StdEncoding.EncodeToString(asset.Data),
		})
	}
}

// Load returns the content behind locator. A leading kui:/ is ignored in
// any letter case.
func (r *Resolver) Load(ctx context.Context, locator string) (Asset, error) {
	loc := locator
	if len(loc) >= len(schemePrefix) && strings.EqualFold(loc[:len(schemePrefix)], schemePrefix) {
		loc = loc[len(schemePrefix):]
	}
	lower := strings.ToLower(loc)

	switch {
	case strings.HasPrefix(lower, assetScheme):
		return r.assets.Find(loc[len(assetScheme):])
	case strings.HasPrefix(lower, fileScheme):
		return readFileURL(loc)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		if r.remote == nil {
			return Asset{}, fmt.Errorf("%w: remote locators disabled", ErrNotFound)
		}
		return r.remote.Fetch(ctx, loc)
	default:
		return r.assets.Find(loc)
	}
}

func readFileURL(loc string) (Asset, error) {
	u, err := url.Parse(loc)
	if err != nil || u.Path == "" {
		return Asset{}, fmt.Errorf("%w: %s", ErrBadLocator, loc)
	}
	name := filepath.FromSlash(u.Path)

	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, u.Path)
		}
		return Asset{}, fmt.Errorf("read %s: %w", u.Path, err)
	}
	return Asset{Path: u.Path, Data: data, MIME: MIMEType(name, data)}, nil
}
