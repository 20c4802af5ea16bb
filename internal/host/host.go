package host

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/kui/internal/bridge"
)

// Config selects what the host exposes
type Config struct {
	AssetsRoot string
	Include    []string
	// FilesRoot enables the file bindings when set
	FilesRoot string
	// Remote enables http(s) locators when set
	Remote *RemoteOptions
}

// Host owns the reference host bindings
type Host struct {
	assets   *AssetStore
	resolver *Resolver
	remote   *Remote
	files    *Files
	logger   *zap.Logger
}

// New creates a host. Assets are not indexed until Index is called.
func New(cfg Config, logger *zap.Logger) (*Host, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("host")

	assets, err := NewAssetStore(cfg.AssetsRoot, cfg.Include)
	if err != nil {
		return nil, err
	}

	h := &Host{assets: assets, logger: logger}
	if cfg.Remote != nil {
		h.remote = NewRemote(*cfg.Remote, logger)
	}
	h.resolver = NewResolver(assets, h.remote, logger)

	if cfg.FilesRoot != "" {
		files, err := NewFiles(cfg.FilesRoot, logger)
		if err != nil {
			return nil, err
		}
		h.files = files
	}
	return h, nil
}

// Assets returns the asset store
func (h *Host) Assets() *AssetStore {
	return h.assets
}

// Resolver returns the resolution binding provider
func (h *Host) Resolver() *Resolver {
	return h.resolver
}

// Remote returns the remote fetcher, or nil when disabled
func (h *Host) Remote() *Remote {
	return h.remote
}

// Files returns the file bindings, or nil when disabled
func (h *Host) Files() *Files {
	return h.files
}

// Index indexes the asset root
func (h *Host) Index(ctx context.Context) error {
	n, err := h.assets.Index(ctx)
	if err != nil {
		return err
	}
	h.logger.Info("Indexed assets", zap.Int("count", n))
	return nil
}

// Bind registers every host binding in globals and returns their names
func (h *Host) Bind(globals *bridge.Globals) []string {
	bindings := map[string]bridge.Binding{
		bridge.VersionBinding: VersionBinding(),
		bridge.ResolveBinding: h.resolver.Binding(),
	}
	if h.files != nil {
		for name, fn := range h.files.Bindings() {
			bindings[name] = fn
		}
	}

	names := make([]string, 0, len(bindings))
	for name, fn := range bindings {
		globals.Bind(name, fn)
		names = append(names, name)
	}
	sort.Strings(names)

	h.logger.Debug("Bound host functions", zap.Strings("bindings", names))
	return names
}

// Close releases open file handles
func (h *Host) Close() error {
	if h.files == nil {
		return nil
	}
	if err := h.files.Close(); err != nil {
		return fmt.Errorf("close files: %w", err)
	}
	return nil
}
