package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/kui/internal/bridge"
	"github.com/GriffinCanCode/kui/internal/dom"
	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/page"
	"github.com/GriffinCanCode/kui/internal/resource"
	"github.com/GriffinCanCode/kui/internal/shared/types"
	"github.com/GriffinCanCode/kui/internal/upgrade"
)

// Window defaults
const (
	DefaultTitle  = "KUI Window"
	DefaultWidth  = 900
	DefaultHeight = 600
)

var (
	ErrAlreadyInitialized = errors.New("shell already initialized")
	ErrNotInitialized     = errors.New("shell not initialized")
	ErrAlreadyRunning     = errors.New("shell already running")
	ErrDisposed           = errors.New("shell disposed")
	ErrInvalidResource    = errors.New("invalid resource")
	ErrNoPage             = errors.New("no page loaded")
)

// State is the shell lifecycle state
type State int

const (
	StateNone State = iota
	StateInitialized
	StateRunning
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Binder registers host bindings in a global context
type Binder interface {
	Bind(globals *bridge.Globals) []string
}

// Options tunes the pages the shell loads
type Options struct {
	// Origin is the origin of derived resource references
	Origin  string
	Upgrade upgrade.Options
	Page    page.Config
}

// DefaultOptions returns the shell defaults
func DefaultOptions() Options {
	return Options{
		Origin: "kui://app",
		Page:   page.DefaultConfig(),
	}
}

// Shell hosts one page at a time and drives its bridge
type Shell struct {
	binder  Binder
	opts    Options
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu      sync.Mutex
	state   State
	args    types.WindowArgs
	globals *bridge.Globals
	adapter *bridge.Adapter
	surface *bridge.Surface
	current *loadedPage
}

// loadedPage is everything created for one document
type loadedPage struct {
	doc      *dom.Document
	table    *resource.Table
	resolver *resource.Resolver
	watcher  *upgrade.Watcher
	runtime  *page.Runtime
}

// New creates a shell in StateNone
func New(binder Binder, opts Options, logger *zap.Logger, metrics *monitoring.Metrics) *Shell {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Origin == "" {
		opts.Origin = DefaultOptions().Origin
	}
	return &Shell{
		binder:  binder,
		opts:    opts,
		logger:  logger.Named("shell"),
		metrics: metrics,
	}
}

// Init binds host functions, installs the bridge surface and loads the
// default page. Zero window fields take the defaults.
func (s *Shell) Init(ctx context.Context, args types.WindowArgs) error {
	s.mu.Lock()
	if s.state != StateNone {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}

	if args.Title == "" {
		args.Title = DefaultTitle
	}
	if args.Width <= 0 {
		args.Width = DefaultWidth
	}
	if args.Height <= 0 {
		args.Height = DefaultHeight
	}

	globals := bridge.NewGlobals()
	var names []string
	if s.binder != nil {
		names = s.binder.Bind(globals)
	}
	adapter := bridge.NewAdapter(globals, s.logger, s.metrics)
	surface, _, err := bridge.Install(adapter)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("install bridge: %w", err)
	}

	s.args = args
	s.globals = globals
	s.adapter = adapter
	s.surface = surface
	s.state = StateInitialized
	s.mu.Unlock()

	s.logger.Info("Shell initialized",
		zap.String("title", args.Title),
		zap.Int("width", args.Width),
		zap.Int("height", args.Height),
		zap.Strings("bindings", names))

	return s.SetPage(ctx, DefaultPage)
}

// SetPage unloads the current page and loads markup. A body fragment is
// wrapped into a full document. Inline scripts run before the document is
// marked complete, so the initial scan sees what they insert.
func (s *Shell) SetPage(ctx context.Context, markup string) error {
	return s.load(ctx, markup, dom.ParseString)
}

// SetPageBytes is SetPage for raw page bytes in any charset the detector
// recognizes.
func (s *Shell) SetPageBytes(ctx context.Context, data []byte) error {
	return s.load(ctx, string(data), func(markup string) (*dom.Document, error) {
		return dom.ParseBytes([]byte(markup))
	})
}

func (s *Shell) load(ctx context.Context, markup string, parse func(string) (*dom.Document, error)) error {
	if strings.TrimSpace(markup) == "" {
		return ErrInvalidResource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateNone:
		return ErrNotInitialized
	case StateDisposed:
		return ErrDisposed
	}

	s.unload()

	doc, err := parse(wrapPage(markup))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	table := resource.NewTable(s.opts.Origin, s.metrics)
	resolver := resource.NewResolver(s.adapter, table, s.metrics)
	upgrader := upgrade.NewUpgrader(resolver, s.logger, s.metrics, s.opts.Upgrade)
	watcher := upgrade.NewWatcher(doc, upgrader, s.logger, s.metrics)

	runtime, err := page.New(s.opts.Page, s.surface, doc, s.logger)
	if err != nil {
		watcher.Close()
		table.Close()
		return fmt.Errorf("create page runtime: %w", err)
	}
	runtime.InstallBridge()
	runtime.InstallURL(func(ref string) bool {
		return table.Release(resource.Reference(ref))
	})

	p := &loadedPage{doc: doc, table: table, resolver: resolver, watcher: watcher, runtime: runtime}
	if err := watcher.Start(ctx); err != nil {
		p.close()
		return fmt.Errorf("start watcher: %w", err)
	}

	s.runScripts(ctx, p)
	doc.MarkComplete()
	s.current = p

	s.logger.Info("Page loaded",
		zap.String("document_id", doc.ID().String()),
		zap.Int("bytes", len(markup)))
	return nil
}

// runScripts executes inline scripts in document order
func (s *Shell) runScripts(ctx context.Context, p *loadedPage) {
	scripts, err := p.doc.QuerySelectorAll("script:not([src])")
	if err != nil {
		return
	}
	for i, el := range scripts {
		res, err := p.runtime.Execute(ctx, el.TextContent())
		if err != nil {
			s.logger.Warn("Inline script failed", zap.Int("index", i), zap.Error(err))
			continue
		}
		s.logger.Debug("Inline script ran", zap.Int("index", i), zap.Duration("duration", res.Duration))
	}
}

// unload releases the current page. Callers hold s.mu.
func (s *Shell) unload() {
	if s.current == nil {
		return
	}
	s.current.close()
	s.logger.Debug("Page unloaded", zap.String("document_id", s.current.doc.ID().String()))
	s.current = nil
}

func (p *loadedPage) close() {
	p.watcher.Close()
	_ = p.runtime.Close()
	p.table.Close()
}

// Run blocks until ctx is done, then disposes the shell
func (s *Shell) Run(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateNone:
		s.mu.Unlock()
		return ErrNotInitialized
	case StateRunning:
		s.mu.Unlock()
		return ErrAlreadyRunning
	case StateDisposed:
		s.mu.Unlock()
		return ErrDisposed
	}
	s.state = StateRunning
	s.mu.Unlock()

	s.logger.Info("Shell running")
	<-ctx.Done()

	s.mu.Lock()
	s.unload()
	s.state = StateDisposed
	s.mu.Unlock()

	s.logger.Info("Shell disposed")
	return nil
}

// Eval runs script in the current page
func (s *Shell) Eval(ctx context.Context, script string) (*page.Result, error) {
	p, err := s.page()
	if err != nil {
		return nil, err
	}
	return p.runtime.Execute(ctx, script)
}

// Settle waits until every pending upgrade of the current page finished
func (s *Shell) Settle(ctx context.Context) error {
	p, err := s.page()
	if err != nil {
		return err
	}
	return p.watcher.Settle(ctx)
}

// HTML renders the current document
func (s *Shell) HTML() (string, error) {
	p, err := s.page()
	if err != nil {
		return "", err
	}
	return p.doc.HTML(), nil
}

// Blob looks up a derived resource of the current page by reference or by
// its bare id
func (s *Shell) Blob(name string) (*resource.Blob, bool) {
	p, err := s.page()
	if err != nil {
		return nil, false
	}
	if strings.HasPrefix(name, "blob:") {
		return p.table.Lookup(resource.Reference(name))
	}
	return p.table.LookupID(name)
}

// Release frees a derived resource of the current page, by reference or by
// bare id. It reports whether the resource was live.
func (s *Shell) Release(name string) bool {
	p, err := s.page()
	if err != nil {
		return false
	}
	ref := resource.Reference(name)
	if !strings.HasPrefix(name, "blob:") {
		ref = p.table.Reference(name)
	}
	return p.table.Release(ref)
}

// Surface returns the installed bridge surface, or nil before Init
func (s *Shell) Surface() *bridge.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// Document returns the current document, or nil
func (s *Shell) Document() *dom.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	return s.current.doc
}

// Args returns the effective window arguments
func (s *Shell) Args() types.WindowArgs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.args
}

// State returns the lifecycle state
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats summarizes the shell and its current page
func (s *Shell) Stats() types.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := types.Stats{State: s.state.String()}
	if s.current != nil {
		stats.Document = s.current.doc.ID().String()
		stats.DerivedResources = s.current.table.Len()
		stats.Watcher = s.current.watcher.State().String()
	}
	return stats
}

func (s *Shell) page() (*loadedPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state == StateDisposed:
		return nil, ErrDisposed
	case s.state == StateNone:
		return nil, ErrNotInitialized
	case s.current == nil:
		return nil, ErrNoPage
	}
	return s.current, nil
}
