package page

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/kui/internal/bridge"
	"github.com/GriffinCanCode/kui/internal/dom"
	"github.com/GriffinCanCode/kui/internal/shared/types"
)

// ErrClosed is returned by Execute after Close
var ErrClosed = errors.New("page runtime closed")

// Runtime is the JavaScript context of one page. Script runs on the
// goroutine calling Execute; host replies are queued as jobs and run there
// too, so the VM is never touched concurrently.
type Runtime struct {
	vm      *goja.Runtime
	config  Config
	surface *bridge.Surface
	doc     *dom.Document
	logger  *zap.Logger
	mu      sync.Mutex

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex

	// Continuations posted by host calls and timers
	jobs   []func()
	jobsMu sync.Mutex
	signal chan struct{}

	// pending counts promises of the current execution; gen tells
	// continuations of an abandoned execution apart
	pending int
	gen     uint64

	// Context handed to host calls started by the current execution
	callCtx context.Context

	ctx    context.Context
	cancel context.CancelFunc

	timers   map[int64]timer
	timerSeq int64
}

type timer struct {
	t   *time.Timer
	gen uint64
}

// New creates a page runtime bound to surface and doc. doc may be nil, in
// which case no document object is exposed.
func New(config Config, surface *bridge.Surface, doc *dom.Document, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	r := &Runtime{
		vm:      goja.New(),
		config:  config,
		surface: surface,
		doc:     doc,
		logger:  logger.Named("page"),
		console: []LogEntry{},
		signal:  make(chan struct{}, 1),
		callCtx: ctx,
		ctx:     ctx,
		cancel:  cancel,
		timers:  make(map[int64]timer),
	}

	if config.MaxCallStackSize > 0 {
		r.vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	if doc != nil {
		if err := r.bindDocument(); err != nil {
			return nil, fmt.Errorf("failed to bind document: %w", err)
		}
	}
	return r, nil
}

// InstallBridge exposes the frozen kui object. If a kui global is already
// present it is kept and false is returned.
func (r *Runtime) InstallBridge() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm == nil {
		return false
	}
	return r.installBridge()
}

func (r *Runtime) installBridge() bool {
	if existing := r.vm.Get(bridge.GlobalName); existing != nil && existing.ToBoolean() {
		return false
	}

	kui := r.vm.NewObject()
	_ = kui.Set("version", r.jsVersion)
	_ = kui.Set("native", r.jsNative)

	freeze, ok := goja.AssertFunction(r.vm.Get("Object").ToObject(r.vm).Get("freeze"))
	if !ok {
		r.logger.Error("Object.freeze unavailable")
		return false
	}
	if _, err := freeze(goja.Undefined(), kui); err != nil {
		r.logger.Error("Failed to freeze bridge object", zap.Error(err))
		return false
	}

	_ = r.vm.Set(bridge.GlobalName, kui)
	return true
}

// InstallURL exposes URL.revokeObjectURL backed by release. A URL object
// defined by script is extended rather than replaced. Unknown references
// are ignored.
func (r *Runtime) InstallURL(release func(ref string) bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm == nil {
		return
	}

	var url *goja.Object
	if v := r.vm.Get("URL"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		url = v.ToObject(r.vm)
	} else {
		url = r.vm.NewObject()
		_ = r.vm.Set("URL", url)
	}

	_ = url.Set("revokeObjectURL", func(call goja.FunctionCall) goja.Value {
		ref := call.Argument(0)
		if goja.IsUndefined(ref) || goja.IsNull(ref) {
			return goja.Undefined()
		}
		if release(ref.String()) {
			r.logger.Debug("Released derived resource", zap.String("ref", ref.String()))
		}
		return goja.Undefined()
	})
}

// Execute runs script, then keeps running queued continuations until every
// promise created by kui.native, kui.version or setTimeout has settled. If
// the script evaluates to a promise, its settled value becomes the result.
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, ErrClosed
	}

	start := time.Now()
	result := &Result{
		Console: []LogEntry{},
	}

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	r.callCtx = ctx
	defer func() { r.callCtx = r.ctx }()

	r.gen++
	r.pending = 0

	// Setup interrupt handler
	stop := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			r.vm.Interrupt("execution interrupted: " + ctx.Err().Error())
		case <-stop:
		}
	}()

	// Clear console
	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	val, err := r.vm.RunString(script)
	if err == nil {
		err = r.drain(ctx)
	}

	close(stop)
	<-exited
	r.vm.ClearInterrupt()

	result.Duration = time.Since(start)

	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	if err != nil {
		return result, err
	}

	value, err := r.settledValue(val)
	result.Value = value
	return result, err
}

// drain runs posted jobs until nothing is pending
func (r *Runtime) drain(ctx context.Context) error {
	for {
		r.runJobs()
		if r.pending == 0 {
			return nil
		}
		select {
		case <-r.signal:
		case <-ctx.Done():
			return fmt.Errorf("waiting for %d pending host calls: %w", r.pending, ctx.Err())
		}
	}
}

func (r *Runtime) runJobs() {
	for {
		r.jobsMu.Lock()
		jobs := r.jobs
		r.jobs = nil
		r.jobsMu.Unlock()

		if len(jobs) == 0 {
			return
		}
		for _, job := range jobs {
			job()
		}
	}
}

// post queues fn to run on the VM goroutine. Safe from any goroutine.
func (r *Runtime) post(fn func()) {
	r.jobsMu.Lock()
	r.jobs = append(r.jobs, fn)
	r.jobsMu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

func (r *Runtime) settledValue(val goja.Value) (interface{}, error) {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, nil
	}
	if p, ok := val.Export().(*goja.Promise); ok {
		switch p.State() {
		case goja.PromiseStateFulfilled:
			return r.exportValue(p.Result()), nil
		case goja.PromiseStateRejected:
			return nil, fmt.Errorf("promise rejected: %s", p.Result().String())
		default:
			return nil, errors.New("promise still pending")
		}
	}
	return r.exportValue(val), nil
}

// setupGlobals configures global objects and security
func (r *Runtime) setupGlobals() error {
	// Remove dangerous globals
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	console := r.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error"} {
		if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
			return err
		}
	}
	if err := r.vm.Set("console", console); err != nil {
		return err
	}

	if err := r.vm.Set("setTimeout", r.jsSetTimeout); err != nil {
		return err
	}
	if err := r.vm.Set("clearTimeout", r.jsClearTimeout); err != nil {
		return err
	}
	// Intervals would keep Execute pumping forever
	return r.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if !r.config.EnableConsole {
			return goja.Undefined()
		}

		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		switch level {
		case "error":
			r.logger.Error(msg, zap.String("source", "console"))
		case "warn":
			r.logger.Warn(msg, zap.String("source", "console"))
		default:
			r.logger.Debug(msg, zap.String("source", "console"))
		}
		return goja.Undefined()
	}
}

// jsNative implements kui.native(name, payload) returning a promise
func (r *Runtime) jsNative(call goja.FunctionCall) goja.Value {
	name := call.Argument(0)
	if goja.IsUndefined(name) || goja.IsNull(name) || name.String() == "" {
		panic(r.vm.NewTypeError("kui.native: binding name required"))
	}
	payload := r.exportPayload(call.Argument(1))
	binding := name.String()

	return r.await(func(ctx context.Context) (interface{}, error) {
		res, err := r.surface.Native(ctx, binding, payload)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}(res), nil
	})
}

// jsVersion implements kui.version() returning a promise
func (r *Runtime) jsVersion(call goja.FunctionCall) goja.Value {
	return r.await(func(ctx context.Context) (interface{}, error) {
		return r.surface.Version(ctx)
	})
}

// await runs fn off the VM goroutine and settles a promise with its result
func (r *Runtime) await(fn func(ctx context.Context) (interface{}, error)) goja.Value {
	promise, resolve, reject := r.vm.NewPromise()
	r.pending++
	ctx := r.callCtx
	gen := r.gen

	go func() {
		value, err := fn(ctx)
		r.post(func() {
			if gen == r.gen {
				r.pending--
			}
			if err != nil {
				reject(r.jsError(err))
				return
			}
			resolve(value)
		})
	}()

	return r.vm.ToValue(promise)
}

// jsError converts a Go error into a JS Error carrying the bridge kind
func (r *Runtime) jsError(err error) goja.Value {
	obj := r.vm.NewGoError(err)
	var be *bridge.Error
	if errors.As(err, &be) {
		_ = obj.Set("kind", string(be.Kind))
		_ = obj.Set("binding", be.Binding)
	}
	return obj
}

func (r *Runtime) exportPayload(v goja.Value) types.Payload {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	m, ok := v.Export().(map[string]interface{})
	if !ok {
		panic(r.vm.NewTypeError("kui.native: payload must be an object"))
	}
	return types.Payload(m)
}

func (r *Runtime) jsSetTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(r.vm.NewTypeError("setTimeout: callback is not a function"))
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}

	r.timerSeq++
	seq := r.timerSeq
	gen := r.gen
	r.pending++
	t := time.AfterFunc(delay, func() {
		r.post(func() {
			if _, live := r.timers[seq]; !live {
				return
			}
			delete(r.timers, seq)
			if gen == r.gen {
				r.pending--
			}
			if _, err := fn(goja.Undefined()); err != nil {
				r.logger.Warn("Timer callback failed", zap.Error(err))
			}
		})
	})
	r.timers[seq] = timer{t: t, gen: gen}
	return r.vm.ToValue(seq)
}

func (r *Runtime) jsClearTimeout(call goja.FunctionCall) goja.Value {
	seq := call.Argument(0).ToInteger()
	if entry, ok := r.timers[seq]; ok {
		entry.t.Stop()
		delete(r.timers, seq)
		if entry.gen == r.gen {
			r.pending--
		}
	}
	return goja.Undefined()
}

// exportValue converts goja value to Go value
func (r *Runtime) exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	if obj, ok := val.(*goja.Object); ok {
		if el := r.elementOf(obj); el != nil {
			return el.OuterHTML()
		}
	}
	return val.Export()
}

// Close cancels in-flight host calls and releases the VM
func (r *Runtime) Close() error {
	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for seq, entry := range r.timers {
		entry.t.Stop()
		delete(r.timers, seq)
	}
	r.vm = nil
	r.console = nil
	return nil
}
