package upgrade

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/kui/internal/dom"
	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/shared/id"
)

// State is the watcher lifecycle state
type State int32

const (
	StateUninitialized State = iota
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

var (
	ErrAlreadyStarted = errors.New("watcher already started")
	ErrWatcherClosed  = errors.New("watcher closed")
)

// Watcher scans a document once it is loaded and then follows structural
// mutations, handing every placeholder-bearing element to the upgrader.
type Watcher struct {
	id       id.WatcherID
	doc      *dom.Document
	upgrader *Upgrader
	logger   *zap.Logger
	metrics  *monitoring.Metrics

	mu       sync.Mutex
	state    State
	started  bool
	observer *dom.Observer

	stop     chan struct{}
	stopOnce sync.Once
	pending  sync.WaitGroup

	// closed once the initial scan has run or activation was abandoned
	ready     chan struct{}
	readyOnce sync.Once
}

// NewWatcher creates a watcher for doc. The watcher owns the upgrader and
// closes it on Close.
func NewWatcher(doc *dom.Document, upgrader *Upgrader, logger *zap.Logger, metrics *monitoring.Metrics) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	wid := id.NewWatcherID()
	return &Watcher{
		id:       wid,
		doc:      doc,
		upgrader: upgrader,
		logger:   logger.Named("watcher").With(zap.String("watcher_id", wid.String()), zap.String("document_id", doc.ID().String())),
		metrics:  metrics,
		stop:     make(chan struct{}),
		ready:    make(chan struct{}),
	}
}

// ID returns the watcher identifier
func (w *Watcher) ID() id.WatcherID {
	return w.id
}

// State returns the current lifecycle state
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Start activates the watcher immediately if the document is complete,
// otherwise once its load signal fires. Cancelling ctx before load
// abandons activation.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	switch {
	case w.state == StateClosed:
		w.mu.Unlock()
		return ErrWatcherClosed
	case w.started:
		w.mu.Unlock()
		return ErrAlreadyStarted
	}
	w.started = true
	w.mu.Unlock()

	if w.doc.ReadyState() == dom.StateComplete {
		return w.activate()
	}

	w.logger.Debug("Deferring scan until document load")
	w.pending.Add(1)
	go func() {
		defer w.pending.Done()
		select {
		case <-w.doc.Loaded():
			if err := w.activate(); err != nil && !errors.Is(err, ErrWatcherClosed) {
				w.logger.Error("Failed to activate watcher", zap.Error(err))
			}
		case <-ctx.Done():
			w.markReady()
		case <-w.stop:
			w.markReady()
		}
	}()
	return nil
}

func (w *Watcher) markReady() {
	w.readyOnce.Do(func() { close(w.ready) })
}

func (w *Watcher) activate() error {
	defer w.markReady()

	w.mu.Lock()
	if w.state != StateUninitialized {
		w.mu.Unlock()
		return ErrWatcherClosed
	}

	// Subscribe before scanning: an element inserted in between is seen by
	// one or both, and removal-on-read keeps it to a single upgrade.
	obs, err := w.doc.Observe(nil, dom.ObserveOptions{ChildList: true, Subtree: true}, w.onMutations)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.observer = obs
	w.state = StateActive
	w.mu.Unlock()

	w.scan()
	return nil
}

func (w *Watcher) scan() {
	els, err := w.doc.QuerySelectorAll(Selector)
	if err != nil {
		w.logger.Error("Initial scan failed", zap.Error(err))
		return
	}
	submitted := 0
	for _, el := range els {
		submitted += w.upgrader.Upgrade(el)
	}
	w.logger.Debug("Initial scan submitted upgrades",
		zap.Int("elements", len(els)),
		zap.Int("upgrades", submitted))
}

func (w *Watcher) onMutations(records []dom.MutationRecord) {
	w.metrics.IncMutationBatches()
	for _, rec := range records {
		for _, n := range rec.AddedNodes {
			if n.Type != html.ElementNode {
				continue
			}
			el := w.doc.Wrap(n)
			w.upgrader.Upgrade(el)

			nested, err := el.QuerySelectorAll(Selector)
			if err != nil {
				w.logger.Error("Subtree scan failed", zap.Error(err))
				continue
			}
			for _, child := range nested {
				w.upgrader.Upgrade(child)
			}
		}
	}
}

// Settle waits until queued mutation batches are delivered and every
// upgrade submitted up to that point has finished, or ctx is done.
// Upgrades submitted after the flush are not awaited.
func (w *Watcher) Settle(ctx context.Context) error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()

	// A load that already fired may still be activating
	if started && w.doc.ReadyState() == dom.StateComplete {
		select {
		case <-w.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	w.mu.Lock()
	obs := w.observer
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if obs != nil {
			obs.Flush()
		}
		w.upgrader.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops observing, cancels pending upgrades and waits for them
func (w *Watcher) Close() {
	w.mu.Lock()
	w.state = StateClosed
	obs := w.observer
	w.observer = nil
	w.mu.Unlock()

	// Cancel first: a batch in flight may be waiting on upgrades that only
	// end with the upgrader context.
	w.upgrader.Cancel()
	w.stopOnce.Do(func() { close(w.stop) })
	w.pending.Wait()

	if obs != nil {
		obs.Disconnect()
		<-obs.Done()
	}
	w.upgrader.Close()
	w.logger.Debug("Watcher closed")
}
