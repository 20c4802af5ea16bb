package upgrade

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/GriffinCanCode/kui/internal/dom"
	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/kui/internal/resource"
)

// Placeholder pairs a placeholder attribute with the real attribute it
// becomes once resolved
type Placeholder struct {
	Attr string
	Real string
}

// Placeholders is the declared set of upgrade targets, in processing order
var Placeholders = []Placeholder{
	{Attr: "kui_src", Real: "src"},
	{Attr: "kui_href", Real: "href"},
}

// Selector matches any element carrying a placeholder attribute
const Selector = "[kui_src],[kui_href]"

// Outcome labels recorded per upgrade
const (
	OutcomeCancelled = "cancelled"
)

// Resolver resolves a locator into a loadable reference
type Resolver interface {
	Resolve(ctx context.Context, locator string) (resource.Reference, error)
}

// Options tunes the task group
type Options struct {
	// Timeout bounds each upgrade; zero means no limit
	Timeout time.Duration
	// MaxInFlight limits concurrent upgrades; zero means unlimited
	MaxInFlight int
}

// Upgrader replaces placeholder attributes with resolved references. Each
// placeholder becomes an independent task; completion order is unspecified.
type Upgrader struct {
	resolver Resolver
	logger   *zap.Logger
	metrics  *monitoring.Metrics
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	// slots bounds running resolutions; nil when unlimited
	slots *semaphore.Weighted

	// Submissions hold mu for reading; Wait holds it for writing so the
	// group never sees Go and Wait at the same time.
	mu     sync.RWMutex
	closed bool
}

// NewUpgrader creates an upgrader submitting work to its own task group
func NewUpgrader(resolver Resolver, logger *zap.Logger, metrics *monitoring.Metrics, opts Options) *Upgrader {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	var slots *semaphore.Weighted
	if opts.MaxInFlight > 0 {
		slots = semaphore.NewWeighted(int64(opts.MaxInFlight))
	}
	return &Upgrader{
		resolver: resolver,
		logger:   logger.Named("upgrade"),
		metrics:  metrics,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		group:    new(errgroup.Group),
		slots:    slots,
	}
}

// Upgrade takes every placeholder the element carries and submits one
// resolution task per placeholder. It never blocks on running upgrades and
// reports how many tasks were submitted.
func (u *Upgrader) Upgrade(el *dom.Element) int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.closed {
		return 0
	}

	submitted := 0
	for _, p := range Placeholders {
		// Removal happens here, before resolution, whatever the outcome
		locator, ok := el.TakeAttribute(p.Attr)
		if !ok {
			continue
		}
		u.submit(el, p, locator)
		submitted++
	}
	return submitted
}

func (u *Upgrader) submit(el *dom.Element, p Placeholder, locator string) {
	u.metrics.UpgradeStarted()
	u.group.Go(func() error {
		if u.slots != nil {
			if err := u.slots.Acquire(u.ctx, 1); err != nil {
				u.metrics.UpgradeFinished(p.Attr, OutcomeCancelled)
				u.logger.Debug("Upgrade cancelled while queued", zap.String("locator", locator))
				return nil
			}
			defer u.slots.Release(1)
		}
		if u.ctx.Err() != nil {
			u.metrics.UpgradeFinished(p.Attr, OutcomeCancelled)
			u.logger.Debug("Upgrade cancelled", zap.String("locator", locator))
			return nil
		}

		ctx := u.ctx
		if u.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, u.opts.Timeout)
			defer cancel()
		}

		ref, err := u.resolver.Resolve(ctx, locator)
		if err != nil {
			if errors.Is(err, context.Canceled) && u.ctx.Err() != nil {
				u.metrics.UpgradeFinished(p.Attr, OutcomeCancelled)
				return nil
			}
			u.metrics.UpgradeFinished(p.Attr, monitoring.StatusError)
			u.logger.Error("Failed to resolve",
				zap.String("locator", locator),
				zap.String("attribute", p.Attr),
				zap.String("tag", el.TagName()),
				zap.Error(err))
			return nil
		}

		el.SetAttribute(p.Real, ref.String())
		u.metrics.UpgradeFinished(p.Attr, monitoring.StatusOK)
		u.logger.Debug("Upgraded",
			zap.String("locator", locator),
			zap.String("attribute", p.Real),
			zap.String("ref", ref.String()))
		return nil
	})
}

// Wait blocks until every upgrade submitted before the call has finished.
// Submissions arriving meanwhile wait for it to return.
func (u *Upgrader) Wait() {
	u.mu.Lock()
	defer u.mu.Unlock()
	_ = u.group.Wait()
}

// Cancel cancels queued and running upgrades without waiting for them
func (u *Upgrader) Cancel() {
	u.cancel()
}

// Close cancels pending upgrades, rejects further submissions and waits
// for the running ones to drain
func (u *Upgrader) Close() {
	u.cancel()
	u.mu.Lock()
	u.closed = true
	_ = u.group.Wait()
	u.mu.Unlock()
}
