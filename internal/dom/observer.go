package dom

import (
	"errors"
	"sync"

	"golang.org/x/net/html"
)

// MutationRecord describes one structural change to the tree
type MutationRecord struct {
	// Target is the parent whose children changed; nil for the document node
	Target       *Element
	AddedNodes   []*html.Node
	RemovedNodes []*html.Node
}

// ObserveOptions selects what an observer is notified about. Only child
// list changes are reported; attribute changes never are.
type ObserveOptions struct {
	ChildList bool
	Subtree   bool
}

// MutationCallback receives one batch of records in mutation order
type MutationCallback func(records []MutationRecord)

// Observer delivers batches of mutation records to a callback on its own
// goroutine. Batches arrive in the order the mutations were made.
type Observer struct {
	doc      *Document
	target   *html.Node
	opts     ObserveOptions
	callback MutationCallback

	mu         sync.Mutex
	cond       *sync.Cond
	queue      []MutationRecord
	delivering bool
	stopped    bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// Observe subscribes callback to changes under target. A nil target
// observes the whole document.
func (d *Document) Observe(target *Element, opts ObserveOptions, callback MutationCallback) (*Observer, error) {
	if !opts.ChildList {
		return nil, errors.New("observe: childList must be enabled")
	}
	if callback == nil {
		return nil, errors.New("observe: nil callback")
	}

	node := d.root
	if target != nil {
		if target.doc != d {
			return nil, errors.New("observe: target belongs to another document")
		}
		node = target.node
	}

	o := &Observer{
		doc:      d,
		target:   node,
		opts:     opts,
		callback: callback,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	o.cond = sync.NewCond(&o.mu)

	d.mu.Lock()
	d.observers = append(d.observers, o)
	d.mu.Unlock()

	go o.run()
	return o, nil
}

func (o *Observer) run() {
	defer close(o.done)
	for {
		select {
		case <-o.stop:
			return
		case <-o.wake:
		}

		o.mu.Lock()
		if o.stopped {
			o.mu.Unlock()
			return
		}
		batch := o.queue
		o.queue = nil
		o.delivering = len(batch) > 0
		o.mu.Unlock()

		if len(batch) > 0 {
			o.callback(batch)
		}

		o.mu.Lock()
		o.delivering = false
		o.cond.Broadcast()
		o.mu.Unlock()
	}
}

// enqueue is called with the document lock held, which keeps records in
// mutation order across observers.
func (o *Observer) enqueue(rec MutationRecord) {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.queue = append(o.queue, rec)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *Observer) interested(parent *html.Node) bool {
	if parent == o.target {
		return true
	}
	if !o.opts.Subtree {
		return false
	}
	for n := parent; n != nil; n = n.Parent {
		if n == o.target {
			return true
		}
	}
	return false
}

// Flush blocks until every record queued so far has been delivered. It
// must not be called from the callback.
func (o *Observer) Flush() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for (len(o.queue) > 0 || o.delivering) && !o.stopped {
		o.cond.Wait()
	}
}

// TakeRecords removes and returns records not yet delivered
func (o *Observer) TakeRecords() []MutationRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	records := o.queue
	o.queue = nil
	o.cond.Broadcast()
	return records
}

// Disconnect stops delivery and drops queued records. A batch already
// being delivered runs to completion; Done is closed afterwards.
func (o *Observer) Disconnect() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.queue = nil
	o.cond.Broadcast()
	o.mu.Unlock()
	close(o.stop)

	d := o.doc
	d.mu.Lock()
	for i, other := range d.observers {
		if other == o {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			break
		}
	}
	d.mu.Unlock()
}

// Done is closed once the delivery goroutine has exited
func (o *Observer) Done() <-chan struct{} {
	return o.done
}

// notify fans a structural change out to interested observers. The caller
// holds d.mu for writing.
func (d *Document) notify(parent *html.Node, added, removed []*html.Node) {
	if len(d.observers) == 0 {
		return
	}
	rec := MutationRecord{
		Target:       d.Wrap(parent),
		AddedNodes:   added,
		RemovedNodes: removed,
	}
	for _, o := range d.observers {
		if o.interested(parent) {
			o.enqueue(rec)
		}
	}
}
