package resource

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/kui/internal/infrastructure/monitoring"
)

// ErrTableClosed is returned when creating a resource after the owning
// document was unloaded.
var ErrTableClosed = errors.New("resource table closed")

// Reference is a loadable URL naming a derived resource,
// of the form blob:<origin>/<uuid>.
type Reference string

func (r Reference) String() string { return string(r) }

// Blob is the decoded content behind a reference
type Blob struct {
	Data    []byte
	MIME    string
	Created time.Time
}

// Size returns the content length in bytes
func (b *Blob) Size() int { return len(b.Data) }

// Table owns the derived resources of one document
type Table struct {
	origin  string
	prefix  string
	metrics *monitoring.Metrics

	mu     sync.RWMutex
	blobs  map[string]*Blob
	closed bool
}

// NewTable creates an empty table minting references under origin
func NewTable(origin string, metrics *monitoring.Metrics) *Table {
	origin = strings.TrimSuffix(origin, "/")
	return &Table{
		origin:  origin,
		prefix:  "blob:" + origin + "/",
		metrics: metrics,
		blobs:   make(map[string]*Blob),
	}
}

// Origin returns the origin references are minted under
func (t *Table) Origin() string {
	return t.origin
}

// Create stores data under a fresh random name
func (t *Table) Create(data []byte, mime string) (Reference, error) {
	name := uuid.NewString()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", ErrTableClosed
	}
	t.blobs[name] = &Blob{Data: data, MIME: mime, Created: time.Now()}
	n := len(t.blobs)
	t.mu.Unlock()

	t.metrics.SetDerivedResources(n)
	return Reference(t.prefix + name), nil
}

// Lookup returns the blob behind ref
func (t *Table) Lookup(ref Reference) (*Blob, bool) {
	name, ok := t.ID(ref)
	if !ok {
		return nil, false
	}
	return t.LookupID(name)
}

// LookupID returns the blob stored under the bare name
func (t *Table) LookupID(name string) (*Blob, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.blobs[name]
	return b, ok
}

// Reference builds the reference this table mints for a bare name
func (t *Table) Reference(name string) Reference {
	return Reference(t.prefix + name)
}

// ID extracts the bare name from a reference minted by this table
func (t *Table) ID(ref Reference) (string, bool) {
	s := string(ref)
	if !strings.HasPrefix(s, t.prefix) {
		return "", false
	}
	name := s[len(t.prefix):]
	return name, name != ""
}

// Release frees one derived resource. It reports whether ref was live.
func (t *Table) Release(ref Reference) bool {
	name, ok := t.ID(ref)
	if !ok {
		return false
	}

	t.mu.Lock()
	_, ok = t.blobs[name]
	delete(t.blobs, name)
	n := len(t.blobs)
	t.mu.Unlock()

	if ok {
		t.metrics.SetDerivedResources(n)
	}
	return ok
}

// Len returns the number of live resources
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.blobs)
}

// Close releases every resource and rejects further creation
func (t *Table) Close() {
	t.mu.Lock()
	t.closed = true
	t.blobs = make(map[string]*Blob)
	t.mu.Unlock()

	t.metrics.SetDerivedResources(0)
}
