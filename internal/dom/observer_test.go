package dom

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/net/html"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]MutationRecord
}

func (r *recorder) callback(records []MutationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, records)
}

func (r *recorder) records() []MutationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []MutationRecord
	for _, b := range r.batches {
		out = append(out, b...)
	}
	return out
}

func addedTags(records []MutationRecord) []string {
	var tags []string
	for _, rec := range records {
		for _, n := range rec.AddedNodes {
			if n.Type == html.ElementNode {
				tags = append(tags, n.Data)
			}
		}
	}
	return tags
}

func TestObserverSubtreeDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := mustParse(t, `<body><div id="a"></div></body>`)
	rec := &recorder{}
	obs, err := doc.Observe(nil, ObserveOptions{ChildList: true, Subtree: true}, rec.callback)
	require.NoError(t, err)

	a, _ := doc.QuerySelector("#a")
	require.NoError(t, a.AppendHTML(`<p></p>`))
	require.NoError(t, doc.Body().AppendHTML(`<section><img kui_src="x"></section>`))
	require.NoError(t, a.AppendChild(doc.CreateElement("span")))

	obs.Flush()

	records := rec.records()
	require.Len(t, records, 3)
	assert.Equal(t, []string{"p", "section", "span"}, addedTags(records))
	assert.Same(t, a, records[0].Target)
	assert.Same(t, doc.Body(), records[1].Target)

	obs.Disconnect()
	<-obs.Done()
}

func TestObserverWithoutSubtree(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := mustParse(t, `<body><div id="a"><div id="b"></div></div></body>`)
	a, _ := doc.QuerySelector("#a")
	b, _ := doc.QuerySelector("#b")

	rec := &recorder{}
	obs, err := doc.Observe(a, ObserveOptions{ChildList: true}, rec.callback)
	require.NoError(t, err)
	defer func() {
		obs.Disconnect()
		<-obs.Done()
	}()

	require.NoError(t, b.AppendHTML(`<i></i>`))
	require.NoError(t, a.AppendHTML(`<em></em>`))
	obs.Flush()

	assert.Equal(t, []string{"em"}, addedTags(rec.records()))
}

func TestObserverReportsRemovals(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := mustParse(t, `<body><div id="a"><p></p></div></body>`)
	rec := &recorder{}
	obs, err := doc.Observe(nil, ObserveOptions{ChildList: true, Subtree: true}, rec.callback)
	require.NoError(t, err)
	defer func() {
		obs.Disconnect()
		<-obs.Done()
	}()

	p, _ := doc.QuerySelector("p")
	p.Remove()
	obs.Flush()

	records := rec.records()
	require.Len(t, records, 1)
	require.Len(t, records[0].RemovedNodes, 1)
	assert.Same(t, p.Node(), records[0].RemovedNodes[0])
}

func TestObserverIgnoresAttributeChanges(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := mustParse(t, `<body><img></body>`)
	rec := &recorder{}
	obs, err := doc.Observe(nil, ObserveOptions{ChildList: true, Subtree: true}, rec.callback)
	require.NoError(t, err)
	defer func() {
		obs.Disconnect()
		<-obs.Done()
	}()

	img, _ := doc.QuerySelector("img")
	img.SetAttribute("src", "blob:x")
	img.RemoveAttribute("src")
	obs.Flush()

	assert.Empty(t, rec.records())
}

func TestObserverTakeRecords(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := mustParse(t, `<body></body>`)
	block := make(chan struct{})
	var delivered [][]MutationRecord
	var mu sync.Mutex

	obs, err := doc.Observe(nil, ObserveOptions{ChildList: true, Subtree: true}, func(records []MutationRecord) {
		<-block
		mu.Lock()
		delivered = append(delivered, records)
		mu.Unlock()
	})
	require.NoError(t, err)

	// First mutation occupies the callback; the second stays queued
	require.NoError(t, doc.Body().AppendHTML(`<p></p>`))
	require.Eventually(t, func() bool {
		obs.mu.Lock()
		defer obs.mu.Unlock()
		return obs.delivering
	}, time.Second, time.Millisecond)
	require.NoError(t, doc.Body().AppendHTML(`<b></b>`))

	taken := obs.TakeRecords()
	assert.Equal(t, []string{"b"}, addedTags(taken))

	close(block)
	obs.Flush()

	mu.Lock()
	require.Len(t, delivered, 1)
	assert.Equal(t, []string{"p"}, addedTags(delivered[0]))
	mu.Unlock()

	obs.Disconnect()
	<-obs.Done()
}

func TestObserveValidation(t *testing.T) {
	doc := mustParse(t, `<body></body>`)
	other := mustParse(t, `<body></body>`)

	_, err := doc.Observe(nil, ObserveOptions{Subtree: true}, func([]MutationRecord) {})
	assert.Error(t, err)

	_, err = doc.Observe(nil, ObserveOptions{ChildList: true}, nil)
	assert.Error(t, err)

	_, err = doc.Observe(other.Body(), ObserveOptions{ChildList: true}, func([]MutationRecord) {})
	assert.Error(t, err)
}

func TestDisconnectFromCallback(t *testing.T) {
	defer goleak.VerifyNone(t)

	doc := mustParse(t, `<body></body>`)
	var obs *Observer
	ready := make(chan struct{})
	var err error
	obs, err = doc.Observe(nil, ObserveOptions{ChildList: true, Subtree: true}, func([]MutationRecord) {
		<-ready
		obs.Disconnect()
	})
	require.NoError(t, err)
	close(ready)

	require.NoError(t, doc.Body().AppendHTML(`<p></p>`))

	select {
	case <-obs.Done():
	case <-time.After(time.Second):
		t.Fatal("observer did not stop")
	}

	// Mutations after disconnect are not queued
	require.NoError(t, doc.Body().AppendHTML(`<p></p>`))
	assert.Empty(t, obs.TakeRecords())
}
