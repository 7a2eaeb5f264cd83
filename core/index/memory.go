package index

import (
	"context"
	"sync"
)

// MemorySink keeps documents in a map. Commits are serialised by a mutex.
type MemorySink struct {
	mu         sync.RWMutex
	docs       map[string]Document
	watermarks map[IDSpace]Watermark
	generation int64
	closed     bool

	// failCommit, when set, is returned by the next commit instead of applying it.
	failCommit error
}

var _ Sink = (*MemorySink)(nil)

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		docs:       make(map[string]Document),
		watermarks: make(map[IDSpace]Watermark),
	}
}

// FailNextCommit makes the next commit fail with err without applying anything.
func (m *MemorySink) FailNextCommit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCommit = err
}

func (m *MemorySink) NewBatch() *Batch {
	return NewBatch(m)
}

func (m *MemorySink) CommitStaged(ctx context.Context, s Staged) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	if err := m.failCommit; err != nil {
		m.failCommit = nil
		return 0, &CommitError{Ops: len(s.Ops), Err: err}
	}
	if s.Watermark != nil {
		if err := CheckAdvance(m.watermarks[s.Watermark.Space], *s.Watermark); err != nil {
			return 0, err
		}
	}

	ops, err := Resolve(s.Ops, func(key string) (int64, bool, error) {
		d, ok := m.docs[key]
		return d.Revision, ok, nil
	})
	if err != nil {
		return 0, &CommitError{Ops: len(s.Ops), Err: err}
	}

	gen := m.generation + 1
	for _, op := range ops {
		if op.Doc == nil {
			delete(m.docs, op.Key)
			continue
		}
		d := cloneDoc(*op.Doc)
		d.Revision = gen
		m.docs[op.Key] = d
	}
	if s.Watermark != nil {
		m.watermarks[s.Watermark.Space] = *s.Watermark
		marker := s.Watermark.Document()
		marker.Revision = gen
		m.docs[s.Watermark.Space.Key()] = marker
	}
	m.generation = gen
	return gen, nil
}

func (m *MemorySink) Get(ctx context.Context, key string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.docs[key]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDoc(d), nil
}

func (m *MemorySink) Find(ctx context.Context, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Document
	for _, d := range m.docs {
		if q.Matches(&d) {
			out = append(out, cloneDoc(d))
		}
	}
	return q.SortAndLimit(out), nil
}

func (m *MemorySink) Count(ctx context.Context, q Query) (int, error) {
	q.Limit = 0
	docs, err := m.Find(ctx, q)
	return len(docs), err
}

func (m *MemorySink) Watermark(ctx context.Context, space IDSpace) (Watermark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.watermarks[space]
	if !ok {
		return Watermark{Space: space}, nil
	}
	return w, nil
}

func (m *MemorySink) LastCommittedGeneration(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation, nil
}

func (m *MemorySink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// cloneDoc copies the slices and maps of d so callers cannot alias stored state.
func cloneDoc(d Document) Document {
	d.Ancestors = append([]string(nil), d.Ancestors...)
	d.Readers = append([]string(nil), d.Readers...)
	d.Denied = append([]string(nil), d.Denied...)
	d.ContentProps = append([]string(nil), d.ContentProps...)
	if d.Properties != nil {
		props := make(map[string][]string, len(d.Properties))
		for k, v := range d.Properties {
			props[k] = append([]string(nil), v...)
		}
		d.Properties = props
	}
	if d.Content != nil {
		content := make(map[string]string, len(d.Content))
		for k, v := range d.Content {
			content[k] = v
		}
		d.Content = content
	}
	if d.ContentURLs != nil {
		urls := make(map[string]string, len(d.ContentURLs))
		for k, v := range d.ContentURLs {
			urls[k] = v
		}
		d.ContentURLs = urls
	}
	return d
}
