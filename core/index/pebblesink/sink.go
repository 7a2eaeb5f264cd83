package pebblesink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/Alfresco/SearchServices-sub009/core/index"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const (
	docPrefix       = "d/"
	watermarkPrefix = "w/"
	generationKey   = "g"
)

// typePrefixes narrows a scan to one document type.
var typePrefixes = map[index.DocType]string{
	index.DocNode:  index.PrefixNode,
	index.DocError: index.PrefixError,
	index.DocAcl:   index.PrefixAcl,
	index.DocAclTx: index.PrefixAclTx,
	index.DocTx:    index.PrefixTx,
	index.DocModel: index.PrefixModel,
	index.DocState: index.PrefixState,
}

// Options configures Open.
type Options struct {
	// FS overrides the filesystem, e.g. vfs.NewMem() in tests.
	FS vfs.FS
}

// Sink keeps index documents in a pebble LSM store.
type Sink struct {
	db *pebble.DB
	mu sync.Mutex
}

var _ index.Sink = (*Sink)(nil)

// Open opens or creates the store at path.
func Open(path string, opts Options) (*Sink, error) {
	po := &pebble.Options{}
	if opts.FS != nil {
		po.FS = opts.FS
	}
	db, err := pebble.Open(path, po)
	if err != nil {
		return nil, fmt.Errorf("index: open pebble %s: %w", path, err)
	}
	return &Sink{db: db}, nil
}

func (s *Sink) NewBatch() *index.Batch {
	return index.NewBatch(s)
}

func (s *Sink) CommitStaged(ctx context.Context, st index.Staged) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return 0, index.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if st.Watermark != nil {
		current, err := s.watermark(st.Watermark.Space)
		if err != nil {
			return 0, &index.CommitError{Ops: len(st.Ops), Err: err}
		}
		if err := index.CheckAdvance(current, *st.Watermark); err != nil {
			return 0, err
		}
	}

	gen, err := s.generation()
	if err != nil {
		return 0, &index.CommitError{Ops: len(st.Ops), Err: err}
	}
	gen++

	ops, err := index.Resolve(st.Ops, s.revision)
	if err != nil {
		return 0, &index.CommitError{Ops: len(st.Ops), Err: err}
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	stage := func() error {
		for _, op := range ops {
			key := []byte(docPrefix + op.Key)
			if op.Doc == nil {
				if err := batch.Delete(key, nil); err != nil {
					return err
				}
				continue
			}
			d := *op.Doc
			d.Revision = gen
			if err := setJSON(batch, key, &d); err != nil {
				return err
			}
		}
		if w := st.Watermark; w != nil {
			marker := w.Document()
			marker.Revision = gen
			if err := setJSON(batch, []byte(docPrefix+marker.Key), &marker); err != nil {
				return err
			}
			if err := setJSON(batch, []byte(watermarkPrefix+string(w.Space)), w); err != nil {
				return err
			}
		}
		return batch.Set([]byte(generationKey), []byte(strconv.FormatInt(gen, 10)), nil)
	}
	if err := stage(); err != nil {
		return 0, &index.CommitError{Ops: len(st.Ops), Err: err}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, &index.CommitError{Ops: len(st.Ops), Err: err}
	}
	return gen, nil
}

func setJSON(b *pebble.Batch, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Set(key, data, nil)
}

// get copies the value under key; found is false for an absent key.
func (s *Sink) get(key string) (value []byte, found bool, err error) {
	if s.db == nil {
		return nil, false, index.ErrClosed
	}
	v, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), true, nil
}

func (s *Sink) watermark(space index.IDSpace) (index.Watermark, error) {
	v, found, err := s.get(watermarkPrefix + string(space))
	if err != nil || !found {
		return index.Watermark{Space: space}, err
	}
	var w index.Watermark
	if err := json.Unmarshal(v, &w); err != nil {
		return index.Watermark{}, fmt.Errorf("decode watermark %s: %w", space, err)
	}
	return w, nil
}

// revision reports the stored revision of the document under key.
func (s *Sink) revision(key string) (int64, bool, error) {
	v, found, err := s.get(docPrefix + key)
	if err != nil || !found {
		return 0, false, err
	}
	var d struct {
		Revision int64 `json:"revision"`
	}
	if err := json.Unmarshal(v, &d); err != nil {
		return 0, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return d.Revision, true, nil
}

func (s *Sink) generation() (int64, error) {
	v, found, err := s.get(generationKey)
	if err != nil || !found {
		return 0, err
	}
	return strconv.ParseInt(string(v), 10, 64)
}

func (s *Sink) Get(ctx context.Context, key string) (index.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, found, err := s.get(docPrefix + key)
	if err != nil {
		return index.Document{}, fmt.Errorf("index: get %s: %w", key, err)
	}
	if !found {
		return index.Document{}, index.ErrNotFound
	}
	var d index.Document
	if err := json.Unmarshal(v, &d); err != nil {
		return index.Document{}, fmt.Errorf("index: decode %s: %w", key, err)
	}
	return d, nil
}

// prefixUpperBound returns the smallest key greater than every key with prefix p.
func prefixUpperBound(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func (s *Sink) Find(ctx context.Context, q index.Query) ([]index.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, index.ErrClosed
	}
	prefix := []byte(docPrefix + typePrefixes[q.Type])
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("index: find: %w", err)
	}
	defer iter.Close()

	var out []index.Document
	for valid := iter.First(); valid; valid = iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var d index.Document
		if err := json.Unmarshal(iter.Value(), &d); err != nil {
			return nil, fmt.Errorf("index: decode %s: %w", iter.Key(), err)
		}
		if q.Matches(&d) {
			out = append(out, d)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("index: find: %w", err)
	}
	return q.SortAndLimit(out), nil
}

func (s *Sink) Count(ctx context.Context, q index.Query) (int, error) {
	q.Limit = 0
	docs, err := s.Find(ctx, q)
	return len(docs), err
}

func (s *Sink) Watermark(ctx context.Context, space index.IDSpace) (index.Watermark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.watermark(space)
	if err != nil {
		return index.Watermark{}, fmt.Errorf("index: watermark %s: %w", space, err)
	}
	return w, nil
}

func (s *Sink) LastCommittedGeneration(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation()
}

// Close flushes and closes the store. Later calls return ErrClosed.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
