package index

import (
	"context"
	"time"
)

// Guard makes a staged op conditional on the stored state of a document.
type Guard struct {
	Key      string
	Revision int64
}

// GuardOf holds while d is still the stored version of its key.
func GuardOf(d Document) *Guard {
	return &Guard{Key: d.Key, Revision: d.Revision}
}

// Op is one staged write. A nil Doc deletes Key.
type Op struct {
	Key string
	Doc *Document
	// If, when set, drops the op at commit unless the document under If.Key
	// exists with revision If.Revision.
	If *Guard
}

// Resolve returns the ops whose guard holds. revision reports the stored
// revision of a key and whether the key exists. Guards are evaluated against
// the state before any op of the batch is applied.
func Resolve(ops []Op, revision func(key string) (int64, bool, error)) ([]Op, error) {
	type state struct {
		rev   int64
		found bool
	}
	seen := make(map[string]state)
	kept := ops[:0:0]
	for _, op := range ops {
		if op.If == nil {
			kept = append(kept, op)
			continue
		}
		st, ok := seen[op.If.Key]
		if !ok {
			rev, found, err := revision(op.If.Key)
			if err != nil {
				return nil, err
			}
			st = state{rev: rev, found: found}
			seen[op.If.Key] = st
		}
		if st.found && st.rev == op.If.Revision {
			kept = append(kept, op)
		}
	}
	return kept, nil
}

// Staged is what a Batch hands to its sink on commit.
// Ops are applied in order; Watermark, when set, is applied after all of them.
// Every written document is stamped with the commit generation as its Revision.
type Staged struct {
	Ops       []Op
	Watermark *Watermark
}

// Committer applies a staged batch atomically and returns the new generation.
// Implementations must reject a watermark regression without applying any op.
type Committer interface {
	CommitStaged(ctx context.Context, s Staged) (int64, error)
}

// Batch collects writes for a single atomic commit. The last write to a key wins.
// A Batch is not safe for concurrent use; each cycle owns its own.
type Batch struct {
	c    Committer
	ops  []Op
	pos  map[string]int
	mark *Watermark
	now  func() time.Time
}

// NewBatch returns an empty batch committing through c.
func NewBatch(c Committer) *Batch {
	return &Batch{c: c, pos: make(map[string]int), now: time.Now}
}

func (b *Batch) stage(op Op) {
	if i, ok := b.pos[op.Key]; ok {
		b.ops[i] = op
		return
	}
	b.pos[op.Key] = len(b.ops)
	b.ops = append(b.ops, op)
}

// stageIf stages op under g. Rewriting a key this batch already staged keeps
// the guard of the earlier write, since the new value derives from it.
func (b *Batch) stageIf(op Op, g *Guard) {
	if i, ok := b.pos[op.Key]; ok {
		op.If = b.ops[i].If
		b.ops[i] = op
		return
	}
	op.If = g
	b.stage(op)
}

// Upsert stages doc, replacing any earlier write to the same key.
func (b *Batch) Upsert(doc Document) {
	doc.UpdatedAt = b.now().UTC()
	b.stage(Op{Key: doc.Key, Doc: &doc})
}

// UpsertIf stages doc to be written only while g holds at commit. Trackers
// that rewrite a document they read use it so a concurrent commit of the
// same document wins.
func (b *Batch) UpsertIf(doc Document, g *Guard) {
	doc.UpdatedAt = b.now().UTC()
	b.stageIf(Op{Key: doc.Key, Doc: &doc}, g)
}

// Delete stages the removal of key.
func (b *Batch) Delete(key string) {
	b.stage(Op{Key: key})
}

// DeleteIf stages the removal of key, applied only while g holds at commit.
func (b *Batch) DeleteIf(key string, g *Guard) {
	b.stageIf(Op{Key: key}, g)
}

// SetWatermark stages a watermark advance. It is written after every document.
func (b *Batch) SetWatermark(w Watermark) {
	w.UpdatedAt = b.now().UTC()
	b.mark = &w
}

// Lookup returns the staged state of key: the document (nil when deleted) and
// whether the batch touches key at all.
func (b *Batch) Lookup(key string) (*Document, bool) {
	i, ok := b.pos[key]
	if !ok {
		return nil, false
	}
	return b.ops[i].Doc, true
}

// Len is the number of staged document operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Empty reports whether committing would change nothing.
func (b *Batch) Empty() bool {
	return len(b.ops) == 0 && b.mark == nil
}

// Commit applies the batch atomically and resets it.
func (b *Batch) Commit(ctx context.Context) (int64, error) {
	s := Staged{Ops: b.ops, Watermark: b.mark}
	gen, err := b.c.CommitStaged(ctx, s)
	if err != nil {
		return 0, err
	}
	b.ops = nil
	b.pos = make(map[string]int)
	b.mark = nil
	return gen, nil
}
