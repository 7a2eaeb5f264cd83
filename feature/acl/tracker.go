package acl

import (
	"context"
	"errors"
	"fmt"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/repo"

	"go.uber.org/zap"
)

// Name is the tracker name used by the scheduler and admin routes.
const Name = "acl"

// Tracker indexes ACL change-sets. ACLs are never routed: every shard holds
// the reader documents of every ACL.
type Tracker struct {
	src  repo.Source
	sink index.Sink
	log  *zap.Logger
}

var (
	_ reconcile.Adapter   = (*Tracker)(nil)
	_ reconcile.Reindexer = (*Tracker)(nil)
)

// New returns an ACL tracker reading from src. sink is only read, to keep the
// change-set of an ACL indexed out of band.
func New(src repo.Source, sink index.Sink, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{src: src, sink: sink, log: log.With(zap.String("tracker", Name))}
}

func (t *Tracker) Name() string { return Name }

func (t *Tracker) Kind() reconcile.Kind { return reconcile.KindAcl }

func (t *Tracker) Space() (index.IDSpace, bool) { return index.SpaceAclTx, true }

func (t *Tracker) Fetch(ctx context.Context, after int64, limit int) ([]reconcile.Unit, error) {
	sets, err := t.src.GetAclChangeSets(ctx, after, limit)
	if err != nil {
		return nil, err
	}
	units := make([]reconcile.Unit, 0, len(sets))
	for _, cs := range sets {
		units = append(units, reconcile.Unit{ID: cs.ID, CommitTimeMs: cs.CommitTimeMs, Payload: cs})
	}
	return units, nil
}

// Apply writes one document per ACL of the change-set and the ACLTX marker.
// Any repository error aborts the cycle: an ACL is never half indexed.
func (t *Tracker) Apply(ctx context.Context, u reconcile.Unit, b *index.Batch) (reconcile.Outcome, error) {
	cs, ok := u.Payload.(repo.AclChangeSet)
	if !ok {
		return reconcile.Outcome{}, fmt.Errorf("acl: unexpected payload %T", u.Payload)
	}
	return t.indexChangeSet(ctx, cs, b)
}

func (t *Tracker) indexChangeSet(ctx context.Context, cs repo.AclChangeSet, b *index.Batch) (reconcile.Outcome, error) {
	var out reconcile.Outcome
	acls, err := t.src.GetAcls(ctx, cs.ID)
	if err != nil {
		return out, err
	}
	for _, a := range acls {
		r, err := t.src.GetAclReaders(ctx, a.ID)
		if err != nil {
			return out, err
		}
		b.Upsert(aclDocument(a.ID, cs.ID, r))
		out.Written++
	}
	b.Upsert(index.Document{
		Key:            index.AclTxKey(cs.ID),
		Type:           index.DocAclTx,
		AclChangeSetID: cs.ID,
		CommitTimeMs:   cs.CommitTimeMs,
		Value:          int64(len(acls)),
	})
	return out, nil
}

// aclDocument replaces both authority lists of the ACL.
func aclDocument(aclID, changeSetID int64, r repo.AclReaders) index.Document {
	return index.Document{
		Key:            index.AclKey(aclID),
		Type:           index.DocAcl,
		AclID:          aclID,
		AclChangeSetID: changeSetID,
		Readers:        dedupe(r.Readers),
		Denied:         dedupe(r.Denied),
	}
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (t *Tracker) Handles(kind reconcile.TargetKind) bool {
	return kind == reconcile.TargetAcl || kind == reconcile.TargetAclChangeSet
}

// Reindex rewrites one ACL or every ACL of a change-set.
//
// For a single ACL, ModeReindex drops the document first so an ACL the
// repository no longer knows disappears; ModeIndex requires the ACL to exist.
func (t *Tracker) Reindex(ctx context.Context, target reconcile.Target, mode reconcile.Mode, b *index.Batch) (reconcile.Outcome, error) {
	switch target.Kind {
	case reconcile.TargetAclChangeSet:
		cs, err := repo.GetAclChangeSet(ctx, t.src, target.ID)
		if err != nil {
			return reconcile.Outcome{}, err
		}
		return t.indexChangeSet(ctx, cs, b)

	case reconcile.TargetAcl:
		var out reconcile.Outcome
		changeSet, err := t.changeSetOf(ctx, target.ID)
		if err != nil {
			return out, err
		}
		if mode == reconcile.ModeReindex {
			b.Delete(index.AclKey(target.ID))
		}
		r, err := t.src.GetAclReaders(ctx, target.ID)
		switch {
		case errors.Is(err, repo.ErrNotFound) && mode == reconcile.ModeReindex:
			out.Deleted++
			return out, nil
		case err != nil:
			return out, err
		}
		b.Upsert(aclDocument(target.ID, changeSet, r))
		out.Written++
		return out, nil
	}
	return reconcile.Outcome{}, fmt.Errorf("%w: %s", reconcile.ErrNoHandler, target.Kind)
}

// changeSetOf returns the change-set recorded for an indexed ACL, or 0.
func (t *Tracker) changeSetOf(ctx context.Context, aclID int64) (int64, error) {
	if t.sink == nil {
		return 0, nil
	}
	doc, err := t.sink.Get(ctx, index.AclKey(aclID))
	if errors.Is(err, index.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.AclChangeSetID, nil
}
