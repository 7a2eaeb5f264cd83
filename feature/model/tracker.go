package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/Alfresco/SearchServices-sub009/core/index"
	"github.com/Alfresco/SearchServices-sub009/core/reconcile"
	"github.com/Alfresco/SearchServices-sub009/core/repo"

	"go.uber.org/zap"
)

// Name is the tracker name used by the scheduler and admin routes.
const Name = "model"

// Tracker stores data-model definitions and keeps the Registry current.
// Models carry no id log, so each cycle pages through a snapshot taken in
// BeforeCycle.
type Tracker struct {
	src      repo.ModelSource
	sink     index.Sink
	registry *Registry
	log      *zap.Logger

	pending []repo.Model
}

var (
	_ reconcile.Adapter    = (*Tracker)(nil)
	_ reconcile.CycleHooks = (*Tracker)(nil)
)

func New(src repo.ModelSource, sink index.Sink, registry *Registry, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{src: src, sink: sink, registry: registry, log: log.With(zap.String("tracker", Name))}
}

func (t *Tracker) Name() string                 { return Name }
func (t *Tracker) Kind() reconcile.Kind         { return reconcile.KindModel }
func (t *Tracker) Space() (index.IDSpace, bool) { return "", false }

func (t *Tracker) BeforeCycle(ctx context.Context) error {
	models, err := t.src.GetModels(ctx)
	if err != nil {
		return err
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	t.pending = models
	return nil
}

// AfterCycle registers the snapshot once every batch of the cycle has
// committed. A failed cycle leaves the registry as it was.
func (t *Tracker) AfterCycle(ctx context.Context, res reconcile.CycleResult) error {
	for _, m := range t.pending {
		t.registry.Put(m)
	}
	t.pending = nil
	return nil
}

// Fetch pages the snapshot by position; unit ids are 1-based positions.
func (t *Tracker) Fetch(ctx context.Context, after int64, limit int) ([]reconcile.Unit, error) {
	var units []reconcile.Unit
	for i := int(after); i < len(t.pending) && len(units) < limit; i++ {
		units = append(units, reconcile.Unit{ID: int64(i + 1), Payload: t.pending[i]})
	}
	return units, nil
}

// Apply writes the model document when the checksum changed.
func (t *Tracker) Apply(ctx context.Context, u reconcile.Unit, b *index.Batch) (reconcile.Outcome, error) {
	m, ok := u.Payload.(repo.Model)
	if !ok {
		return reconcile.Outcome{}, fmt.Errorf("model: unexpected payload %T", u.Payload)
	}
	current, err := t.sink.Get(ctx, index.ModelKey(m.Name))
	switch {
	case err == nil && current.Checksum == m.Checksum:
		return reconcile.Outcome{Skipped: 1}, nil
	case err != nil && !errors.Is(err, index.ErrNotFound):
		return reconcile.Outcome{}, err
	}

	b.Upsert(Document(m))
	t.log.Info("Model updated", zap.String("model", m.Name), zap.String("checksum", m.Checksum))
	return reconcile.Outcome{Written: 1}, nil
}

// Document renders m as a MODEL! document: each property maps to its data
// type and indexed flag.
func Document(m repo.Model) index.Document {
	props := make(map[string][]string, len(m.Properties))
	for _, p := range m.Properties {
		props[p.QName] = []string{p.DataType, strconv.FormatBool(p.Indexed)}
	}
	return index.Document{
		Key:        index.ModelKey(m.Name),
		Type:       index.DocModel,
		Checksum:   m.Checksum,
		Properties: props,
	}
}

// FromDocument is the inverse of Document.
func FromDocument(d index.Document) repo.Model {
	m := repo.Model{Name: d.Key[len(index.PrefixModel):], Checksum: d.Checksum}
	for qname, v := range d.Properties {
		def := repo.PropertyDef{QName: qname, Indexed: true}
		if len(v) > 0 {
			def.DataType = v[0]
		}
		if len(v) > 1 {
			def.Indexed, _ = strconv.ParseBool(v[1])
		}
		m.Properties = append(m.Properties, def)
	}
	sort.Slice(m.Properties, func(i, j int) bool { return m.Properties[i].QName < m.Properties[j].QName })
	return m
}

// Restore loads every stored model into the registry, so the metadata tracker
// filters properties before the first model cycle has run.
func Restore(ctx context.Context, sink index.Sink, registry *Registry) (int, error) {
	docs, err := sink.Find(ctx, index.Query{Type: index.DocModel})
	if err != nil {
		return 0, err
	}
	for _, d := range docs {
		registry.Put(FromDocument(d))
	}
	return len(docs), nil
}
