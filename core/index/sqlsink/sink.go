package sqlsink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Alfresco/SearchServices-sub009/core/index"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 200

// Sink persists index documents in a relational database.
type Sink struct {
	db *gorm.DB
	// mu serialises commits issued through this process.
	mu     sync.Mutex
	closed bool
}

var _ index.Sink = (*Sink)(nil)

// New migrates the index tables and returns a sink on db.
func New(db *gorm.DB) (*Sink, error) {
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("index: migrate: %w", err)
	}
	return &Sink{db: db}, nil
}

// Open returns a sink on an already migrated database.
func Open(db *gorm.DB) *Sink {
	return &Sink{db: db}
}

func (s *Sink) NewBatch() *index.Batch {
	return index.NewBatch(s)
}

func (s *Sink) CommitStaged(ctx context.Context, st index.Staged) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, index.ErrClosed
	}

	var generation int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if st.Watermark != nil {
			current, err := loadWatermark(tx, st.Watermark.Space)
			if err != nil {
				return err
			}
			if err := index.CheckAdvance(current, *st.Watermark); err != nil {
				return err
			}
		}

		var g GenerationRow
		if err := tx.Where(GenerationRow{ID: 1}).FirstOrCreate(&g).Error; err != nil {
			return err
		}
		g.Generation++

		ops, err := index.Resolve(st.Ops, func(key string) (int64, bool, error) {
			return loadRevision(tx, key)
		})
		if err != nil {
			return err
		}

		var deletes []string
		var upserts []DocumentRow
		for _, op := range ops {
			if op.Doc == nil {
				deletes = append(deletes, op.Key)
				continue
			}
			d := *op.Doc
			d.Revision = g.Generation
			upserts = append(upserts, toRow(d))
		}
		if st.Watermark != nil {
			marker := st.Watermark.Document()
			marker.Revision = g.Generation
			upserts = append(upserts, toRow(marker))
		}

		if len(deletes) > 0 {
			if err := tx.Where("doc_key IN ?", deletes).Delete(&DocumentRow{}).Error; err != nil {
				return err
			}
		}
		if len(upserts) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(&upserts, insertBatchSize).Error; err != nil {
				return err
			}
		}
		if w := st.Watermark; w != nil {
			row := WatermarkRow{
				Space:            string(w.Space),
				LastIndexedID:    w.LastIndexedID,
				LastCommitTimeMs: w.LastCommitTimeMs,
				UpdatedAt:        w.UpdatedAt,
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return err
			}
		}

		if err := tx.Save(&g).Error; err != nil {
			return err
		}
		generation = g.Generation
		return nil
	})
	if err != nil {
		if errors.Is(err, index.ErrWatermarkRegression) {
			return 0, err
		}
		return 0, &index.CommitError{Ops: len(st.Ops), Err: err}
	}
	return generation, nil
}

func loadRevision(tx *gorm.DB, key string) (int64, bool, error) {
	var row DocumentRow
	err := tx.Select("doc_key", "revision").Where("doc_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return row.Revision, true, nil
}

func loadWatermark(tx *gorm.DB, space index.IDSpace) (index.Watermark, error) {
	var row WatermarkRow
	err := tx.Where("space = ?", string(space)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return index.Watermark{Space: space}, nil
	}
	if err != nil {
		return index.Watermark{}, err
	}
	return index.Watermark{
		Space:            space,
		LastIndexedID:    row.LastIndexedID,
		LastCommitTimeMs: row.LastCommitTimeMs,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

func (s *Sink) Get(ctx context.Context, key string) (index.Document, error) {
	var row DocumentRow
	err := s.db.WithContext(ctx).Where("doc_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return index.Document{}, index.ErrNotFound
	}
	if err != nil {
		return index.Document{}, fmt.Errorf("index: get %s: %w", key, err)
	}
	return row.Body, nil
}

// filter narrows the statement by every column-backed field of q.
func filter(tx *gorm.DB, q index.Query) *gorm.DB {
	if q.Type != "" {
		tx = tx.Where("doc_type = ?", string(q.Type))
	}
	if q.NodeID != 0 {
		tx = tx.Where("node_id = ?", q.NodeID)
	}
	if q.NodeRef != "" {
		tx = tx.Where("node_ref = ?", q.NodeRef)
	}
	if q.TxnID != 0 {
		tx = tx.Where("txn_id = ?", q.TxnID)
	}
	if q.AclID != 0 {
		tx = tx.Where("acl_id = ?", q.AclID)
	}
	if q.AclChangeSetID != 0 {
		tx = tx.Where("acl_change_set_id = ?", q.AclChangeSetID)
	}
	if q.ContentStatus != "" {
		tx = tx.Where("content_status = ?", string(q.ContentStatus))
	}
	if q.CascadePending {
		tx = tx.Where("cascade_pending = ?", true)
	}
	if q.AfterNodeID != 0 {
		tx = tx.Where("node_id > ?", q.AfterNodeID)
	}
	return tx
}

// inMemory reports whether q has fields that can only be evaluated on the decoded body.
func inMemory(q index.Query) bool {
	return q.Reader != "" || q.Ancestor != "" || q.Text != ""
}

func (s *Sink) Find(ctx context.Context, q index.Query) ([]index.Document, error) {
	tx := filter(s.db.WithContext(ctx).Model(&DocumentRow{}), q).Order("node_id").Order("doc_key")
	if q.Limit > 0 && !inMemory(q) {
		tx = tx.Limit(q.Limit)
	}

	var rows []DocumentRow
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("index: find: %w", err)
	}
	out := make([]index.Document, 0, len(rows))
	for i := range rows {
		if q.Matches(&rows[i].Body) {
			out = append(out, rows[i].Body)
		}
	}
	return q.SortAndLimit(out), nil
}

func (s *Sink) Count(ctx context.Context, q index.Query) (int, error) {
	if inMemory(q) {
		q.Limit = 0
		docs, err := s.Find(ctx, q)
		return len(docs), err
	}
	var n int64
	if err := filter(s.db.WithContext(ctx).Model(&DocumentRow{}), q).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return int(n), nil
}

func (s *Sink) Watermark(ctx context.Context, space index.IDSpace) (index.Watermark, error) {
	w, err := loadWatermark(s.db.WithContext(ctx), space)
	if err != nil {
		return index.Watermark{}, fmt.Errorf("index: watermark %s: %w", space, err)
	}
	return w, nil
}

func (s *Sink) LastCommittedGeneration(ctx context.Context) (int64, error) {
	var g GenerationRow
	err := s.db.WithContext(ctx).Where("id = ?", 1).Take(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("index: generation: %w", err)
	}
	return g.Generation, nil
}

// Close stops further commits and closes the connection pool.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
