package sqlsink

import (
	"time"

	"github.com/Alfresco/SearchServices-sub009/core/index"

	"gorm.io/gorm"
)

// DocumentRow stores one index document. Filterable fields are lifted into
// columns; the full document lives in Body.
type DocumentRow struct {
	DocKey         string `gorm:"primaryKey;size:191"`
	DocType        string `gorm:"size:16;index"`
	NodeID         int64  `gorm:"index"`
	NodeRef        string `gorm:"size:191;index"`
	TxnID          int64  `gorm:"index"`
	AclID          int64  `gorm:"index"`
	AclChangeSetID int64  `gorm:"index"`
	ContentStatus  string `gorm:"size:16;index"`
	CascadePending bool   `gorm:"index"`
	Revision       int64
	UpdatedAt      time.Time

	Body index.Document `gorm:"type:text;serializer:json"`
}

func (DocumentRow) TableName() string { return "index_documents" }

// WatermarkRow is the committed watermark of one id space.
type WatermarkRow struct {
	Space            string `gorm:"primaryKey;size:16"`
	LastIndexedID    int64  `gorm:"not null"`
	LastCommitTimeMs int64  `gorm:"not null"`
	UpdatedAt        time.Time
}

func (WatermarkRow) TableName() string { return "index_watermarks" }

// GenerationRow is a single-row commit counter.
type GenerationRow struct {
	ID         int   `gorm:"primaryKey;autoIncrement:false"`
	Generation int64 `gorm:"not null"`
}

func (GenerationRow) TableName() string { return "index_generation" }

func toRow(d index.Document) DocumentRow {
	return DocumentRow{
		DocKey:         d.Key,
		DocType:        string(d.Type),
		NodeID:         d.NodeID,
		NodeRef:        d.NodeRef,
		TxnID:          d.TxnID,
		AclID:          d.AclID,
		AclChangeSetID: d.AclChangeSetID,
		ContentStatus:  string(d.ContentStatus),
		CascadePending: d.CascadePending,
		Revision:       d.Revision,
		Body:           d,
		UpdatedAt:      d.UpdatedAt,
	}
}

// Migrate creates the index tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&DocumentRow{}, &WatermarkRow{}, &GenerationRow{})
}
