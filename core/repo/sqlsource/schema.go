package sqlsource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Alfresco/SearchServices-sub009/core/database"

	"gorm.io/gorm"
)

// TransactionRow is one row of alf_transaction.
type TransactionRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement:false"`
	CommitTimeMs int64 `gorm:"not null"`
}

func (TransactionRow) TableName() string { return "alf_transaction" }

// NodeRow is the current state of one node.
type NodeRow struct {
	ID             int64   `gorm:"primaryKey;autoIncrement:false"`
	UUID           string  `gorm:"column:uuid;size:128;uniqueIndex"`
	TransactionID  int64   `gorm:"index"`
	AclID          int64   `gorm:"index"`
	NodeDeleted    bool    `gorm:"not null"`
	TypeQName      string  `gorm:"column:type_qname;size:255"`
	Owner          string  `gorm:"size:255"`
	ContentIndexed bool    `gorm:"not null"`
	ShardKey       *string `gorm:"size:255"`
}

func (NodeRow) TableName() string { return "alf_node" }

// AncestorRow places an ancestor of a node at a depth, 0 being the root.
type AncestorRow struct {
	NodeRef     string `gorm:"primaryKey;size:128"`
	Depth       int    `gorm:"primaryKey;autoIncrement:false"`
	AncestorRef string `gorm:"size:128;index"`
}

func (AncestorRow) TableName() string { return "alf_node_ancestor" }

// PropertyRow holds one value of a node property. Multi-valued properties span
// several rows ordered by Position.
type PropertyRow struct {
	ID          int64  `gorm:"primaryKey"`
	NodeRef     string `gorm:"size:128;index"`
	QName       string `gorm:"column:qname;size:255"`
	Kind        string `gorm:"size:16"`
	StringValue string `gorm:"type:text"`
	ContentURL  string `gorm:"column:content_url;size:255"`
	MimeType    string `gorm:"size:100"`
	ContentSize int64
	Encoding    string `gorm:"size:32"`
	Locale      string `gorm:"size:32"`
	Position    int
}

func (PropertyRow) TableName() string { return "alf_node_property" }

// ChangeSetRow is one row of alf_acl_change_set.
type ChangeSetRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement:false"`
	CommitTimeMs int64 `gorm:"not null"`
}

func (ChangeSetRow) TableName() string { return "alf_acl_change_set" }

// AclRow is one row of alf_access_control_list.
type AclRow struct {
	ID           int64 `gorm:"primaryKey;autoIncrement:false"`
	AclChangeSet int64 `gorm:"column:acl_change_set;index"`
}

func (AclRow) TableName() string { return "alf_access_control_list" }

// AclReaderRow grants or denies read to one authority.
type AclReaderRow struct {
	AclID     int64  `gorm:"primaryKey;autoIncrement:false"`
	Authority string `gorm:"primaryKey;size:255"`
	Denied    bool   `gorm:"not null"`
}

func (AclReaderRow) TableName() string { return "alf_acl_reader" }

// ContentTextRow is the extracted text of one content property.
type ContentTextRow struct {
	NodeID int64  `gorm:"primaryKey;autoIncrement:false"`
	QName  string `gorm:"column:qname;primaryKey;size:255"`
	Text   string `gorm:"type:text"`
}

func (ContentTextRow) TableName() string { return "alf_content_text" }

// ModelRow is one deployed data model.
type ModelRow struct {
	Name     string `gorm:"primaryKey;size:255"`
	Checksum string `gorm:"size:64"`
}

func (ModelRow) TableName() string { return "alf_model" }

// ModelPropertyRow is one property definition of a model.
type ModelPropertyRow struct {
	ModelName string `gorm:"primaryKey;size:255"`
	QName     string `gorm:"column:qname;primaryKey;size:255"`
	DataType  string `gorm:"size:64"`
	Indexed   bool   `gorm:"not null"`
}

func (ModelPropertyRow) TableName() string { return "alf_model_property" }

// Migrate creates the repository tables. Production repositories own their schema;
// this serves local runs and tests.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&TransactionRow{}, &NodeRow{}, &AncestorRow{}, &PropertyRow{},
		&ChangeSetRow{}, &AclRow{}, &AclReaderRow{},
		&ContentTextRow{}, &ModelRow{}, &ModelPropertyRow{},
	)
}

// requiredColumns are the columns selected by the Source queries.
var requiredColumns = map[string][]string{
	"alf_transaction":         {"id", "commit_time_ms"},
	"alf_node":                {"id", "uuid", "transaction_id", "acl_id", "node_deleted", "type_qname", "owner", "content_indexed", "shard_key"},
	"alf_node_ancestor":       {"node_ref", "depth", "ancestor_ref"},
	"alf_node_property":       {"node_ref", "qname", "kind", "string_value", "content_url", "mime_type", "content_size", "encoding", "locale", "position"},
	"alf_acl_change_set":      {"id", "commit_time_ms"},
	"alf_access_control_list": {"id", "acl_change_set"},
	"alf_acl_reader":          {"acl_id", "authority", "denied"},
}

// Verify checks that the repository database exposes every required column.
func Verify(db *gorm.DB) error {
	missing, err := database.MissingColumns(db, requiredColumns)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	tables := make([]string, 0, len(missing))
	for t, cols := range missing {
		tables = append(tables, fmt.Sprintf("%s(%s)", t, strings.Join(cols, ",")))
	}
	sort.Strings(tables)
	return fmt.Errorf("repository schema is missing columns: %s", strings.Join(tables, " "))
}
