package sqlsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Alfresco/SearchServices-sub009/core/repo"
	"github.com/Alfresco/SearchServices-sub009/core/utils"

	"gorm.io/gorm"
)

// Source reads both change logs from the repository database.
type Source struct {
	db *gorm.DB
}

var (
	_ repo.Source        = (*Source)(nil)
	_ repo.ContentSource = (*Source)(nil)
	_ repo.ModelSource   = (*Source)(nil)
)

// New creates a Source over db.
func New(db *gorm.DB) *Source {
	return &Source{db: db}
}

func fetchErr(op string, id int64, err error) error {
	return &repo.FetchError{Op: op, ID: id, Err: err}
}

func (s *Source) GetTransactions(ctx context.Context, fromID int64, limit int) ([]repo.Transaction, error) {
	type row struct {
		ID           int64
		CommitTimeMs int64
		NodeCount    int
	}
	var rows []row
	q := s.db.WithContext(ctx).
		Table("alf_transaction t").
		Select("t.id, t.commit_time_ms, (SELECT COUNT(*) FROM alf_node n WHERE n.transaction_id = t.id) AS node_count").
		Where("t.id > ?", fromID).
		Order("t.id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fetchErr("getTransactions", fromID, err)
	}

	out := make([]repo.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, repo.Transaction{ID: r.ID, CommitTimeMs: r.CommitTimeMs, NodeCount: r.NodeCount})
	}
	return out, nil
}

func (s *Source) GetNodes(ctx context.Context, txnID int64) ([]repo.Node, error) {
	var rows []NodeRow
	if err := s.db.WithContext(ctx).Where("transaction_id = ?", txnID).Order("id").Find(&rows).Error; err != nil {
		return nil, fetchErr("getNodes", txnID, err)
	}
	out := make([]repo.Node, 0, len(rows))
	for _, r := range rows {
		out = append(out, toNode(r))
	}
	return out, nil
}

func (s *Source) GetNode(ctx context.Context, id int64) (repo.Node, error) {
	var row NodeRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.Node{}, &repo.NotFoundError{Kind: "node", ID: id}
	}
	if err != nil {
		return repo.Node{}, fetchErr("getNode", id, err)
	}
	return toNode(row), nil
}

func toNode(r NodeRow) repo.Node {
	status := repo.StatusUpdated
	if r.NodeDeleted {
		status = repo.StatusDeleted
	}
	return repo.Node{
		ID:                 r.ID,
		NodeRef:            r.UUID,
		TxnID:              r.TransactionID,
		AclID:              r.AclID,
		Status:             status,
		ShardPropertyValue: r.ShardKey,
	}
}

func (s *Source) GetNodeMetadata(ctx context.Context, nodeRef string) (repo.NodeMetadata, error) {
	db := s.db.WithContext(ctx)

	var node NodeRow
	err := db.Where("uuid = ?", nodeRef).Take(&node).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.NodeMetadata{}, &repo.NotFoundError{Kind: "node metadata", Ref: nodeRef}
	}
	if err != nil {
		return repo.NodeMetadata{}, fmt.Errorf("getNodeMetadata(%s): %w", nodeRef, err)
	}

	var ancestors []AncestorRow
	if err := db.Where("node_ref = ?", nodeRef).Order("depth").Find(&ancestors).Error; err != nil {
		return repo.NodeMetadata{}, fmt.Errorf("getNodeMetadata(%s) ancestors: %w", nodeRef, err)
	}

	var props []map[string]any
	err = db.Table(PropertyRow{}.TableName()).
		Select("qname, kind, string_value, content_url, mime_type, content_size, encoding, locale").
		Where("node_ref = ?", nodeRef).
		Order("qname, position").
		Find(&props).Error
	if err != nil {
		return repo.NodeMetadata{}, fmt.Errorf("getNodeMetadata(%s) properties: %w", nodeRef, err)
	}

	md := repo.NodeMetadata{
		NodeID:           node.ID,
		NodeRef:          node.UUID,
		Type:             node.TypeQName,
		Owner:            node.Owner,
		IsContentIndexed: node.ContentIndexed,
		Properties:       make(map[string]repo.PropertyValue, len(props)),
	}
	for _, a := range ancestors {
		md.Ancestors = append(md.Ancestors, a.AncestorRef)
	}
	for _, p := range props {
		if err := addProperty(md.Properties, p); err != nil {
			return repo.NodeMetadata{}, fmt.Errorf("getNodeMetadata(%s): %w", nodeRef, err)
		}
	}
	return md, nil
}

// addProperty folds one property row into props, appending to multi-valued properties.
func addProperty(props map[string]repo.PropertyValue, row map[string]any) error {
	qname := utils.ToString(row["qname"])
	if qname == "" {
		return errors.New("property row without qname")
	}

	switch kind := repo.PropertyKind(strings.ToLower(utils.ToString(row["kind"]))); kind {
	case repo.KindText, "":
		props[qname] = repo.Text(utils.ToString(row["string_value"]))
	case repo.KindMulti:
		v := props[qname]
		v.Kind = repo.KindMulti
		v.Values = append(v.Values, utils.ToString(row["string_value"]))
		props[qname] = v
	case repo.KindContent:
		props[qname] = repo.Content(repo.ContentDescriptor{
			URL:      utils.ToString(row["content_url"]),
			MimeType: utils.ToString(row["mime_type"]),
			Size:     utils.ToInt64(row["content_size"]),
			Encoding: utils.ToString(row["encoding"]),
			Locale:   utils.ToString(row["locale"]),
		})
	default:
		return fmt.Errorf("property %s has unknown kind %q", qname, kind)
	}
	return nil
}

func (s *Source) GetAclChangeSets(ctx context.Context, fromID int64, limit int) ([]repo.AclChangeSet, error) {
	type row struct {
		ID           int64
		CommitTimeMs int64
		AclCount     int
	}
	var rows []row
	q := s.db.WithContext(ctx).
		Table("alf_acl_change_set cs").
		Select("cs.id, cs.commit_time_ms, (SELECT COUNT(*) FROM alf_access_control_list a WHERE a.acl_change_set = cs.id) AS acl_count").
		Where("cs.id > ?", fromID).
		Order("cs.id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fetchErr("getAclChangeSets", fromID, err)
	}

	out := make([]repo.AclChangeSet, 0, len(rows))
	for _, r := range rows {
		out = append(out, repo.AclChangeSet{ID: r.ID, CommitTimeMs: r.CommitTimeMs, AclCount: r.AclCount})
	}
	return out, nil
}

func (s *Source) GetAcls(ctx context.Context, changeSetID int64) ([]repo.Acl, error) {
	var rows []AclRow
	if err := s.db.WithContext(ctx).Where("acl_change_set = ?", changeSetID).Order("id").Find(&rows).Error; err != nil {
		return nil, fetchErr("getAcls", changeSetID, err)
	}
	out := make([]repo.Acl, 0, len(rows))
	for _, r := range rows {
		out = append(out, repo.Acl{ID: r.ID, ChangeSetID: r.AclChangeSet})
	}
	return out, nil
}

func (s *Source) GetAclReaders(ctx context.Context, aclID int64) (repo.AclReaders, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&AclRow{}).Where("id = ?", aclID).Count(&count).Error; err != nil {
		return repo.AclReaders{}, fetchErr("getAclReaders", aclID, err)
	}
	if count == 0 {
		return repo.AclReaders{}, &repo.NotFoundError{Kind: "acl", ID: aclID}
	}

	var rows []AclReaderRow
	if err := db.Where("acl_id = ?", aclID).Order("authority").Find(&rows).Error; err != nil {
		return repo.AclReaders{}, fetchErr("getAclReaders", aclID, err)
	}
	out := repo.AclReaders{AclID: aclID}
	for _, r := range rows {
		if r.Denied {
			out.Denied = append(out.Denied, r.Authority)
		} else {
			out.Readers = append(out.Readers, r.Authority)
		}
	}
	return out, nil
}

func (s *Source) GetTextContent(ctx context.Context, nodeID int64, qname string) (io.ReadCloser, error) {
	var row ContentTextRow
	err := s.db.WithContext(ctx).Where("node_id = ? AND qname = ?", nodeID, qname).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &repo.NotFoundError{Kind: "content", ID: nodeID}
	}
	if err != nil {
		return nil, fetchErr("getTextContent", nodeID, err)
	}
	return io.NopCloser(strings.NewReader(row.Text)), nil
}

func (s *Source) GetModels(ctx context.Context) ([]repo.Model, error) {
	db := s.db.WithContext(ctx)

	var models []ModelRow
	if err := db.Order("name").Find(&models).Error; err != nil {
		return nil, fetchErr("getModels", 0, err)
	}
	var props []ModelPropertyRow
	if err := db.Order("model_name, qname").Find(&props).Error; err != nil {
		return nil, fetchErr("getModels", 0, err)
	}

	byModel := make(map[string][]repo.PropertyDef)
	for _, p := range props {
		byModel[p.ModelName] = append(byModel[p.ModelName], repo.PropertyDef{QName: p.QName, DataType: p.DataType, Indexed: p.Indexed})
	}
	out := make([]repo.Model, 0, len(models))
	for _, m := range models {
		out = append(out, repo.Model{Name: m.Name, Checksum: m.Checksum, Properties: byModel[m.Name]})
	}
	return out, nil
}
