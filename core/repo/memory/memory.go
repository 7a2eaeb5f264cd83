// Package memory is an in-process repo.Source with failure injection.
package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/Alfresco/SearchServices-sub009/core/repo"
)

type contentKey struct {
	nodeID int64
	qname  string
}

// Source keeps both logs in maps guarded by a single RWMutex.
// It implements repo.Source, repo.ContentSource and repo.ModelSource.
type Source struct {
	mu sync.RWMutex

	txns     map[int64]repo.Transaction
	nodes    map[int64]repo.Node
	metadata map[string]repo.NodeMetadata
	metaErr  map[string]error

	changeSets map[int64]repo.AclChangeSet
	acls       map[int64]repo.Acl
	readers    map[int64]repo.AclReaders

	content    map[contentKey]string
	contentErr map[int64]error
	models     []repo.Model

	failNext error
}

var (
	_ repo.Source        = (*Source)(nil)
	_ repo.ContentSource = (*Source)(nil)
	_ repo.ModelSource   = (*Source)(nil)
)

// New returns an empty Source.
func New() *Source {
	return &Source{
		txns:       make(map[int64]repo.Transaction),
		nodes:      make(map[int64]repo.Node),
		metadata:   make(map[string]repo.NodeMetadata),
		metaErr:    make(map[string]error),
		changeSets: make(map[int64]repo.AclChangeSet),
		acls:       make(map[int64]repo.Acl),
		readers:    make(map[int64]repo.AclReaders),
		content:    make(map[contentKey]string),
		contentErr: make(map[int64]error),
	}
}

// AddTransaction publishes txn and moves every given node into it.
// A node already seen in an earlier transaction now belongs to txn only.
func (s *Source) AddTransaction(txn repo.Transaction, nodes ...repo.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if txn.NodeCount == 0 {
		txn.NodeCount = len(nodes)
	}
	s.txns[txn.ID] = txn
	for _, n := range nodes {
		n.TxnID = txn.ID
		if n.Status == "" {
			n.Status = repo.StatusUpdated
		}
		s.nodes[n.ID] = n
	}
}

// SetMetadata stores metadata keyed by NodeRef.
func (s *Source) SetMetadata(mds ...repo.NodeMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, md := range mds {
		s.metadata[md.NodeRef] = md
	}
}

// FailMetadata makes GetNodeMetadata fail for nodeRef. A nil err clears the fault.
func (s *Source) FailMetadata(nodeRef string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.metaErr, nodeRef)
		return
	}
	s.metaErr[nodeRef] = err
}

// AddAclChangeSet publishes a change-set and its ACLs.
func (s *Source) AddAclChangeSet(cs repo.AclChangeSet, acls ...repo.Acl) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cs.AclCount == 0 {
		cs.AclCount = len(acls)
	}
	s.changeSets[cs.ID] = cs
	for _, a := range acls {
		a.ChangeSetID = cs.ID
		s.acls[a.ID] = a
	}
}

// SetReaders replaces the reader lists of an ACL.
func (s *Source) SetReaders(r repo.AclReaders) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readers[r.AclID] = r
}

// SetContent stores the extracted text of one content property.
func (s *Source) SetContent(nodeID int64, qname, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[contentKey{nodeID, qname}] = text
}

// FailContent makes GetTextContent fail for nodeID. A nil err clears the fault.
func (s *Source) FailContent(nodeID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.contentErr, nodeID)
		return
	}
	s.contentErr[nodeID] = err
}

// SetModels replaces the model list.
func (s *Source) SetModels(models ...repo.Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = models
}

// FailNextFetch makes the next GetTransactions or GetAclChangeSets call fail with err.
func (s *Source) FailNextFetch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

func (s *Source) takeFailure(op string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext == nil {
		return nil
	}
	err := &repo.FetchError{Op: op, ID: id, Err: s.failNext}
	s.failNext = nil
	return err
}

func (s *Source) GetAclChangeSets(ctx context.Context, fromID int64, limit int) ([]repo.AclChangeSet, error) {
	if err := s.takeFailure("getAclChangeSets", fromID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repo.AclChangeSet
	for id, cs := range s.changeSets {
		if id > fromID {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Source) GetAcls(ctx context.Context, changeSetID int64) ([]repo.Acl, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repo.Acl
	for _, a := range s.acls {
		if a.ChangeSetID == changeSetID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Source) GetAclReaders(ctx context.Context, aclID int64) (repo.AclReaders, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.acls[aclID]; !ok {
		return repo.AclReaders{}, &repo.NotFoundError{Kind: "acl", ID: aclID}
	}
	r, ok := s.readers[aclID]
	if !ok {
		return repo.AclReaders{AclID: aclID}, nil
	}
	return r, nil
}

func (s *Source) GetTransactions(ctx context.Context, fromID int64, limit int) ([]repo.Transaction, error) {
	if err := s.takeFailure("getTransactions", fromID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repo.Transaction
	for id, t := range s.txns {
		if id > fromID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Source) GetNodes(ctx context.Context, txnID int64) ([]repo.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []repo.Node
	for _, n := range s.nodes {
		if n.TxnID == txnID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Source) GetNode(ctx context.Context, id int64) (repo.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[id]
	if !ok {
		return repo.Node{}, &repo.NotFoundError{Kind: "node", ID: id}
	}
	return n, nil
}

func (s *Source) GetNodeMetadata(ctx context.Context, nodeRef string) (repo.NodeMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.metaErr[nodeRef]; err != nil {
		return repo.NodeMetadata{}, fmt.Errorf("getNodeMetadata(%s): %w", nodeRef, err)
	}
	md, ok := s.metadata[nodeRef]
	if !ok {
		return repo.NodeMetadata{}, &repo.NotFoundError{Kind: "node metadata", Ref: nodeRef}
	}
	return md, nil
}

func (s *Source) GetTextContent(ctx context.Context, nodeID int64, qname string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.contentErr[nodeID]; err != nil {
		return nil, err
	}
	text, ok := s.content[contentKey{nodeID, qname}]
	if !ok {
		return nil, &repo.NotFoundError{Kind: "content", ID: nodeID}
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

func (s *Source) GetModels(ctx context.Context) ([]repo.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]repo.Model(nil), s.models...), nil
}
