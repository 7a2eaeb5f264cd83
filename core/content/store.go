package content

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ErrNotFound is returned by Get for a missing ref.
var ErrNotFound = errors.New("content: text not found")

// Store caches the extracted text of content properties so a reindex of an
// unchanged content URL does not fetch it again.
type Store interface {
	Put(ctx context.Context, ref, text string) error
	Get(ctx context.Context, ref string) (string, error)
	// DeleteNode removes every cached text of nodeID.
	DeleteNode(ctx context.Context, nodeID int64) error
}

// Ref names the cached text of one content property version.
func Ref(nodeID int64, qname, contentURL string) string {
	return fmt.Sprintf("%s%s/%016x", nodePrefix(nodeID), strings.ReplaceAll(qname, ":", "_"), xxhash.Sum64String(contentURL))
}

func nodePrefix(nodeID int64) string {
	return strconv.FormatInt(nodeID, 10) + "/"
}

// MemoryStore keeps texts in a map.
type MemoryStore struct {
	mu    sync.RWMutex
	texts map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{texts: make(map[string]string)}
}

func (m *MemoryStore) Put(_ context.Context, ref, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[ref] = text
	return nil
}

func (m *MemoryStore) Get(_ context.Context, ref string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.texts[ref]
	if !ok {
		return "", ErrNotFound
	}
	return t, nil
}

func (m *MemoryStore) DeleteNode(_ context.Context, nodeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := nodePrefix(nodeID)
	for ref := range m.texts {
		if strings.HasPrefix(ref, prefix) {
			delete(m.texts, ref)
		}
	}
	return nil
}

// Len is the number of cached texts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.texts)
}
