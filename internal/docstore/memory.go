package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memoryDoc struct {
	seq  uint64
	data map[string]any
}

// snapshot is a collection's content at one store version
type snapshot struct {
	version uint64
	docs    []Document
}

type subscription struct {
	collection string
	onChange   ChangeFunc

	mu sync.Mutex
	// next is the oldest version still worth delivering
	next    uint64
	busy    bool
	pending *snapshot
	closed  bool
}

// deliver calls onChange with snap unless a newer version already went out.
// A snapshot arriving while a call is in progress, including one published by
// that call itself, is delivered after it returns; only the newest is kept.
func (s *subscription) deliver(snap snapshot) {
	s.mu.Lock()
	if s.closed || snap.version < s.next {
		s.mu.Unlock()
		return
	}
	if s.busy {
		if s.pending == nil || s.pending.version < snap.version {
			s.pending = &snap
		}
		s.mu.Unlock()
		return
	}

	s.busy = true
	for {
		s.next = snap.version + 1
		s.mu.Unlock()
		s.onChange(snap.docs)
		s.mu.Lock()

		if s.closed || s.pending == nil || s.pending.version < s.next {
			s.pending = nil
			break
		}
		snap = *s.pending
		s.pending = nil
	}
	s.busy = false
	s.mu.Unlock()
}

// Memory is an in-process Store. Subscribers are called after each write,
// outside the store lock, with documents in insertion order. The writer
// delivers its own snapshot unless a delivery to that subscriber is already
// running, in which case the running one delivers it next. Subscribers may
// write to the store from inside their callback.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]*memoryDoc
	subs        map[uint64]*subscription
	nextSub     uint64
	nextSeq     uint64
	// version counts committed writes across all collections
	version uint64
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]*memoryDoc),
		subs:        make(map[uint64]*subscription),
	}
}

func (m *Memory) Subscribe(ctx context.Context, collection string, onChange ChangeFunc) (func(), error) {
	if onChange == nil {
		return nil, fmt.Errorf("subscribe %s: nil change func", collection)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &subscription{collection: collection, onChange: onChange}
	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs[id] = sub
	initial := snapshot{version: m.version, docs: m.snapshotLocked(collection)}
	m.mu.Unlock()

	sub.deliver(initial)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()

			sub.mu.Lock()
			sub.closed = true
			sub.mu.Unlock()
		})
	}, nil
}

func (m *Memory) AddDocument(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()

	m.mu.Lock()
	docs := m.collections[collection]
	if docs == nil {
		docs = make(map[string]*memoryDoc)
		m.collections[collection] = docs
	}
	m.nextSeq++
	docs[id] = &memoryDoc{seq: m.nextSeq, data: copyMap(data)}
	m.publishAndUnlock(collection)
	return id, nil
}

func (m *Memory) UpdateDocument(ctx context.Context, collection, id string, patch map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	doc, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("update %s/%s: %w", collection, id, ErrNotFound)
	}
	merged := copyMap(doc.data)
	for k, v := range patch {
		merged[k] = v
	}
	doc.data = merged
	m.publishAndUnlock(collection)
	return nil
}

func (m *Memory) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if _, ok := m.collections[collection][id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("delete %s/%s: %w", collection, id, ErrNotFound)
	}
	delete(m.collections[collection], id)
	m.publishAndUnlock(collection)
	return nil
}

func (m *Memory) ListDocuments(ctx context.Context, collection string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(collection), nil
}

// publishAndUnlock records a committed write to collection, releases m.mu
// and hands each subscriber of collection its own copy of the new content.
func (m *Memory) publishAndUnlock(collection string) {
	m.version++
	ids := make([]uint64, 0, len(m.subs))
	for id, sub := range m.subs {
		if sub.collection == collection {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	targets := make([]*subscription, len(ids))
	snaps := make([]snapshot, len(ids))
	for i, id := range ids {
		targets[i] = m.subs[id]
		snaps[i] = snapshot{version: m.version, docs: m.snapshotLocked(collection)}
	}
	m.mu.Unlock()

	for i, sub := range targets {
		sub.deliver(snaps[i])
	}
}

func (m *Memory) snapshotLocked(collection string) []Document {
	type entry struct {
		id  string
		doc *memoryDoc
	}
	entries := make([]entry, 0, len(m.collections[collection]))
	for id, doc := range m.collections[collection] {
		entries = append(entries, entry{id: id, doc: doc})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].doc.seq < entries[j].doc.seq })

	docs := make([]Document, len(entries))
	for i, e := range entries {
		docs[i] = Document{ID: e.id, Data: copyMap(e.doc.data)}
	}
	return docs
}

// copyMap copies the top level; nested values are replaced wholesale on update.
func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
