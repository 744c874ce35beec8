package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a thread-safe in-memory Store.
//
// Snapshots are kept in their JSON form, so callers never share a Document
// with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	infos     map[string]memoryEntry
	seq       uint64
	closed    bool
}

type memoryEntry struct {
	info SnapshotInfo
	seq  uint64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string][]byte),
		infos:     make(map[string]memoryEntry),
	}
}

// Save stores doc as a new snapshot named name.
func (m *MemoryStore) Save(ctx context.Context, name string, doc *Document) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := NewSnapshot(name, doc)
	if err != nil {
		return nil, err
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrStorageClosed
	}
	m.seq++
	m.snapshots[snap.ID] = data
	m.infos[snap.ID] = memoryEntry{info: snap.Info(), seq: m.seq}
	return snap, nil
}

// Load returns the snapshot with the given ID.
func (m *MemoryStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStorageClosed
	}
	data, ok := m.snapshots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return decodeSnapshot(data)
}

// Latest returns the most recent snapshot saved under name.
func (m *MemoryStore) Latest(ctx context.Context, name string) (*Snapshot, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStorageClosed
	}
	var (
		best  string
		bestN uint64
	)
	for id, e := range m.infos {
		if e.info.Name == name && e.seq > bestN {
			best, bestN = id, e.seq
		}
	}
	if best == "" {
		return nil, ErrNotFound
	}
	return decodeSnapshot(m.snapshots[best])
}

// List returns every snapshot, oldest first.
func (m *MemoryStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStorageClosed
	}
	entries := make([]memoryEntry, 0, len(m.infos))
	for _, e := range m.infos {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	infos := make([]SnapshotInfo, len(entries))
	for i, e := range entries {
		infos[i] = e.info
	}
	return infos, nil
}

// Delete removes a snapshot.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStorageClosed
	}
	if _, ok := m.snapshots[id]; !ok {
		return ErrNotFound
	}
	delete(m.snapshots, id)
	delete(m.infos, id)
	return nil
}

// Close drops every snapshot. Further calls return ErrStorageClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.snapshots = nil
	m.infos = nil
	return nil
}

func encodeSnapshot(snap *Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// decodeSnapshot unmarshals and verifies a stored snapshot.
func decodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := snap.Verify(); err != nil {
		return nil, err
	}
	return &snap, nil
}
