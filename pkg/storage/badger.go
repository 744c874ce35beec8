package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for BadgerDB storage organization
// Using single-byte prefixes for efficiency
const (
	prefixSnapshot  = byte(0x01) // snapshot:id -> JSON(Snapshot)
	prefixNameIndex = byte(0x02) // name:name:0x00:savedAt:id -> []byte{}
	prefixInfo      = byte(0x03) // info:id -> JSON(SnapshotInfo)
)

// BadgerStore keeps snapshots in BadgerDB.
//
// Key Structure:
//   - Snapshots: 0x01 + id -> JSON(Snapshot)
//   - Name Index: 0x02 + name + 0x00 + big-endian savedAt nanos + id -> empty
//   - Info: 0x03 + id -> JSON(SnapshotInfo)
//
// Example:
//
//	store, err := storage.NewBadgerStore("/path/to/data")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
type BadgerStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// DataDir is the directory for storing data files.
	// Ignored when InMemory is set.
	DataDir string

	// InMemory runs BadgerDB in memory-only mode.
	// Useful for testing. Data is not persisted.
	InMemory bool

	// SyncWrites forces fsync after each write.
	SyncWrites bool

	// Logger for BadgerDB internal logging.
	// If nil, BadgerDB logging is silenced.
	Logger badger.Logger
}

// NewBadgerStore opens a persistent store in dataDir with default settings.
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{DataDir: dataDir})
}

// NewBadgerStoreInMemory creates an in-memory store for tests.
func NewBadgerStoreInMemory() (*BadgerStore, error) {
	return NewBadgerStoreWithOptions(BadgerOptions{InMemory: true})
}

// NewBadgerStoreWithOptions opens a store with custom configuration.
//
// Configuration Trade-offs:
//   - SyncWrites=true: Slower writes but maximum safety
//   - InMemory=true: Fastest but data lost on shutdown
func NewBadgerStoreWithOptions(opts BadgerOptions) (*BadgerStore, error) {
	dir := opts.DataDir
	if opts.InMemory {
		dir = ""
	}
	badgerOpts := badger.DefaultOptions(dir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	// Snapshots are small; keep the footprint low
	badgerOpts = badgerOpts.
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	// In-memory mode has no value log, so every value must fit under the
	// threshold; keep badger's default there.
	if !opts.InMemory {
		badgerOpts = badgerOpts.WithValueThreshold(1024)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// ============================================================================
// Key encoding helpers
// ============================================================================

func snapshotKey(id string) []byte {
	return append([]byte{prefixSnapshot}, []byte(id)...)
}

func infoKey(id string) []byte {
	return append([]byte{prefixInfo}, []byte(id)...)
}

func namePrefix(name string) []byte {
	key := make([]byte, 0, len(name)+2)
	key = append(key, prefixNameIndex)
	key = append(key, []byte(name)...)
	return append(key, 0x00)
}

func nameIndexKey(info SnapshotInfo) []byte {
	key := namePrefix(info.Name)
	key = binary.BigEndian.AppendUint64(key, uint64(info.SavedAt.UnixNano()))
	return append(key, []byte(info.ID)...)
}

// ============================================================================
// Store
// ============================================================================

func (b *BadgerStore) checkOpen() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStorageClosed
	}
	return nil
}

// Save stores doc as a new snapshot named name.
func (b *BadgerStore) Save(ctx context.Context, name string, doc *Document) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.checkOpen(); err != nil {
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
	info := snap.Info()
	infoData, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot info: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(snapshotKey(snap.ID), data); err != nil {
			return err
		}
		if err := txn.Set(infoKey(snap.ID), infoData); err != nil {
			return err
		}
		return txn.Set(nameIndexKey(info), []byte{})
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Load returns the snapshot with the given ID.
func (b *BadgerStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var snap *Snapshot
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		snap, err = loadSnapshot(txn, id)
		return err
	})
	return snap, err
}

func loadSnapshot(txn *badger.Txn, id string) (*Snapshot, error) {
	item, err := txn.Get(snapshotKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap *Snapshot
	err = item.Value(func(val []byte) error {
		var decodeErr error
		snap, decodeErr = decodeSnapshot(val)
		return decodeErr
	})
	return snap, err
}

// Latest returns the most recent snapshot saved under name.
func (b *BadgerStore) Latest(ctx context.Context, name string) (*Snapshot, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var snap *Snapshot
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := namePrefix(name)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var last []byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			last = it.Item().KeyCopy(last)
		}
		if last == nil {
			return ErrNotFound
		}
		id := string(last[len(prefix)+8:])
		var err error
		snap, err = loadSnapshot(txn, id)
		return err
	})
	return snap, err
}

// List returns every snapshot, oldest first.
func (b *BadgerStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := b.checkOpen(); err != nil {
		return nil, err
	}

	var infos []SnapshotInfo
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte{prefixInfo}
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var info SnapshotInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return fmt.Errorf("failed to decode snapshot info: %w", err)
			}
			infos = append(infos, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortInfos(infos)
	return infos, nil
}

// Delete removes a snapshot and its index entries.
func (b *BadgerStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(infoKey(id))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var info SnapshotInfo
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		}); err != nil {
			return fmt.Errorf("failed to decode snapshot info: %w", err)
		}
		if err := txn.Delete(nameIndexKey(info)); err != nil {
			return err
		}
		if err := txn.Delete(infoKey(id)); err != nil {
			return err
		}
		return txn.Delete(snapshotKey(id))
	})
}

// Close closes the BadgerDB database.
func (b *BadgerStore) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	return b.db.Close()
}

// RunGC runs garbage collection on the BadgerDB value log.
func (b *BadgerStore) RunGC() error {
	if err := b.checkOpen(); err != nil {
		return err
	}
	err := b.db.RunValueLogGC(0.5)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}

// sortInfos orders by save time, then ID.
func sortInfos(infos []SnapshotInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].SavedAt.Equal(infos[j].SavedAt) {
			return infos[i].SavedAt.Before(infos[j].SavedAt)
		}
		return infos[i].ID < infos[j].ID
	})
}
