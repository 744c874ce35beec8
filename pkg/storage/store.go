// Package storage persists probabilistic networks.
//
// Networks are serialized as a Document (YAML for files, JSON for stored
// snapshots). A Snapshot wraps a Document with an ID, a save time and a
// BLAKE2b checksum that is verified every time the snapshot is read back.
//
// Two Store implementations are provided:
//   - MemoryStore: in-process map, for tests and one-shot CLI runs
//   - BadgerStore: persistent BadgerDB store
//
// Example Usage:
//
//	store, err := storage.NewBadgerStore("./data/markovnet")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	doc, _ := storage.Encode(net)
//	snap, err := store.Save(ctx, "sprinkler", doc)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	latest, _ := store.Latest(ctx, "sprinkler")
//	restored, _ := storage.Decode(latest.Document)
package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Common errors
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidName      = errors.New("invalid name")
	ErrStorageClosed    = errors.New("storage closed")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// Snapshot is a saved version of a network.
type Snapshot struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	SavedAt  time.Time `json:"savedAt"`
	Checksum string    `json:"checksum"`
	Document *Document `json:"document"`
}

// SnapshotInfo is a Snapshot without its document.
type SnapshotInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	SavedAt  time.Time `json:"savedAt"`
	Checksum string    `json:"checksum"`
}

// NewSnapshot stamps doc with a fresh ID, the current time and its checksum.
func NewSnapshot(name string, doc *Document) (*Snapshot, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	sum, err := Checksum(doc)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		ID:       uuid.NewString(),
		Name:     name,
		SavedAt:  time.Now().UTC(),
		Checksum: sum,
		Document: doc,
	}, nil
}

// Checksum returns the hex BLAKE2b-256 digest of the JSON form of doc.
func Checksum(doc *Document) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes the checksum of the document.
func (s *Snapshot) Verify() error {
	sum, err := Checksum(s.Document)
	if err != nil {
		return err
	}
	if sum != s.Checksum {
		return fmt.Errorf("snapshot %s: %w", s.ID, ErrChecksumMismatch)
	}
	return nil
}

// Info drops the document.
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{ID: s.ID, Name: s.Name, SavedAt: s.SavedAt, Checksum: s.Checksum}
}

// Store keeps snapshots of networks. Several snapshots may share a name;
// Latest returns the most recently saved one.
type Store interface {
	Save(ctx context.Context, name string, doc *Document) (*Snapshot, error)
	Load(ctx context.Context, id string) (*Snapshot, error)
	Latest(ctx context.Context, name string) (*Snapshot, error)
	List(ctx context.Context) ([]SnapshotInfo, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*BadgerStore)(nil)
)
