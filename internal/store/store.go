// Package store keeps the three persisted collections (tickets, FAQ entries, activity log).
//
// Every write rewrites a whole collection. Read-modify-write cycles go through
// Collection.Mutate, which the backend runs under an exclusive section per collection,
// so concurrent mutations of one collection never lose updates and mutations of
// different collections never block each other.
package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	// ErrUnreadable: the collection exists but could not be read or decoded.
	ErrUnreadable = errors.New("collection unreadable")
	// ErrSaveFailed: the collection could not be written.
	ErrSaveFailed = errors.New("collection save failed")
	// ErrSkip returned from a Mutate callback ends the cycle without writing.
	ErrSkip = errors.New("skip write")
)

// Record is anything with a stable positive id.
type Record interface {
	RecordID() int64
}

// Snapshot is the stored form of a collection. LastID is the highest id ever
// handed out, so ids stay unique after the newest record is deleted.
type Snapshot struct {
	LastID  int64
	Records json.RawMessage
}

type Backend interface {
	Read(ctx context.Context, name string) (Snapshot, bool, error)
	// Update runs fn while holding the collection's exclusive section and writes
	// what it returns. An error from fn (or from reading) aborts without writing.
	Update(ctx context.Context, name string, fn func(prev Snapshot, found bool) (Snapshot, error)) error
}

type Collection[T Record] struct {
	name    string
	backend Backend
}

func NewCollection[T Record](name string, backend Backend) *Collection[T] {
	return &Collection[T]{name: name, backend: backend}
}

func (c *Collection[T]) Name() string { return c.name }

// Load returns all records in stored order. An absent collection is empty.
// On failure the result is still an empty, non-nil slice and the error says why,
// so callers can log and carry on.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	snap, found, err := c.backend.Read(ctx, c.name)
	if err != nil {
		return []T{}, err
	}
	if !found {
		return []T{}, nil
	}
	records, err := decodeRecords[T](c.name, snap.Records)
	if err != nil {
		return []T{}, err
	}
	return records, nil
}

// Save replaces the whole collection with records.
func (c *Collection[T]) Save(ctx context.Context, records []T) error {
	return c.Mutate(ctx, func(tx *Tx[T]) error {
		tx.Records = records
		return nil
	})
}

// Tx is the in-memory copy handed to a Mutate callback.
type Tx[T Record] struct {
	Records []T
	// Exists is false when the collection has never been written.
	Exists bool
	lastID int64
}

// NextID = 1 + max(existing ids, highest id ever issued).
func (tx *Tx[T]) NextID() int64 {
	next := max(tx.lastID, maxID(tx.Records)) + 1
	tx.lastID = next
	return next
}

// Find returns the index of the record with id, or -1.
func (tx *Tx[T]) Find(id int64) int {
	for i := range tx.Records {
		if tx.Records[i].RecordID() == id {
			return i
		}
	}
	return -1
}

// Mutate loads the collection, lets fn change tx.Records and saves the result,
// all inside the collection's exclusive section. If fn returns ErrSkip nothing is
// written and Mutate returns nil. An unreadable collection is never overwritten.
func (c *Collection[T]) Mutate(ctx context.Context, fn func(tx *Tx[T]) error) error {
	err := c.backend.Update(ctx, c.name, func(prev Snapshot, found bool) (Snapshot, error) {
		tx := &Tx[T]{Records: []T{}, Exists: found, lastID: prev.LastID}
		if found {
			records, err := decodeRecords[T](c.name, prev.Records)
			if err != nil {
				return Snapshot{}, err
			}
			tx.Records = records
		}
		if err := fn(tx); err != nil {
			return Snapshot{}, err
		}
		if tx.Records == nil {
			tx.Records = []T{}
		}
		raw, err := json.Marshal(tx.Records)
		if err != nil {
			return Snapshot{}, errors.Wrapf(ErrSaveFailed, "encode %s: %v", c.name, err)
		}
		return Snapshot{LastID: max(tx.lastID, maxID(tx.Records)), Records: raw}, nil
	})
	if errors.Is(err, ErrSkip) {
		return nil
	}
	return err
}

func decodeRecords[T Record](name string, raw json.RawMessage) ([]T, error) {
	records := []T{}
	if len(raw) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return []T{}, errors.Wrapf(ErrUnreadable, "decode %s: %v", name, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

func maxID[T Record](records []T) int64 {
	var m int64
	for _, r := range records {
		if id := r.RecordID(); id > m {
			m = id
		}
	}
	return m
}
