package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// FileBackend хранит каждую коллекцию в <dir>/<name>.json.
type FileBackend struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type fileDocument struct {
	LastID  int64           `json:"last_id"`
	Records json.RawMessage `json:"records"`
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "store: create data dir %s", dir)
	}
	return &FileBackend{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

func (b *FileBackend) lock(name string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.locks[name]
	if !ok {
		l = &sync.Mutex{}
		b.locks[name] = l
	}
	return l
}

func (b *FileBackend) Read(ctx context.Context, name string) (Snapshot, bool, error) {
	l := b.lock(name)
	l.Lock()
	defer l.Unlock()
	return b.readLocked(name)
}

func (b *FileBackend) Update(ctx context.Context, name string, fn func(prev Snapshot, found bool) (Snapshot, error)) error {
	l := b.lock(name)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	prev, found, err := b.readLocked(name)
	if err != nil {
		return err
	}
	next, err := fn(prev, found)
	if err != nil {
		return err
	}
	return b.writeLocked(name, next)
}

func (b *FileBackend) readLocked(name string) (Snapshot, bool, error) {
	data, err := os.ReadFile(b.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, errors.Wrapf(ErrUnreadable, "read %s: %v", name, err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Snapshot{}, false, errors.Wrapf(ErrUnreadable, "read %s: empty file", name)
	}
	// старый формат: голый массив записей
	if trimmed[0] == '[' {
		return Snapshot{Records: json.RawMessage(trimmed)}, true, nil
	}
	var doc fileDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return Snapshot{}, false, errors.Wrapf(ErrUnreadable, "decode %s: %v", name, err)
	}
	return Snapshot{LastID: doc.LastID, Records: doc.Records}, true, nil
}

func (b *FileBackend) writeLocked(name string, snap Snapshot) error {
	records := snap.Records
	if len(records) == 0 {
		records = json.RawMessage("[]")
	}
	data, err := json.MarshalIndent(fileDocument{LastID: snap.LastID, Records: records}, "", "  ")
	if err != nil {
		return errors.Wrapf(ErrSaveFailed, "encode %s: %v", name, err)
	}

	tmp, err := os.CreateTemp(b.dir, name+".*.tmp")
	if err != nil {
		return errors.Wrapf(ErrSaveFailed, "write %s: %v", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(ErrSaveFailed, "write %s: %v", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(ErrSaveFailed, "sync %s: %v", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(ErrSaveFailed, "close %s: %v", name, err)
	}
	if err := os.Rename(tmpName, b.Path(name)); err != nil {
		cleanup()
		return errors.Wrapf(ErrSaveFailed, "rename %s: %v", name, err)
	}
	return nil
}
