package files

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// BlobStore holds the raw bytes of uploaded files, keyed by stored name.
type BlobStore interface {
	Put(name string, r io.Reader) (int64, error)
	Open(name string) (io.ReadCloser, error)
	Remove(name string) error
}

// DiskBlobStore keeps blobs as flat files under one directory.
type DiskBlobStore struct {
	dir string
}

var _ BlobStore = (*DiskBlobStore)(nil)

// NewDiskBlobStore creates the directory if needed.
func NewDiskBlobStore(dir string) (*DiskBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskBlobStore{dir: dir}, nil
}

func (d *DiskBlobStore) path(name string) string {
	// Stored names are generated server-side, but never trust them as paths.
	return filepath.Join(d.dir, filepath.Base(name))
}

func (d *DiskBlobStore) Put(name string, r io.Reader) (int64, error) {
	f, err := os.Create(d.path(name))
	if err != nil {
		return 0, fmt.Errorf("create blob: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(d.path(name))
		return 0, fmt.Errorf("write blob: %w", err)
	}
	return n, nil
}

func (d *DiskBlobStore) Open(name string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrMissingBlob
		}
		return nil, err
	}
	return f, nil
}

func (d *DiskBlobStore) Remove(name string) error {
	err := os.Remove(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrMissingBlob
	}
	return err
}

// MemoryBlobStore is a BlobStore for tests.
type MemoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

var _ BlobStore = (*MemoryBlobStore)(nil)

func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *MemoryBlobStore) Put(name string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = data
	return int64(len(data)), nil
}

func (m *MemoryBlobStore) Open(name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrMissingBlob
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryBlobStore) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[name]; !ok {
		return ErrMissingBlob
	}
	delete(m.blobs, name)
	return nil
}
