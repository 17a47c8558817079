package memory

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrBlobExists   = errors.New("blob already exists")
)

// BlobStore guarda archivos en memoria. No participa de las transacciones del Store.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (b *BlobStore) Put(ctx context.Context, key string, content []byte, contentType string) error {
	if key == "" {
		return errors.New("blob key required")
	}
	cp := make([]byte, len(content))
	copy(cp, content)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.blobs[key]; ok {
		return ErrBlobExists
	}
	b.blobs[key] = cp
	return nil
}

func (b *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	c, ok := b.blobs[key]
	if !ok {
		return nil, ErrBlobNotFound
	}
	cp := make([]byte, len(c))
	copy(cp, c)
	return cp, nil
}

func (b *BlobStore) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

// Keys lista las claves guardadas (tests).
func (b *BlobStore) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.blobs))
	for k := range b.blobs {
		out = append(out, k)
	}
	return out
}
