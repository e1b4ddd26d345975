package testutil

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/oggyb/galatea/internal/storage"
)

// MemoryStore is an in-memory storage.Store.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Removed []string
	// FailUpload makes every Upload fail.
	FailUpload bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: map[string][]byte{}}
}

func (m *MemoryStore) Upload(_ context.Context, bucket storage.Bucket, path string, r io.Reader) (string, error) {
	if m.FailUpload {
		return "", errors.New("upload refused")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := string(bucket) + "/" + path
	m.Objects[key] = b
	return "https://cdn.test/" + key, nil
}

func (m *MemoryStore) Remove(_ context.Context, bucket storage.Bucket, paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		key := string(bucket) + "/" + p
		delete(m.Objects, key)
		m.Removed = append(m.Removed, key)
	}
	return nil
}

// PNG is a minimal payload that sniffs as image/png.
func PNG() []byte {
	return append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
}
