package bundle

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/withObsrvr/prefix-bundler/internal/storage"
)

// mockStore implements ObjectStore for testing.
type mockStore struct {
	mu      sync.Mutex
	name    string
	objects map[string][]byte
	order   []string // listing order

	downloads int
	uploads   int

	// failDownloads maps keys to the partial content written before the
	// simulated transfer failure.
	failDownloads map[string][]byte

	// headErrs forces Head failures for specific keys.
	headErrs map[string]error
}

func newMockStore(name string) *mockStore {
	return &mockStore{
		name:          name,
		objects:       make(map[string][]byte),
		failDownloads: make(map[string][]byte),
		headErrs:      make(map[string]error),
	}
}

func (m *mockStore) put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		m.order = append(m.order, key)
	}
	m.objects[key] = data
}

func (m *mockStore) Name() string {
	return m.name
}

func (m *mockStore) URI(key string) string {
	return "mock://" + m.name + "/" + key
}

func (m *mockStore) List(ctx context.Context, prefix string) ([]storage.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var objects []storage.Object
	for _, key := range m.order {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, storage.Object{Key: key, Size: int64(len(m.objects[key]))})
		}
	}
	return objects, nil
}

func (m *mockStore) Head(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.headErrs[key]; ok {
		return 0, err
	}
	data, ok := m.objects[key]
	if !ok {
		return 0, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return int64(len(data)), nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *mockStore) Download(ctx context.Context, key, destPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads++

	if partial, ok := m.failDownloads[key]; ok {
		os.WriteFile(destPath, partial, 0644)
		return fmt.Errorf("simulated transfer failure for %s", key)
	}

	data, ok := m.objects[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return os.WriteFile(destPath, data, 0644)
}

func (m *mockStore) Upload(ctx context.Context, srcPath, key string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	if _, ok := m.objects[key]; !ok {
		m.order = append(m.order, key)
	}
	m.objects[key] = data
	return nil
}
