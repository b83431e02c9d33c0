// Copyright 2025 Tartil Authors
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore is an in-memory object store for testing.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]memObject

	// FailKeys makes Put fail for the listed keys, simulating object
	// store write failures in tests.
	FailKeys map[string]error

	// FailDeletes makes Delete fail for the listed keys.
	FailDeletes map[string]error

	// FailList makes every List call fail.
	FailList error
}

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

// NewMemory creates an empty in-memory object store.
func NewMemory() *MemStore {
	return &MemStore{objects: make(map[string]memObject)}
}

func (m *MemStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (*PutResult, error) {
	if err, ok := m.FailKeys[key]; ok {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.objects[key] = memObject{data: data, contentType: contentType, modified: time.Now()}
	m.mu.Unlock()

	return &PutResult{
		PublicURL:   "mem://" + key,
		DownloadURL: "mem://" + key + "?download",
	}, nil
}

func (m *MemStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemStore) Delete(ctx context.Context, key string) error {
	if err, ok := m.FailDeletes[key]; ok {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if m.FailList != nil {
		return nil, m.FailList
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{
				Key:          key,
				Size:         int64(len(obj.data)),
				LastModified: obj.modified,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// SetModified backdates an object's timestamp; used by reconciliation
// tests to age objects past the grace period.
func (m *MemStore) SetModified(key string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[key]; ok {
		obj.modified = t
		m.objects[key] = obj
	}
}

// Len returns the number of stored objects.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemStore) Close() error {
	return nil
}
