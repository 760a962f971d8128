package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
)

// ObjectStore keeps binary blobs addressed by path.
type ObjectStore interface {
	// Upload stores data at path and returns a URL the object can be fetched from.
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
}

// GCSObjectStore writes objects into a single Cloud Storage bucket.
type GCSObjectStore struct {
	client *storage.Client
	bucket string
}

func NewGCSObjectStore(client *storage.Client, bucket string) *GCSObjectStore {
	return &GCSObjectStore{client: client, bucket: bucket}
}

func (g *GCSObjectStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	writer := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	writer.ContentType = contentType

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return "", fmt.Errorf("write object %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close object %s: %w", path, err)
	}

	return PublicURL(g.bucket, path), nil
}

func (g *GCSObjectStore) Delete(ctx context.Context, path string) error {
	err := g.client.Bucket(g.bucket).Object(path).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", path, err)
	}
	return nil
}

// PublicURL is the download URL of an object in bucket.
func PublicURL(bucket, path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.Join(segments, "/"))
}

// MemoryObjects is an in-process ObjectStore.
type MemoryObjects struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
	failFn  func(op, path string) error
}

func NewMemoryObjects(bucket string) *MemoryObjects {
	return &MemoryObjects{bucket: bucket, objects: make(map[string][]byte)}
}

// FailWith installs a hook consulted before every operation ("upload" or
// "delete"). A non-nil return aborts the operation with that error.
func (m *MemoryObjects) FailWith(fn func(op, path string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFn = fn
}

func (m *MemoryObjects) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.failFn != nil {
		if err := m.failFn("upload", path); err != nil {
			return "", err
		}
	}
	m.objects[path] = append([]byte(nil), data...)
	return PublicURL(m.bucket, path), nil
}

func (m *MemoryObjects) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFn != nil {
		if err := m.failFn("delete", path); err != nil {
			return err
		}
	}
	delete(m.objects, path)
	return nil
}

// Object returns the stored bytes at path.
func (m *MemoryObjects) Object(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[path]
	return data, ok
}

// Paths lists every stored object path.
func (m *MemoryObjects) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.objects))
	for path := range m.objects {
		paths = append(paths, path)
	}
	return paths
}
