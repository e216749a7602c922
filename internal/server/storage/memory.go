package storage

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in memory and serves them over HTTP at
// GET {path of base}/{bucket}/{key}. It is safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	bucket  string
	urls    urlScheme
}

func NewMemoryStore(baseURL, bucket string) *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		bucket:  bucket,
		urls:    newURLScheme(baseURL, bucket),
	}
}

// SetBaseURL changes the base of URLs returned by later Put calls.
func (m *MemoryStore) SetBaseURL(baseURL string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = newURLScheme(baseURL, m.bucket)
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	cp := make([]byte, len(data))
	copy(cp, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: cp, contentType: contentType}
	return m.urls.url(key), nil
}

// Delete removes key. Unknown keys yield ErrObjectNotFound.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) KeyFromURL(url string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.urls.key(url)
}

// Get returns a copy of the object stored under key.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, true
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemoryStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	m.mu.RLock()
	prefix := m.pathPrefix()
	key, ok := strings.CutPrefix(r.URL.Path, prefix)
	obj, found := m.objects[key]
	m.mu.RUnlock()

	if !ok || !found {
		http.NotFound(w, r)
		return
	}

	if obj.contentType != "" {
		w.Header().Set("Content-Type", obj.contentType)
	}
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(obj.data)
	}
}

// pathPrefix is the request path prefix objects are served under.
// Callers hold m.mu.
func (m *MemoryStore) pathPrefix() string {
	base := ""
	if u, err := url.Parse(m.urls.base); err == nil {
		base = strings.TrimRight(u.Path, "/")
	}
	return base + "/" + m.bucket + "/"
}
