package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"bold-client-go/internal/model"
)

// CachedPayload a raw BOLD payload stored under its request key
type CachedPayload struct {
	Key       string          `json:"key"`
	Mode      model.QueryMode `json:"query_mode"`
	Payload   []byte          `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL
func (p *CachedPayload) Expired() bool {
	return time.Now().After(p.ExpiresAt)
}

// Cache payload cache. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (*CachedPayload, error)
	Set(ctx context.Context, key string, mode model.QueryMode, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key derives the cache key of a request from its mode and URL
func Key(mode model.QueryMode, requestURL string) string {
	sum := sha256.Sum256([]byte(string(mode) + "\n" + requestURL))
	return hex.EncodeToString(sum[:])
}

func newEntry(key string, mode model.QueryMode, payload []byte, ttl time.Duration) *CachedPayload {
	now := time.Now()
	return &CachedPayload{
		Key:       key,
		Mode:      mode,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// FileCache stores one zstd-compressed JSON file per key
type FileCache struct {
	dir string
	mu  sync.RWMutex
}

// NewFileCache creates the directory if needed
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) cacheFile(key string) string {
	return filepath.Join(c.dir, key+".json.zst")
}

// Get loads an entry, deleting it in the background when expired
func (c *FileCache) Get(ctx context.Context, key string) (*CachedPayload, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.cacheFile(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress cache entry: %w", err)
	}

	var result CachedPayload
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}

	if result.Expired() {
		go c.Delete(context.Background(), key)
		return nil, nil
	}

	return &result, nil
}

// Set writes an entry, replacing any previous one
func (c *FileCache) Set(ctx context.Context, key string, mode model.QueryMode, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	jsonData, err := json.Marshal(newEntry(key, mode, payload, ttl))
	if err != nil {
		return err
	}

	tmp := c.cacheFile(key) + ".tmp"
	if err := os.WriteFile(tmp, compress(jsonData), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.cacheFile(key))
}

// Delete removes an entry; a missing entry is not an error
func (c *FileCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.Remove(c.cacheFile(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemoryCache in-process cache (tests, single instance)
type MemoryCache struct {
	data map[string]*CachedPayload
	mu   sync.RWMutex
}

// NewMemoryCache creates an empty MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]*CachedPayload),
	}
}

// Get returns a copy of the entry
func (c *MemoryCache) Get(ctx context.Context, key string) (*CachedPayload, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result, ok := c.data[key]
	if !ok {
		return nil, nil
	}

	if result.Expired() {
		go c.Delete(context.Background(), key)
		return nil, nil
	}

	out := *result
	out.Payload = append([]byte(nil), result.Payload...)
	return &out, nil
}

// Set stores a copy of payload
func (c *MemoryCache) Set(ctx context.Context, key string, mode model.QueryMode, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = newEntry(key, mode, payload, ttl)
	return nil
}

// Delete removes an entry
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

// Len number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
