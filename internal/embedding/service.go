// Package embedding implements the Embedding Service (C1): a polymorphic set
// of named embedding backends behind a content-addressed LRU cache.
package embedding

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
	"github.com/mojoassistant/mojoassistant/pkg/memory/embedding"
)

// Backend is the polymorphic shape every embedding provider (local,
// remote-HTTP, cloud-API) implements, grounded on pkg/memory/embedding's
// closure-based Provider struct.
type Backend = embedding.Provider

// Service owns the set of registered backends, the default model, and the
// (model, sha256(text)) -> vector LRU cache.
type Service struct {
	mu         sync.Mutex
	backends   map[string]*Backend
	defaultKey string
	cache      *lruCache
}

// NewService builds an empty Service with the given cache capacity. A
// capacity of 0 disables caching.
func NewService(cacheCapacity int) *Service {
	return &Service{
		backends: make(map[string]*Backend),
		cache:    newLRUCache(cacheCapacity),
	}
}

// Register adds a backend under name, making it available to Embed and
// ListModels. The first backend registered becomes the default.
func (s *Service) Register(name string, backend *Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backends[name] = backend
	if s.defaultKey == "" {
		s.defaultKey = name
	}
}

// SwitchDefault changes which registered backend new unqualified calls use.
func (s *Service) SwitchDefault(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.backends[name]; !ok {
		return apperr.NotFound("embedding model", name)
	}
	s.defaultKey = name
	return nil
}

// ListModels returns the names of every registered backend.
func (s *Service) ListModels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.backends))
	for name := range s.backends {
		names = append(names, name)
	}
	return names
}

// EnabledModels returns the backend names that should participate in
// multi-model fan-out, in a stable order (default model first).
func (s *Service) EnabledModels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.backends))
	if s.defaultKey != "" {
		names = append(names, s.defaultKey)
	}
	rest := make([]string, 0, len(s.backends))
	for name := range s.backends {
		if name != s.defaultKey {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func (s *Service) lookup(modelName string) (*Backend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if modelName == "" {
		modelName = s.defaultKey
	}
	backend, ok := s.backends[modelName]
	if !ok {
		return nil, apperr.New(apperr.KindBackend, fmt.Sprintf("embedding model %q is unavailable", modelName), map[string]any{"model": modelName})
	}
	return backend, nil
}

// Embed computes vectors for texts under the named model (empty selects the
// default), using the content-addressed cache where possible. Returns
// BackendError when the model is unavailable and DimensionError when the
// vectors returned by one backend call differ in length from each other.
// Lengths are not compared across calls or against a declared model
// dimension.
func (s *Service) Embed(ctx context.Context, texts []string, modelName string) ([][]float64, error) {
	backend, err := s.lookup(modelName)
	if err != nil {
		return nil, err
	}
	resolvedModel := backend.Model()

	out := make([][]float64, len(texts))
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		key := cacheKey(resolvedModel, text)
		if vec, ok := s.cache.get(key); ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) > 0 {
		vectors, err := backend.EmbedBatch(ctx, missTexts)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindBackend, "embedding backend call failed", err, map[string]any{"model": resolvedModel})
		}
		if len(vectors) != len(missTexts) {
			return nil, apperr.New(apperr.KindBackend, "embedding backend returned a mismatched result count", map[string]any{"model": resolvedModel})
		}
		expectedDim := 0
		for i, vec := range vectors {
			if expectedDim == 0 {
				expectedDim = len(vec)
			} else if len(vec) != expectedDim {
				return nil, apperr.New(apperr.KindDimension, "embedding backend returned vectors of inconsistent dimension", map[string]any{"model": resolvedModel})
			}
			out[missIdx[i]] = vec
			s.cache.put(cacheKey(resolvedModel, missTexts[i]), vec)
		}
	}
	return out, nil
}

// EmbedQuery is a single-text convenience wrapper over Embed.
func (s *Service) EmbedQuery(ctx context.Context, text string, modelName string) ([]float64, error) {
	vectors, err := s.Embed(ctx, []string{text}, modelName)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// lruCache is a simple container/list-based LRU, grounded on the generic
// get/put-with-eviction shape used pack-wide for content-addressed caches
// (no hashicorp/golang-lru dependency is in the teacher's own require
// block, so this is implemented directly rather than imported).
type lruCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[string]*list.Element
}

type lruEntry struct {
	key   string
	value []float64
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (c *lruCache) get(key string) ([]float64, bool) {
	if c.capacity <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*lruEntry).value, true
}

func (c *lruCache) put(key string, value []float64) {
	if c.capacity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).value = value
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&lruEntry{key: key, value: value})
	c.items[key] = el
	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*lruEntry).key)
		}
	}
}
