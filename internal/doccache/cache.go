// Package doccache holds the process-wide snapshot of external
// document records used to decorate answers with download links.
package doccache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"docchat/internal/models"
)

// Loader fetches all document records from the persistent store.
type Loader interface {
	FetchAll(ctx context.Context) ([]models.ExternalDocument, error)
}

// Cache is the in-memory snapshot. There is a single writer during a
// reload; reads always return copies, never the live slice.
type Cache struct {
	loader Loader

	mu         sync.RWMutex
	documents  []models.ExternalDocument
	lastLoaded time.Time
}

func New(loader Loader) *Cache {
	return &Cache{loader: loader}
}

// Load replaces the snapshot with the store's current records. On
// failure the cache is cleared so the application continues degraded
// instead of serving an arbitrarily old snapshot.
func (c *Cache) Load(ctx context.Context) error {
	documents, err := c.loader.FetchAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Document cache load failed, continuing with empty cache")
		c.Clear()
		return err
	}

	c.mu.Lock()
	c.documents = documents
	c.lastLoaded = time.Now()
	c.mu.Unlock()

	withURLs := 0
	for _, d := range documents {
		if d.SignedURL != "" {
			withURLs++
		}
	}
	log.Info().
		Int("documents", len(documents)).
		Int("withSignedUrls", withURLs).
		Msg("Document cache loaded")
	return nil
}

// Get returns a copy of the record with the given ID, or nil.
func (c *Cache) Get(id string) *models.ExternalDocument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.documents {
		if c.documents[i].ID == id {
			doc := c.documents[i]
			return &doc
		}
	}
	return nil
}

// List returns a copy of all records.
func (c *Cache) List() []models.ExternalDocument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.ExternalDocument, len(c.documents))
	copy(out, c.documents)
	return out
}

// Upsert inserts or replaces one record atomically.
func (c *Cache) Upsert(doc models.ExternalDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.documents {
		if c.documents[i].ID == doc.ID {
			c.documents[i] = doc
			return
		}
	}
	c.documents = append(c.documents, doc)
}

// Remove deletes a record by ID, reporting whether it was present.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.documents {
		if c.documents[i].ID == id {
			c.documents = append(c.documents[:i], c.documents[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the snapshot.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents = nil
	c.lastLoaded = time.Time{}
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.documents)
}

// IsExpired reports whether the snapshot is older than maxAge. A cache
// that was never loaded is always expired.
func (c *Cache) IsExpired(maxAge time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastLoaded.IsZero() {
		return true
	}
	return time.Since(c.lastLoaded) > maxAge
}
