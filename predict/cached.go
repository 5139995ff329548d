package predict

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"sync"

	"yashubustudio/emotion/emotion"
)

// Cached memoizes predictions of another predictor in memory.
type Cached struct {
	inner    Predictor
	mu       sync.RWMutex
	memCache map[string]Prediction
	limit    int
}

// NewCached wraps inner. limit bounds the number of entries; zero means unbounded.
// When full the cache is cleared rather than evicting single entries.
func NewCached(inner Predictor, limit int) *Cached {
	return &Cached{inner: inner, memCache: make(map[string]Prediction), limit: limit}
}

// Predict returns the cached prediction for the cleaned text or computes it.
func (c *Cached) Predict(ctx context.Context, text string) (Prediction, error) {
	key := c.cacheKey(emotion.Normalize(text))
	if p, ok := c.getFromCache(key); ok {
		return p, nil
	}
	p, err := c.inner.Predict(ctx, text)
	if err != nil {
		return Prediction{}, err
	}
	c.storeInMemory(key, p)
	return clonePrediction(p), nil
}

// Len returns the number of cached entries.
func (c *Cached) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memCache)
}

// Labels delegates to the wrapped predictor.
func (c *Cached) Labels() []string { return c.inner.Labels() }

// ModelID delegates to the wrapped predictor.
func (c *Cached) ModelID() string { return c.inner.ModelID() }

// Close drops the cache and closes the wrapped predictor.
func (c *Cached) Close() error {
	c.mu.Lock()
	c.memCache = make(map[string]Prediction)
	c.mu.Unlock()
	return c.inner.Close()
}

func (c *Cached) cacheKey(text string) string {
	h := sha1.New()
	_, _ = io.WriteString(h, c.inner.ModelID())
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cached) getFromCache(key string) (Prediction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.memCache[key]
	if !ok {
		return Prediction{}, false
	}
	return clonePrediction(p), true
}

func (c *Cached) storeInMemory(key string, p Prediction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit > 0 && len(c.memCache) >= c.limit {
		c.memCache = make(map[string]Prediction)
	}
	c.memCache[key] = clonePrediction(p)
}

func clonePrediction(p Prediction) Prediction {
	out := p
	out.Ranked = append([]Suggestion(nil), p.Ranked...)
	return out
}
