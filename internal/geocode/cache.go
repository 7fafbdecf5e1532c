package geocode

import (
	"context"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 128

// Cached memoizes successful lookups in an LRU keyed by the normalized query.
type Cached struct {
	inner Searcher
	cache *lru.Cache[string, []Candidate]
}

// NewCached wraps inner. size <= 0 uses a default capacity.
func NewCached(inner Searcher, size int) (*Cached, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	c, err := lru.New[string, []Candidate](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: c}, nil
}

func (c *Cached) Search(ctx context.Context, q Query) ([]Candidate, error) {
	key := cacheKey(q)
	if hit, ok := c.cache.Get(key); ok {
		return clone(hit), nil
	}
	res, err := c.inner.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, clone(res))
	return res, nil
}

// Len reports the number of cached queries.
func (c *Cached) Len() int {
	return c.cache.Len()
}

func cacheKey(q Query) string {
	return strings.ToLower(q.Country) + "|" + strconv.Itoa(q.Limit) + "|" + strings.ToLower(strings.TrimSpace(q.Text))
}

func clone(in []Candidate) []Candidate {
	out := make([]Candidate, len(in))
	copy(out, in)
	return out
}
