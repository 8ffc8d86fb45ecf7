package kvstorage

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// hashKey returns the cached hash stored on an Element, computed over the
// case-folded key so that HashCache lookups are case-insensitive.
func hashKey(key string) uint64 {
	return xxhash.Sum64String(strings.ToLower(key))
}

// HashCache is a case-insensitive hashed Cache. It indexes by the
// case-folded key string; two keys differing only in case collide on the
// same entry, matching the original hashed-cache strategy.
//
// HashCache is not safe for concurrent use on its own — per §5, plug-ins
// execute under the façade's single RWMutex and do not lock independently.
type HashCache struct {
	index map[string]*Element
}

// NewHashCache constructs an empty HashCache.
func NewHashCache() *HashCache {
	return &HashCache{index: make(map[string]*Element)}
}

func foldKey(key string) string { return strings.ToLower(key) }

func (c *HashCache) Insert(e *Element) (*Element, bool) {
	c.index[foldKey(e.Key)] = e
	return e, true
}

func (c *HashCache) Replace(key string, e *Element) (*Element, bool) {
	fk := foldKey(key)
	prev, ok := c.index[fk]
	if !ok {
		return nil, false
	}
	c.index[fk] = e
	return prev, true
}

func (c *HashCache) Lookup(key string) (*Element, bool) {
	e, ok := c.index[foldKey(key)]
	return e, ok
}

func (c *HashCache) Delete(key string) (*Element, bool) {
	fk := foldKey(key)
	e, ok := c.index[fk]
	if ok {
		delete(c.index, fk)
	}
	return e, ok
}

func (c *HashCache) Steal(key string) (*Element, bool) {
	return c.Delete(key)
}

func (c *HashCache) Len() int {
	return len(c.index)
}

func (c *HashCache) Destroy() {
	c.index = nil
}
