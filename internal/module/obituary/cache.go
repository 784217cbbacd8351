package obituary

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/simp-lee/memorial/internal/domain"
)

// DetailCache is a read-through cache of single obituaries keyed by id.
// A nil *DetailCache is valid and caches nothing.
type DetailCache struct {
	items *cache.Cache
}

// NewDetailCache creates a DetailCache whose entries live for ttl.
func NewDetailCache(ttl, cleanupInterval time.Duration) *DetailCache {
	return &DetailCache{items: cache.New(ttl, cleanupInterval)}
}

// Get returns a copy of the cached obituary.
func (d *DetailCache) Get(id uint) (*domain.Obituary, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.items.Get(cacheKey(id))
	if !ok {
		return nil, false
	}
	o := v.(domain.Obituary)
	return &o, true
}

// Set stores a copy of o.
func (d *DetailCache) Set(o *domain.Obituary) {
	if d == nil || o == nil {
		return
	}
	d.items.SetDefault(cacheKey(o.ID), *o)
}

// Delete evicts id.
func (d *DetailCache) Delete(id uint) {
	if d == nil {
		return
	}
	d.items.Delete(cacheKey(id))
}

// Len reports the number of cached entries, expired ones included until
// the next cleanup.
func (d *DetailCache) Len() int {
	if d == nil {
		return 0
	}
	return d.items.ItemCount()
}

func cacheKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
