package cache

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultTTL is the default lifetime of a cached layer document.
const DefaultTTL = 5 * time.Minute

// Kind identifies which governance layer an entry holds.
type Kind string

// Layer kinds.
const (
	KindGlobal   Kind = "global"
	KindTeam     Kind = "team"
	KindType     Kind = "type"
	KindTemplate Kind = "template"
	KindLabels   Kind = "labels"

	// KindRepo caches the discovered repository handle itself.
	KindRepo Kind = "repo"

	// KindTypeIndex caches the list of available repository types.
	KindTypeIndex Kind = "type-index"
)

// Key identifies one cached layer document. Name is empty for
// organization-wide kinds (global defaults, standard labels).
type Key struct {
	Org  string
	Kind Kind
	Name string
}

// Entry wraps a cached layer document with its load metadata.
type Entry struct {
	// Document is the parsed layer document. The cache owns this copy;
	// readers must treat it as immutable.
	Document any

	// CachedAt is when the entry was stored.
	CachedAt time.Time

	// RepoVersion is the metadata repository's version marker (HEAD SHA)
	// at load time, used to detect that the underlying repository moved.
	RepoVersion string
}

// Config configures a LayerCache.
type Config struct {
	// TTL is the per-entry lifetime. Defaults to DefaultTTL if zero.
	TTL time.Duration
}

// LayerCache is a TTL cache of layer documents. Expired entries are never
// returned: expiry is evaluated on read, and reads do not extend an
// entry's lifetime.
type LayerCache struct {
	inner *ttlcache.Cache[Key, Entry]
}

// New creates a LayerCache.
func New(cfg Config) *LayerCache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LayerCache{
		inner: ttlcache.New(
			ttlcache.WithTTL[Key, Entry](ttl),
			ttlcache.WithDisableTouchOnHit[Key, Entry](),
		),
	}
}

// Start runs background eviction of expired entries. Optional: reads
// already ignore expired entries; Start only bounds memory held by them.
func (c *LayerCache) Start() {
	go c.inner.Start()
}

// Stop halts background eviction.
func (c *LayerCache) Stop() {
	c.inner.Stop()
}

// Get returns the entry for key, or false if it is absent or expired.
func (c *LayerCache) Get(key Key) (Entry, bool) {
	item := c.inner.Get(key)
	if item == nil {
		return Entry{}, false
	}
	return item.Value(), true
}

// Put inserts or replaces the entry for key, stamping CachedAt. Entries
// are replaced whole, never mutated in place.
func (c *LayerCache) Put(key Key, document any, repoVersion string) {
	c.inner.Set(key, Entry{
		Document:    document,
		CachedAt:    time.Now().UTC(),
		RepoVersion: repoVersion,
	}, ttlcache.DefaultTTL)
}

// Delete removes the entry for key, if present.
func (c *LayerCache) Delete(key Key) {
	c.inner.Delete(key)
}

// InvalidateOrganization removes the organization's global entry and every
// team, type, template, and label entry scoped to it. Entries for other
// organizations are untouched.
func (c *LayerCache) InvalidateOrganization(org string) {
	for _, key := range c.inner.Keys() {
		if key.Org == org {
			c.inner.Delete(key)
		}
	}
}

// InvalidateTeam removes only the given team's entry.
func (c *LayerCache) InvalidateTeam(org, team string) {
	c.inner.Delete(Key{Org: org, Kind: KindTeam, Name: team})
}

// Len returns the number of entries, including any not yet evicted
// expired ones.
func (c *LayerCache) Len() int {
	return c.inner.Len()
}
