// Package cache provides the TTL-bounded layer-document cache used by the
// configuration resolution engine.
//
// Entries are keyed by (organization, layer kind, name) and expire after a
// per-cache TTL; expiry is checked on every read, so a stale entry is never
// served. Invalidation is explicit: one team's entry, or everything scoped
// to an organization, can be dropped without touching other organizations.
//
// The cache is safe for many concurrent readers; writes lock only for the
// instant of mutation. Callers perform provider fetches outside the cache
// so no lock is ever held across I/O.
package cache
