// Package cache implements the read-through cache engine in front of the
// upstream weather provider. It combines a versioned key namer, a shared
// Redis-backed store with per-key expiration and atomic create-only writes,
// and a stampede guard that elects a single producer per key across all
// processes while waiters poll with a bounded deadline and fall back to a
// stale copy when the upstream fails. Request layers depend on this package
// through the Guard and Store abstractions without duplicating any Redis
// logic.
package cache
