// Package store provides durable storage for ordered lists.
//
// Items live in a single table keyed by id. Each row stores its key twice:
// the canonical decimal text (key) and an order-preserving byte encoding
// (sort_key, see key.Key.SortBytes). All ordering and range predicates use
// sort_key, so the database compares keys bytewise without decimal support.
//
// # Ordering
//
// Every item query orders by (sort_key DESC, created_at DESC, id DESC), the
// total order of a list. Pagination is keyset-based: the next page starts
// strictly after the last row of the previous one, expressed as the row-value
// predicate (sort_key, created_at, id) < (?, ?, ?).
//
// # Deletion
//
// Items are soft-deleted. Tombstones never appear in reads and their ids are
// never reused.
//
// # Database Configuration
//
// SQLite (mattn/go-sqlite3 or modernc.org/sqlite):
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - one connection: writers are serialized by the pool
//
// Postgres (lib/pq): SERIALIZABLE transactions. Serialization failures are
// reported by IsTransient and retried by the caller.
package store
