// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache provides a keyed TTL cache for API responses.
//
// Entries carry their creation time and a time-to-live; an entry is valid
// iff now - createdAt < ttl. Expired entries are treated as absent and are
// evicted lazily on access, or proactively by a periodic sweep. When an
// insert would exceed the size bound, the entry with the oldest creation
// time is evicted first. This is eviction by creation time, not true
// access-recency LRU, and the distinction is deliberate: Get never refreshes
// an entry's position.
//
// Key Types:
//   - Cache: the in-memory store; misses and expiry are not errors
//   - SnapshotStore: versioned sqlite persistence of the live entries,
//     whole-value last-writer-wins
//   - Stats: hit/miss counters and occupancy
package cache
