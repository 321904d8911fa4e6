// Package hamt provides a concurrent hash array mapped trie: a persistent
// map with lock-free copy-on-write updates and O(1) point-in-time snapshots.
//
// The trie branches 32 ways per level on 5-bit hash slices, storing children
// in a bitmap-compressed sparse array. Every node is immutable once
// published; a write path-copies the nodes from the root to the touched leaf
// and installs the new root with a single compare-and-swap, retrying from a
// fresh root on contention. Because published nodes never change, capturing
// the root pointer yields a fully isolated snapshot that shares all
// unmodified subtries with the live map.
//
// Reads are wait-free. Writes are lock-free and pay O(log32 n) allocation
// per operation, the price of structural sharing. Prefer skiplist when the
// workload is write-heavy and snapshots are not needed.
package hamt
