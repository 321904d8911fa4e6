// Package skiplist implements a lock-free ordered set.
//
// Nodes carry probabilistic towers of forward pointers (geometric
// heights, p = 1/2, capped at 32 levels). Membership is defined by the
// bottom level: an element is in the set once its node is linked there
// and its deleted flag is clear.
//
// Deletion is mark-then-unlink. A remover first wins the node's deleted
// flag, then splices a tombstone marker after the node at level zero —
// any insert racing onto the same successor slot serializes on that
// compare-and-swap and retries, so no update is lost — and finally
// unlinks the node level by level, with every traversal helping.
// Unreachable nodes are retired through the epoch reclaimer.
package skiplist
