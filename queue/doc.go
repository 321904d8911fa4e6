// Package queue implements the Michael–Scott lock-free FIFO queue.
//
// A permanent dummy node anchors the head; enqueue links at the tail
// and dequeue unlinks behind the dummy. Both sides help a lagging tail
// forward, so a stalled enqueuer's half-finished append is completed by
// whoever notices it. Retired dummies recycle through the epoch
// reclaimer exactly as stack nodes do.
package queue
