// Package stack implements a Treiber lock-free LIFO stack.
//
// Push and pop are CAS loops over the head pointer; neither ever
// blocks. Popped nodes are retired through the epoch reclaimer into a
// freelist and re-enter circulation only two epochs later, when no
// pinned goroutine can still hold a reference to them. That recycling
// delay is the ABA defense: a head pointer observed by an in-flight
// compare-and-swap can never be reused out from under it.
package stack
