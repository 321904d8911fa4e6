// Package ref provides an atomically swappable shared-ownership handle.
//
// Ref is a strong/weak counted handle over a payload. Go has no
// destructors, so ownership is explicit: every handle must be Released,
// and the payload's drop function runs exactly once, when the last
// strong handle goes away. Weak handles observe the payload without
// keeping it alive and can be upgraded only while a strong handle still
// exists.
//
// Cell holds one Ref and supports atomic Load and Store under an epoch
// guard. Store defers the displaced handle's release through the guard,
// so a concurrent Load can never catch the payload mid-destruction.
package ref
