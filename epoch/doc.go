// Package epoch provides epoch-based deferred reclamation for the
// lock-free containers in this module.
//
// A goroutine pins itself before touching shared nodes and receives a
// Guard. While any guard pinned at epoch E is alive, no destructor
// deferred at or after E runs. Writers retire unlinked nodes through
// Guard.Defer; the destructors run only once the global epoch has
// advanced two generations past the retirement epoch, at which point no
// pinned goroutine can still hold a reference to the node.
//
// The global epoch counter and the participant registry are the only
// process-wide state. Both are lock-free. A guard that is never released
// stalls reclamation of everything retired behind it: bounded memory
// growth, never a safety violation.
package epoch
