package threadpool

import "fmt"

// ErrThreadStartFailed is ThreadGroup.Start's error return, kept for the
// spec.md §7 contract (ThreadStartFailed "surfaced to caller of Start").
// Unlike pthread_create, launching a goroutine cannot itself fail (and
// pinning it with runtime.LockOSThread, as worker.mainLoop does, cannot
// either), so Start never actually returns this in practice; it exists so
// the method signature matches the contract.
var ErrThreadStartFailed = fmt.Errorf("threadpool: worker thread failed to start")

// invariant panics with msg if cond is false. It marks the internal
// bookkeeping bugs spec.md §7 calls out as programmer errors rather than
// runtime conditions callers can recover from — mirroring the teacher's
// plain-value errors for recoverable cases and a hard panic for "this
// should be structurally impossible" cases.
func invariant(cond bool, msg string) {
	if !cond {
		panic("threadpool: invariant violation: " + msg)
	}
}
