package threadpool

import "context"

// BlockingType distinguishes task code that merely might block briefly
// (MayBlock) from task code that is known to block for a while (WillBlock).
// See spec.md §4.4.
type BlockingType int

const (
	// MayBlock marks a blocking call that is expected to complete quickly;
	// the thread group only compensates by replacing the worker if it is
	// still blocked after may_block_threshold.
	MayBlock BlockingType = iota
	// WillBlock marks a blocking call known in advance to block for a
	// while; the thread group replaces the worker immediately.
	WillBlock
)

// BlockingObserver is notified of blocking-scope transitions on the
// worker that owns it. Each pool worker implements this, forwarding to its
// ThreadGroup's max_tasks accounting (spec.md §4.4); task code does not
// implement it itself.
type BlockingObserver interface {
	// BlockingStarted is called when a task enters a blocking scope of
	// the given type.
	BlockingStarted(ctx context.Context, kind BlockingType)
	// BlockingTypeUpgraded is called when a MayBlock scope is upgraded to
	// WillBlock without ending first.
	BlockingTypeUpgraded(ctx context.Context)
	// BlockingEnded is called when a blocking scope exits.
	BlockingEnded(ctx context.Context)
}

type observerKey struct{}

// withObserver returns a context carrying obs as the current worker's
// blocking observer. Used internally by worker.go when dispatching a task;
// task code never calls this itself.
func withObserver(ctx context.Context, obs BlockingObserver) context.Context {
	return context.WithValue(ctx, observerKey{}, obs)
}

// observerFromContext recovers the observer installed by withObserver, or
// nil if ctx was not produced by a pool worker (e.g. a task called from a
// test harness directly).
func observerFromContext(ctx context.Context) BlockingObserver {
	obs, _ := ctx.Value(observerKey{}).(BlockingObserver)
	return obs
}

// ScopedBlockingCall marks the extent of a blocking operation performed by
// task code running on ctx. It is the Go equivalent of Chromium's
// base::ScopedBlockingCall: construct it, defer the returned closure.
// If ctx carries no BlockingObserver (task code invoked outside a pool
// worker, e.g. in a unit test), it is a harmless no-op — this is a
// deliberate deviation from the source's thread-local lookup, which would
// have no defined behavior off a pool thread at all; see SPEC_FULL.md §9.
func ScopedBlockingCall(ctx context.Context, kind BlockingType) func() {
	obs := observerFromContext(ctx)
	if obs == nil {
		return func() {}
	}
	obs.BlockingStarted(ctx, kind)
	ended := false
	return func() {
		if ended {
			return
		}
		ended = true
		obs.BlockingEnded(ctx)
	}
}

// UpgradeBlockingType notifies the current worker that an already-open
// MayBlock scope has turned out to need WillBlock treatment. Calling it
// outside of any open blocking scope, or on a ctx with no observer, is a
// no-op.
func UpgradeBlockingType(ctx context.Context) {
	if obs := observerFromContext(ctx); obs != nil {
		obs.BlockingTypeUpgraded(ctx)
	}
}
