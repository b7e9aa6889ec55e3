package threadpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingObserver struct {
	started  []BlockingType
	upgraded int
	ended    int
}

func (o *recordingObserver) BlockingStarted(ctx context.Context, kind BlockingType) {
	o.started = append(o.started, kind)
}
func (o *recordingObserver) BlockingTypeUpgraded(ctx context.Context) { o.upgraded++ }
func (o *recordingObserver) BlockingEnded(ctx context.Context)        { o.ended++ }

func TestScopedBlockingCall_NoObserverIsNoOp(t *testing.T) {
	end := ScopedBlockingCall(context.Background(), MayBlock)
	assert.NotPanics(t, func() { end() })
	assert.NotPanics(t, func() { end() }, "calling the returned closure twice must stay a no-op")
}

func TestUpgradeBlockingType_NoObserverIsNoOp(t *testing.T) {
	assert.NotPanics(t, func() { UpgradeBlockingType(context.Background()) })
}

func TestScopedBlockingCall_MayBlockRoundTrip(t *testing.T) {
	obs := &recordingObserver{}
	ctx := withObserver(context.Background(), obs)

	end := ScopedBlockingCall(ctx, MayBlock)
	assert.Equal(t, []BlockingType{MayBlock}, obs.started)
	assert.Equal(t, 0, obs.ended)

	end()
	assert.Equal(t, 1, obs.ended)

	end()
	assert.Equal(t, 1, obs.ended, "BlockingEnded must fire exactly once even if the closure is called again")
}

func TestScopedBlockingCall_WillBlockRoundTrip(t *testing.T) {
	obs := &recordingObserver{}
	ctx := withObserver(context.Background(), obs)

	end := ScopedBlockingCall(ctx, WillBlock)
	assert.Equal(t, []BlockingType{WillBlock}, obs.started)
	end()
	assert.Equal(t, 1, obs.ended)
}

func TestUpgradeBlockingType_ForwardsToObserver(t *testing.T) {
	obs := &recordingObserver{}
	ctx := withObserver(context.Background(), obs)

	end := ScopedBlockingCall(ctx, MayBlock)
	UpgradeBlockingType(ctx)
	assert.Equal(t, 1, obs.upgraded)
	end()
	assert.Equal(t, 1, obs.ended)
}

func TestObserverFromContext_AbsentByDefault(t *testing.T) {
	assert.Nil(t, observerFromContext(context.Background()))
}

func TestObserverFromContext_RecoversInstalledObserver(t *testing.T) {
	obs := &recordingObserver{}
	ctx := withObserver(context.Background(), obs)
	assert.Same(t, BlockingObserver(obs), observerFromContext(ctx))
}
