package threadpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvariant_PanicsOnFalse(t *testing.T) {
	assert.Panics(t, func() { invariant(false, "should never happen") })
}

func TestInvariant_NoPanicOnTrue(t *testing.T) {
	assert.NotPanics(t, func() { invariant(true, "fine") })
}

func TestErrThreadStartFailed_IsAStableSentinel(t *testing.T) {
	assert.Equal(t, "threadpool: worker thread failed to start", ErrThreadStartFailed.Error())
}
