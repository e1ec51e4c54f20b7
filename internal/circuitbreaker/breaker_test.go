package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream returned 503")

func TestCircuitBreaker_BasicFunctionality(t *testing.T) {
	cb := New("fred", Thresholds{MaxConsecutiveFailures: 3})
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit breaker should start closed")
	assert.Equal(t, "fred", cb.Name())

	require.NoError(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit should remain closed after success")
	assert.NoError(t, cb.LastError())
}

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cb := New("coingecko", Thresholds{MaxConsecutiveFailures: 3})

	cb.RecordFailure(errUpstream)
	cb.RecordFailure(errUpstream)
	assert.Equal(t, StateClosed, cb.GetState(), "Two failures should not trip a threshold of three")

	cb.RecordFailure(errUpstream)
	assert.Equal(t, StateOpen, cb.GetState(), "Third consecutive failure should trip the circuit")

	err := cb.Allow()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpen)
	assert.Contains(t, err.Error(), "coingecko")
	assert.Equal(t, errUpstream, cb.LastError())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New("alphavantage", Thresholds{MaxConsecutiveFailures: 2})

	cb.RecordFailure(errUpstream)
	cb.RecordSuccess()
	cb.RecordFailure(errUpstream)
	assert.Equal(t, StateClosed, cb.GetState(), "Failures separated by a success are not consecutive")
}

func TestCircuitBreaker_Recovery(t *testing.T) {
	cb := New("noaa", Thresholds{MaxConsecutiveFailures: 1}).
		WithResetDelay(50 * time.Millisecond).
		WithSuccessThreshold(1)

	cb.RecordFailure(errUpstream)
	require.Equal(t, StateOpen, cb.GetState(), "Circuit should be open after trip")
	assert.Error(t, cb.Allow(), "Calls are rejected before the reset delay")

	time.Sleep(60 * time.Millisecond)

	require.NoError(t, cb.Allow(), "A probe is allowed after the reset delay")
	assert.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit should close after a successful probe")
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb := New("undata", Thresholds{MaxConsecutiveFailures: 1}).
		WithResetDelay(20 * time.Millisecond)

	cb.RecordFailure(errUpstream)
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Allow())

	cb.RecordFailure(errUpstream)
	assert.Equal(t, StateOpen, cb.GetState(), "A failed probe must reopen the circuit")
	assert.Error(t, cb.Allow())
}

func TestCircuitBreaker_CallbackExecution(t *testing.T) {
	type tripEvent struct{ name, reason string }
	events := make(chan tripEvent, 1)

	cb := New("worldbank", Thresholds{MaxConsecutiveFailures: 1}).WithTripCallback(func(name, reason string) {
		events <- tripEvent{name, reason}
	})

	cb.RecordFailure(errUpstream)

	select {
	case ev := <-events:
		assert.Equal(t, "worldbank", ev.name)
		assert.Contains(t, ev.reason, "503", "Callback reason should carry the upstream error")
	case <-time.After(time.Second):
		t.Fatal("trip callback was not executed")
	}
}

func TestCircuitBreaker_ManualReset(t *testing.T) {
	cb := New("fred", Thresholds{MaxConsecutiveFailures: 1})

	cb.RecordFailure(errUpstream)
	require.Equal(t, StateOpen, cb.GetState(), "Circuit should be open after trip")

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit should be closed after manual reset")
	assert.NoError(t, cb.Allow())
	assert.NoError(t, cb.LastError())
}

func TestCircuitBreaker_DefaultThreshold(t *testing.T) {
	cb := New("fred", Thresholds{})
	for i := 0; i < 4; i++ {
		cb.RecordFailure(errUpstream)
	}
	assert.Equal(t, StateClosed, cb.GetState())
	cb.RecordFailure(errUpstream)
	assert.Equal(t, StateOpen, cb.GetState(), "Zero threshold falls back to five failures")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
}

func TestCircuitBreaker_HalfOpenAdmitsOneProbe(t *testing.T) {
	cb := New("coingecko", Thresholds{MaxConsecutiveFailures: 1}).
		WithResetDelay(20 * time.Millisecond)

	cb.RecordFailure(errUpstream)
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, cb.Allow(), "the first caller probes")
	err := cb.Allow()
	assert.ErrorIs(t, err, ErrOpen, "concurrent callers wait for the probe")

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Allow())
	assert.NoError(t, cb.Allow())
}

func TestCircuitBreaker_AbandonedProbeIsReplaced(t *testing.T) {
	cb := New("noaa", Thresholds{MaxConsecutiveFailures: 1}).
		WithResetDelay(20 * time.Millisecond)

	cb.RecordFailure(errUpstream)
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Allow())
	require.Error(t, cb.Allow())

	time.Sleep(30 * time.Millisecond)
	assert.NoError(t, cb.Allow(), "a probe that never reported back is given up")
	assert.Equal(t, StateHalfOpen, cb.GetState())
}
