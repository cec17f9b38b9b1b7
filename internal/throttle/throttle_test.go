package throttle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/maxviazov/lp-feed/internal/clock"
	"github.com/maxviazov/lp-feed/internal/throttle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type run struct {
	arg int
	at  time.Duration
}

func newRecorded(t *testing.T, delay time.Duration) (*clock.Manual, *throttle.Gate[int], *[]run) {
	t.Helper()
	m := clock.NewManual(epoch)
	var runs []run
	g := throttle.New(m, delay, func(a int) {
		runs = append(runs, run{arg: a, at: m.Now().Sub(epoch)})
	})
	t.Cleanup(g.Close)
	return m, g, &runs
}

func TestGate_FirstTriggerRunsImmediately(t *testing.T) {
	_, g, runs := newRecorded(t, time.Second)
	g.Trigger(1)
	require.Len(t, *runs, 1)
	assert.Equal(t, run{arg: 1, at: 0}, (*runs)[0])
	assert.False(t, g.Pending())
}

func TestGate_TriggerInsideWindowIsDeferredToBoundary(t *testing.T) {
	m, g, runs := newRecorded(t, time.Second)
	g.Trigger(1)
	m.Advance(400 * time.Millisecond)
	g.Trigger(2)
	require.Len(t, *runs, 1)
	assert.True(t, g.Pending())

	m.Advance(599 * time.Millisecond)
	require.Len(t, *runs, 1)
	m.Advance(time.Millisecond)
	require.Len(t, *runs, 2)
	assert.Equal(t, run{arg: 2, at: time.Second}, (*runs)[1])
}

func TestGate_LastTriggerWins(t *testing.T) {
	m, g, runs := newRecorded(t, time.Second)
	g.Trigger(1)
	for i := 2; i <= 5; i++ {
		m.Advance(100 * time.Millisecond)
		g.Trigger(i)
	}
	m.Advance(time.Second)

	require.Len(t, *runs, 2)
	assert.Equal(t, run{arg: 5, at: time.Second}, (*runs)[1])
	stats := g.Stats()
	assert.Equal(t, 5, stats.Triggers)
	assert.Equal(t, 1, stats.Immediate)
	assert.Equal(t, 1, stats.Deferred)
	assert.Equal(t, 3, stats.Collapsed)
}

func TestGate_RunsImmediatelyOnceWindowCloses(t *testing.T) {
	m, g, runs := newRecorded(t, time.Second)
	g.Trigger(1)
	m.Advance(500 * time.Millisecond)
	g.Trigger(2) // deferred to 1s
	assert.True(t, g.Pending())

	// the deferred call fires at 1s; a trigger at 2s runs immediately
	m.Advance(1500 * time.Millisecond)
	g.Trigger(3)
	require.Len(t, *runs, 3)
	assert.Equal(t, []run{{1, 0}, {2, time.Second}, {3, 2 * time.Second}}, *runs)
	assert.False(t, g.Pending())
}

func TestGate_AtMostTwoRunsPerWindow(t *testing.T) {
	const delay = 100 * time.Millisecond
	m, g, runs := newRecorded(t, delay)

	// hammer the gate every 7ms for two seconds
	for i := 0; i < 300; i++ {
		g.Trigger(i)
		m.Advance(7 * time.Millisecond)
	}
	m.Advance(time.Second)
	require.NotEmpty(t, *runs)

	for i, r := range *runs {
		inWindow := 0
		for _, other := range (*runs)[i:] {
			if other.at-r.at < delay {
				inWindow++
			}
		}
		assert.LessOrEqual(t, inWindow, 2, "window starting at %s", r.at)
		if i > 0 {
			assert.GreaterOrEqual(t, r.at-(*runs)[i-1].at, delay, "runs closer than the delay")
		}
	}

	// every window that saw a trigger saw a run no later than one delay after it
	last := (*runs)[len(*runs)-1]
	assert.Equal(t, 299, last.arg, "trailing trigger must not be dropped")
}

func TestGate_CloseCancelsPending(t *testing.T) {
	m, g, runs := newRecorded(t, time.Second)
	g.Trigger(1)
	g.Trigger(2)
	g.Close()
	m.Advance(5 * time.Second)
	require.Len(t, *runs, 1)
	assert.Equal(t, 0, m.Pending())

	g.Trigger(3)
	assert.Len(t, *runs, 1, "closed gate ignores triggers")
}

func TestGate_ZeroDelayAlwaysImmediate(t *testing.T) {
	_, g, runs := newRecorded(t, 0)
	g.Trigger(1)
	g.Trigger(2)
	assert.Len(t, *runs, 2)
}

func TestNewFunc_RealClock(t *testing.T) {
	calls := make(chan struct{}, 4)
	g := throttle.NewFunc(clock.Real{}, 30*time.Millisecond, func() { calls <- struct{}{} })
	defer g.Close()

	g.Trigger(struct{}{})
	g.Trigger(struct{}{})
	<-calls
	select {
	case <-calls:
	case <-time.After(2 * time.Second):
		t.Fatal("deferred call never ran")
	}
}
