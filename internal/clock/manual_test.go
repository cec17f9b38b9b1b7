package clock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maxviazov/lp-feed/internal/clock"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	m := clock.NewManual(epoch)
	var got []string
	var at []time.Duration
	record := func(name string) func() {
		return func() {
			got = append(got, name)
			at = append(at, m.Now().Sub(epoch))
		}
	}
	m.AfterFunc(30*time.Millisecond, record("c"))
	m.AfterFunc(10*time.Millisecond, record("a"))
	m.AfterFunc(20*time.Millisecond, record("b"))

	m.Advance(25 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, at)
	assert.Equal(t, 25*time.Millisecond, m.Now().Sub(epoch))
	assert.Equal(t, 1, m.Pending())

	m.Advance(5 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestManual_ZeroDelayWaitsForAdvance(t *testing.T) {
	m := clock.NewManual(epoch)
	fired := false
	m.AfterFunc(0, func() { fired = true })
	assert.False(t, fired, "zero delay must not fire synchronously")
	m.Advance(0)
	assert.True(t, fired)
}

func TestManual_StopCancels(t *testing.T) {
	m := clock.NewManual(epoch)
	fired := false
	timer := m.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop reports nothing to cancel")
	m.Advance(2 * time.Second)
	assert.False(t, fired)
	assert.Equal(t, 0, m.Pending())
}

func TestManual_CallbackSchedulesInsideWindow(t *testing.T) {
	m := clock.NewManual(epoch)
	var got []time.Duration
	m.AfterFunc(10*time.Millisecond, func() {
		got = append(got, m.Now().Sub(epoch))
		m.AfterFunc(10*time.Millisecond, func() {
			got = append(got, m.Now().Sub(epoch))
		})
	})
	m.Advance(50 * time.Millisecond)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, got)
}

func TestReal_AfterFuncRuns(t *testing.T) {
	done := make(chan struct{})
	clock.Real{}.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
