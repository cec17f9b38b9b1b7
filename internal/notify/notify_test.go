package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/lp-feed/internal/notify"
)

func TestManager_PublishReachesSubscribers(t *testing.T) {
	m := notify.NewManager[int]()
	a := m.Subscribe()
	b := m.Subscribe()
	require.Equal(t, 2, m.Len())

	m.Publish(7)
	assert.Equal(t, 7, <-a.C)
	assert.Equal(t, 7, <-b.C)

	a.Close()
	a.Close()
	assert.Equal(t, 1, m.Len())
	_, ok := <-a.C
	assert.False(t, ok, "closed subscription channel must be closed")
}

func TestManager_PublishDoesNotBlockOnFullBuffer(t *testing.T) {
	m := notify.NewManager[int]()
	s := m.Subscribe()
	for i := 0; i < 100; i++ {
		m.Publish(i)
	}
	assert.Equal(t, 0, <-s.C)
}

func TestManager_CloseClosesEverything(t *testing.T) {
	m := notify.NewManager[string]()
	s := m.Subscribe()
	m.Close()
	_, ok := <-s.C
	assert.False(t, ok)
	s.Close()

	late := m.Subscribe()
	_, ok = <-late.C
	assert.False(t, ok, "subscribing after close yields a closed channel")
	m.Publish("dropped")
}
