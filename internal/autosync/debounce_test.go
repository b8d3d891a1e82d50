package autosync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDebouncer(window time.Duration) (*Debouncer, *fakeScheduler, *[]uint64) {
	sched := &fakeScheduler{}
	var expired []uint64
	d := NewDebouncer(window, sched, func(gen uint64) { expired = append(expired, gen) })
	return d, sched, &expired
}

func TestDebouncer_LeadingEdge(t *testing.T) {
	d, sched, expired := newTestDebouncer(time.Second)

	// When: a burst of changes arrives
	first := d.Notify()
	second := d.Notify()
	third := d.Notify()

	// Then: only the first fires and the window keeps restarting
	assert.True(t, first)
	assert.False(t, second)
	assert.False(t, third)
	assert.Equal(t, DebounceRefractory, d.State())

	// When: the live timer expires
	require.True(t, sched.fire(time.Second))
	require.Len(t, *expired, 1)
	fire := d.Expire((*expired)[0])

	// Then: the debouncer is idle again without firing
	assert.False(t, fire)
	assert.Equal(t, DebounceIdle, d.State())
	assert.True(t, d.Notify())
}

func TestDebouncer_StaleExpiryIgnored(t *testing.T) {
	d, sched, expired := newTestDebouncer(time.Second)

	d.Notify()
	old := sched.latest(time.Second)
	d.Notify()

	// When: the superseded timer's callback runs anyway
	old.f()

	// Then: it does not end the window
	assert.False(t, d.Expire((*expired)[0]))
	assert.Equal(t, DebounceRefractory, d.State())
}

func TestDebouncer_ArmedRetriesOnExpiry(t *testing.T) {
	d, sched, expired := newTestDebouncer(time.Second)

	// Given: a fire that could not start
	require.True(t, d.Notify())
	d.Dropped()
	assert.Equal(t, DebounceArmed, d.State())

	// When: further changes arrive and the window ends
	assert.False(t, d.Notify())
	assert.Equal(t, DebounceArmed, d.State())
	require.True(t, sched.fire(time.Second))

	// Then: the retry fires and a new window opens
	assert.True(t, d.Expire((*expired)[len(*expired)-1]))
	assert.Equal(t, DebounceRefractory, d.State())
	assert.NotNil(t, sched.latest(time.Second))
}

func TestDebouncer_ZeroWindowAlwaysFires(t *testing.T) {
	d, sched, _ := newTestDebouncer(0)

	assert.True(t, d.Notify())
	assert.True(t, d.Notify())
	d.Dropped()
	assert.Equal(t, DebounceIdle, d.State())
	assert.Nil(t, sched.latest(0))
}

func TestDebouncer_ResetReturnsToIdle(t *testing.T) {
	d, sched, _ := newTestDebouncer(time.Second)
	d.Notify()

	d.Reset(2 * time.Second)

	assert.Equal(t, DebounceIdle, d.State())
	assert.Nil(t, sched.latest(time.Second))
	assert.True(t, d.Notify())
	assert.NotNil(t, sched.latest(2*time.Second))
}
