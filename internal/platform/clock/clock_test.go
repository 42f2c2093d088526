package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	c := NewFake(epoch)
	var fired []string
	c.AfterFunc(3*time.Second, func() { fired = append(fired, "late") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "early") })
	c.AfterFunc(time.Minute, func() { fired = append(fired, "never") })

	c.Advance(5 * time.Second)

	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, 1, c.Pending())
	assert.Equal(t, epoch.Add(5*time.Second), c.Now())
}

func TestFake_StopDisarms(t *testing.T) {
	c := NewFake(epoch)
	called := false
	timer := c.AfterFunc(time.Second, func() { called = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second stop is a no-op")
	c.Advance(time.Hour)
	assert.False(t, called)
	assert.Zero(t, c.Pending())
}

func TestFake_TimerMayArmAnotherTimer(t *testing.T) {
	c := NewFake(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(time.Second)
	assert.Equal(t, 1, count)
	c.Advance(time.Second)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, c.Pending())
}

func TestFake_ExactDeadlineFires(t *testing.T) {
	c := NewFake(epoch)
	called := false
	c.AfterFunc(2*time.Second, func() { called = true })

	c.Advance(1999 * time.Millisecond)
	assert.False(t, called)
	c.Advance(time.Millisecond)
	assert.True(t, called)
}

func TestReal_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real{}.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
