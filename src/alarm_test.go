package husky

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlarmExpiry(t *testing.T) {
	var a = alarm{timeout: 5 * time.Millisecond}

	a.arm()
	a.tick()
	assert.True(t, a.enabled, "fresh alarm must not fire early")
	assert.Equal(t, 0, a.count)

	time.Sleep(7 * time.Millisecond)
	a.tick()
	assert.False(t, a.enabled, "expiry clears the armed flag")
	assert.Equal(t, 1, a.count)

	// Once disarmed, further ticks change nothing.
	a.tick()
	assert.Equal(t, 1, a.count)
}

func TestAlarmProgressResetsCount(t *testing.T) {
	var a = alarm{timeout: time.Millisecond}

	for i := 0; i < 3; i++ {
		a.arm()
		time.Sleep(2 * time.Millisecond)
		a.tick()
	}
	assert.Equal(t, 3, a.count)
	assert.True(t, a.exhausted(3))

	a.progress()
	assert.Equal(t, 0, a.count)
	assert.False(t, a.exhausted(3))
}

func TestAlarmDisarm(t *testing.T) {
	var a = alarm{timeout: time.Millisecond}

	a.arm()
	a.disarm()
	time.Sleep(2 * time.Millisecond)
	a.tick()
	assert.Equal(t, 0, a.count, "a disarmed alarm never fires")
}
