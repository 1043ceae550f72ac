package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock(t *testing.T) {
	c := NewClock(time.Second, 2)
	assert.Equal(t, 500*time.Millisecond, c.Interval())
	assert.Nil(t, c.C())

	c.Start()
	assert.True(t, c.Running())
	assert.NotNil(t, c.C())
	assert.Equal(t, MaxSpeed, c.SetSpeed(20))
	assert.Equal(t, 125*time.Millisecond, c.Interval())
	c.Stop()
	assert.Nil(t, c.C())

	assert.Equal(t, DefaultBaseInterval, NewClock(0, 1).Interval())
}

func TestMatchTime(t *testing.T) {
	assert.Equal(t, "0'", MatchTime(0))
	assert.Equal(t, "45'", MatchTime(45))
	assert.Equal(t, "90'", MatchTime(90))
	assert.Equal(t, "90+3'", MatchTime(93))
}
