package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teamloft/teamloft/service"
)

func TestThrottleGate_Window(t *testing.T) {
	gate := service.NewThrottleGate(50 * time.Millisecond)

	assert.True(t, gate.Allow("u1", "wb1"))
	assert.False(t, gate.Allow("u1", "wb1"))

	// Independent pairs have independent windows
	assert.True(t, gate.Allow("u2", "wb1"))
	assert.True(t, gate.Allow("u1", "wb2"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, gate.Allow("u1", "wb1"))
}

func TestThrottleGate_Forget(t *testing.T) {
	gate := service.NewThrottleGate(time.Minute)

	assert.True(t, gate.Allow("u1", "wb1"))
	assert.True(t, gate.Allow("u1", "wb2"))
	assert.True(t, gate.Allow("u2", "wb1"))

	gate.Forget("u1")

	assert.True(t, gate.Allow("u1", "wb1"))
	assert.True(t, gate.Allow("u1", "wb2"))
	assert.False(t, gate.Allow("u2", "wb1"))
}

func TestThrottleGate_Sweep(t *testing.T) {
	gate := service.NewThrottleGate(10 * time.Millisecond)

	assert.True(t, gate.Allow("u1", "wb1"))
	assert.True(t, gate.Allow("u2", "wb1"))

	time.Sleep(20 * time.Millisecond)
	assert.True(t, gate.Allow("u3", "wb1"))

	assert.Equal(t, 2, gate.Sweep(15*time.Millisecond))
	assert.Equal(t, 0, gate.Sweep(15*time.Millisecond))
}
