package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckCollision(t *testing.T) {
	assert.True(t, CheckCollision(0, 0, 10, 15, 0, 10), "overlapping")
	assert.True(t, CheckCollision(0, 0, 10, 20, 0, 10), "touching")
	assert.False(t, CheckCollision(0, 0, 10, 25, 0, 10), "apart")
	assert.True(t, CheckCollision(5, 5, 1, 5, 5, 1), "same position")
}

func TestCircleContact(t *testing.T) {
	fallback := Vec{X: 0, Y: -1}

	c, ok := CircleContact(Vec{X: 0, Y: 0}, 30, Vec{X: 30, Y: 40}, 30, fallback)
	assert.True(t, ok)
	assert.InDelta(t, 0.6, c.Normal.X, eps)
	assert.InDelta(t, 0.8, c.Normal.Y, eps)
	assert.InDelta(t, 10.0, c.Overlap, eps)

	// touching is not contact
	_, ok = CircleContact(Vec{X: 0, Y: 0}, 30, Vec{X: 50, Y: 0}, 20, fallback)
	assert.False(t, ok)

	c, ok = CircleContact(Vec{X: 7, Y: 7}, 30, Vec{X: 7, Y: 7}, 20, fallback)
	assert.True(t, ok)
	assert.Equal(t, fallback, c.Normal)
	assert.InDelta(t, 50.0, c.Overlap, eps)
}

func TestDistanceAndClamp(t *testing.T) {
	assert.InDelta(t, 5.0, Distance(0, 0, 3, 4), eps)
	assert.Equal(t, 100.0, Clamp(150, -100, 100))
	assert.Equal(t, -100.0, Clamp(-150, -100, 100))
	assert.Equal(t, 42.0, Clamp(42, -100, 100))
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Regexp(t, `^[a-z0-9]{6}$`, GenerateCode(6))
	}
}
