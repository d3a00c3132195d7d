package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversine_IdenticalPoints(t *testing.T) {
	assert.InDelta(t, 0.0, Haversine(47.78, -99.93, 47.78, -99.93), 1e-9)
}

func TestHaversine_Symmetric(t *testing.T) {
	ab := Haversine(47.78, -99.93, 46.88, -96.79)
	ba := Haversine(46.88, -96.79, 47.78, -99.93)

	assert.InDelta(t, ab, ba, 1e-9)
	assert.Greater(t, ab, 200.0)
	assert.Less(t, ab, 300.0)
}

func TestHaversine_AntipodalBounded(t *testing.T) {
	half := math.Pi * EarthRadiusKm

	d := Haversine(0, 0, 0, 180)
	assert.InDelta(t, half, d, 1e-6)
	assert.LessOrEqual(t, d, 20015.1)

	d = Haversine(47.78, -99.93, -47.78, 80.07)
	assert.Greater(t, d, 0.0)
	assert.LessOrEqual(t, d, half+1e-6)
}
