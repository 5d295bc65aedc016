package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		assert.Zero(t, HaversineKm(40.7128, -74.0060, 40.7128, -74.0060))
	})

	t.Run("known city pair within tolerance", func(t *testing.T) {
		// Berlin to Munich, roughly 504 km.
		d := HaversineKm(52.5200, 13.4050, 48.1351, 11.5820)
		assert.InDelta(t, 504, d, 5)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := HaversineKm(52.5200, 13.4050, 48.1351, 11.5820)
		b := HaversineKm(48.1351, 11.5820, 52.5200, 13.4050)
		assert.InDelta(t, a, b, 1e-9)
	})

	t.Run("antimeridian neighbors stay close", func(t *testing.T) {
		d := HaversineKm(0, 179.9, 0, -179.9)
		assert.Less(t, d, 30.0)
	})
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(0, 0))
	assert.True(t, ValidCoordinate(-90, 180))
	assert.False(t, ValidCoordinate(90.1, 0))
	assert.False(t, ValidCoordinate(0, -180.5))
}
