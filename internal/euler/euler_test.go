package euler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func TestIdentityQuaternion(t *testing.T) {
	yaw, pitch, roll := ToYPR(1, 0, 0, 0)
	assert.InDelta(t, 0.0, yaw, epsilon)
	assert.InDelta(t, 0.0, pitch, epsilon)
	assert.InDelta(t, 0.0, roll, epsilon)
}

func TestToYPRAgreesWithIndividualFunctions(t *testing.T) {
	cases := [][4]float64{
		{1, 0, 0, 0},
		{0.7071067811865476, 0.7071067811865476, 0, 0},
		{0.7071067811865476, 0, 0.7071067811865476, 0},
		{0.7071067811865476, 0, 0, 0.7071067811865476},
		{0.5, 0.5, 0.5, 0.5},
	}

	for _, c := range cases {
		r, i, j, k := c[0], c[1], c[2], c[3]
		yaw, pitch, roll := ToYPR(r, i, j, k)
		require.Equal(t, Yaw(r, i, j, k), yaw)
		require.Equal(t, Pitch(r, i, j, k), pitch)
		require.Equal(t, Roll(r, i, j, k), roll)
	}
}

func TestPitchClampsOverUnitArgument(t *testing.T) {
	// r*i term alone, scaled so 2*j*k + 2*r*i slightly exceeds 1 due to
	// an imperfectly normalized quaternion (rounding in the sensor hub's
	// own fixed-point math).
	pitch := Pitch(0.8, 0.8, 0.8, 0)
	assert.InDelta(t, math.Pi/2, pitch, epsilon)
}

func TestPitchClampsUnderUnitArgument(t *testing.T) {
	pitch := Pitch(0.8, -0.8, 0.8, 0)
	assert.InDelta(t, -math.Pi/2, pitch, epsilon)
}

func TestYawRange(t *testing.T) {
	// A 90 degree rotation about Z: q = (cos45, 0, 0, sin45)
	yaw, _, _ := ToYPR(0.7071067811865476, 0, 0, 0.7071067811865476)
	assert.InDelta(t, -math.Pi/2, yaw, 1e-6)
}
