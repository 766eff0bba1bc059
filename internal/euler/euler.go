// Package euler converts unit quaternions into yaw/pitch/roll Euler
// angles using the aerospace ZYX convention, matching
// original_source/euler.c. Stateless, pure, thread-safe.
package euler

import "math"

// clamp restricts v to [-1, 1] so asin tolerates numerically over-unit
// inputs (e.g. a quaternion that is only approximately normalized).
func clamp(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// Yaw returns the yaw angle, in radians, of the unit quaternion (r,i,j,k).
func Yaw(r, i, j, k float64) float64 {
	num := 2*i*j - 2*r*k
	den := 2*r*r + 2*j*j - 1
	return math.Atan2(num, den)
}

// Pitch returns the pitch angle, in radians, of the unit quaternion (r,i,j,k).
func Pitch(r, i, j, k float64) float64 {
	arg := clamp(2*j*k + 2*r*i)
	return math.Asin(arg)
}

// Roll returns the roll angle, in radians, of the unit quaternion (r,i,j,k).
func Roll(r, i, j, k float64) float64 {
	num := -2*i*k + 2*r*j
	den := 2*r*r + 2*k*k - 1
	return math.Atan2(num, den)
}

// ToYPR computes yaw, pitch, and roll in one pass, sharing the
// intermediate terms the way original_source/euler.c's q_to_ypr does.
// The return order is (yaw, pitch, roll) — the .c file's out-parameter
// order is authoritative; its header comment claiming (roll, pitch, yaw)
// is a documentation bug and is not reproduced here.
func ToYPR(r, i, j, k float64) (yaw, pitch, roll float64) {
	yaw = math.Atan2(2*i*j-2*r*k, 2*r*r+2*j*j-1)
	pitch = math.Asin(clamp(2*j*k + 2*r*i))
	roll = math.Atan2(-2*i*k+2*r*j, 2*r*r+2*k*k-1)
	return yaw, pitch, roll
}
