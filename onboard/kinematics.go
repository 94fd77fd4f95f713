package onboard

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/matrixpi/gomatrix/onboard/hardware"
)

// MecanumDrive mixes a body twist into the four wheel speeds of a mecanum
// base. Wheel order is front left, front right, rear left, rear right.
type MecanumDrive struct {
	wheels   [4]mgl64.Vec3 // per wheel coefficients over (vx, vy, wz)
	maxSpeed float64
}

func NewMecanumDrive(wheelbase, track float64) (d *MecanumDrive) {
	k := (wheelbase + track) / 2

	return &MecanumDrive{
		wheels: [4]mgl64.Vec3{
			{1, -1, -k}, // front left
			{1, 1, k},   // front right
			{1, 1, -k},  // rear left
			{1, -1, k},  // rear right
		},
		maxSpeed: hardware.MOTOR_SPEED_MAX,
	}
}

// Speeds returns the wheel speeds for a twist of vx (forward), vy (strafe
// left) and wz (counter clockwise, rad/s scaled by the base geometry).
// If any wheel would exceed full speed the whole set is scaled down so the
// mix is preserved.
func (d *MecanumDrive) Speeds(vx, vy, wz float64) (speeds [4]int) {
	twist := mgl64.Vec3{vx, vy, wz}

	var raw [4]float64
	var peak float64
	for i, w := range d.wheels {
		raw[i] = w.Dot(twist)
		if a := math.Abs(raw[i]); a > peak {
			peak = a
		}
	}

	scale := 1.0
	if peak > d.maxSpeed {
		scale = d.maxSpeed / peak
	}

	for i := range raw {
		speeds[i] = int(math.Round(raw[i] * scale))
	}
	return
}
