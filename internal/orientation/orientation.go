package orientation

import (
	"math"

	"github.com/mayele-labs/mems_logger/internal/imu"
)

// Pose is roll and pitch in degrees. Yaw is not observable from an
// accelerometer and gyro without integration, so it is not reported.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
}

// FromSample computes the tilt of s from its accelerometer axes.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func FromSample(s imu.MotionSample) Pose {
	return ComputePoseFromAccel(s.AccX, s.AccY, s.AccZ)
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data
// in any unit; only the ratios matter.
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}
