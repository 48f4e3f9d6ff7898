package imu

import "context"

// MotionSample is one accelerometer + gyroscope reading.
// The six fields are always populated together.
type MotionSample struct {
	Source string `json:"source"`

	AccX float64 `json:"accx"` // g
	AccY float64 `json:"accy"`
	AccZ float64 `json:"accz"`

	GyroX float64 `json:"gyrox"` // °/s
	GyroY float64 `json:"gyroy"`
	GyroZ float64 `json:"gyroz"`
}

// Reader is a motion sensor that must be polled with Update before Read
// returns fresh data.
type Reader interface {
	Update(ctx context.Context) error
	Read() (MotionSample, error)
}
