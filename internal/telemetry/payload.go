// Package telemetry publishes emitted samples over MQTT and decodes them on
// the subscriber side.
package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mayele-labs/mems_logger/internal/imu"
	"github.com/mayele-labs/mems_logger/internal/orientation"
)

// Payload is the JSON document published for each sample.
type Payload struct {
	imu.MotionSample
	orientation.Pose
	Time time.Time `json:"time"`
}

// NewPayload derives roll and pitch from s and stamps it with at.
func NewPayload(s imu.MotionSample, at time.Time) Payload {
	return Payload{
		MotionSample: s,
		Pose:         orientation.FromSample(s),
		Time:         at.UTC(),
	}
}

// DecodePayload parses a published message body.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode sample payload: %w", err)
	}
	return p, nil
}
