package app

import (
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/mayele-labs/mems_logger/internal/imu"
	"github.com/mayele-labs/mems_logger/internal/telemetry"
)

func TestConsoleLine(t *testing.T) {
	p := telemetry.NewPayload(imu.MotionSample{
		AccX: 0, AccY: 0, AccZ: 1,
		GyroX: 0.1, GyroY: 0.2, GyroZ: 0.3,
	}, time.Unix(0, 0))

	test.That(t, ConsoleLine(p), test.ShouldEqual,
		"[MEMS] aX:0.0 aY:0.0 aZ:1.0 gX:0.1 gY:0.2 gZ:0.3  ROLL=  0.00  PITCH= -0.00")
}
