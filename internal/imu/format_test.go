package imu

import (
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestRecord(t *testing.T) {
	s := MotionSample{AccX: 1.0, AccY: 2.0, AccZ: 3.0, GyroX: 0.1, GyroY: 0.2, GyroZ: 0.3}
	test.That(t, s.Record(), test.ShouldEqual, "1.0;2.0;3.0;0.1;0.2;0.3\n")
}

// The firmware this replaces wrote accY into the accZ column. Records now
// carry accZ in the third field.
func TestRecordThirdFieldIsAccZNotAccY(t *testing.T) {
	s := MotionSample{AccX: 0.5, AccY: -0.25, AccZ: 0.98, GyroX: 1, GyroY: 2, GyroZ: 3}
	fields := strings.Split(strings.TrimSuffix(s.Record(), "\n"), ";")
	test.That(t, fields, test.ShouldHaveLength, 6)
	test.That(t, fields[2], test.ShouldEqual, "0.98")
	test.That(t, fields[2], test.ShouldNotEqual, fields[1])
}

func TestRecordMatchesHeaderOrder(t *testing.T) {
	s := MotionSample{AccX: 11, AccY: 12, AccZ: 13, GyroX: 21, GyroY: 22, GyroZ: 23}
	columns := strings.Split(Header, string(Separator))
	fields := strings.Split(strings.TrimSuffix(s.Record(), "\n"), string(Separator))
	test.That(t, len(fields), test.ShouldEqual, len(columns))
	test.That(t, fields, test.ShouldResemble, []string{"11.0", "12.0", "13.0", "21.0", "22.0", "23.0"})
}

func TestRecordNegativeAndFractional(t *testing.T) {
	s := MotionSample{AccX: -1.5, AccY: 0, AccZ: 0.001, GyroX: -250, GyroY: 123.456, GyroZ: -0.5}
	test.That(t, s.Record(), test.ShouldEqual, "-1.5;0.0;0.001;-250.0;123.456;-0.5\n")
}

func TestDisplayLine(t *testing.T) {
	s := MotionSample{AccX: 1.0, AccY: 2.0, AccZ: 3.0, GyroX: 0.1, GyroY: 0.2, GyroZ: 0.3}
	test.That(t, s.DisplayLine(), test.ShouldEqual, "aX:1.0 aY:2.0 aZ:3.0 gX:0.1 gY:0.2 gZ:0.3")
}
