package imu

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// Header is the first line of the CSV log.
const Header = "accx;accy;accz;gyrox;gyroy;gyroz"

// Separator between record fields.
const Separator = ';'

// Record renders s as one log line: the six values in header order,
// separated by ';' and terminated by '\n'.
func (s MotionSample) Record() string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Comma = Separator
	// strings.Builder never fails, so the only error would be an invalid Comma.
	_ = w.Write(s.fields())
	w.Flush()
	return b.String()
}

// DisplayLine renders s as a labeled line for the screen.
func (s MotionSample) DisplayLine() string {
	return fmt.Sprintf("aX:%s aY:%s aZ:%s gX:%s gY:%s gZ:%s",
		ftoa(s.AccX), ftoa(s.AccY), ftoa(s.AccZ),
		ftoa(s.GyroX), ftoa(s.GyroY), ftoa(s.GyroZ))
}

func (s MotionSample) fields() []string {
	return []string{
		ftoa(s.AccX), ftoa(s.AccY), ftoa(s.AccZ),
		ftoa(s.GyroX), ftoa(s.GyroY), ftoa(s.GyroZ),
	}
}

// ftoa formats v with the fewest digits that round-trip, keeping at least
// one fractional digit so integers read as "1.0".
func ftoa(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".NI") {
		s += ".0"
	}
	return s
}
