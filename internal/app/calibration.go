// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mayele-labs/mems_logger/internal/config"
	"github.com/mayele-labs/mems_logger/internal/imu"
	"github.com/mayele-labs/mems_logger/internal/sensors"
)

// Quality heuristics for a sensor lying still, in sensor units.
const (
	stillStdGood = 0.10 // °/s
	stillStdBad  = 0.60

	gravityErrGood = 0.03 // g
	gravityErrBad  = 0.15

	// Confidence floor (we never want hard zero unless we error out)
	confFloor = 0.05
)

// Vec3 is one value per axis.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Norm is the Euclidean length of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// PhaseStats summarizes one captured series.
type PhaseStats struct {
	Samples     int     `json:"samples"`
	DurationSec float64 `json:"duration_sec"`
	Mean        Vec3    `json:"mean"`
	MeanAbs     Vec3    `json:"mean_abs"`
	StdDev      Vec3    `json:"stddev"`
}

// CalibrationReport is the JSON document written by the calibration check.
// Gyro mean is the bias left after bring-up calibration.
type CalibrationReport struct {
	SchemaVersion int    `json:"schema_version"`
	CheckedAt     string `json:"checked_at"` // RFC3339
	Sensor        string `json:"sensor"`

	Gyro        PhaseStats `json:"gyro_stats"`  // °/s
	Accel       PhaseStats `json:"accel_stats"` // g
	GravityNorm float64    `json:"gravity_norm"`

	Confidence struct {
		Stillness float64 `json:"stillness"`
		Gravity   float64 `json:"gravity"`
		Overall   float64 `json:"overall"`
	} `json:"confidence"`

	// Configuration registers read back after capture, hex address -> hex value.
	Registers map[string]string `json:"registers,omitempty"`
	// Die temperature at the end of the capture, °C.
	TemperatureC *float64 `json:"temperature_c,omitempty"`

	Notes []string `json:"notes,omitempty"`
}

// registerDumper is a sensor that can read back its configuration.
type registerDumper interface {
	Registers() (map[string]string, error)
}

// thermometer is a sensor with a die temperature readout.
type thermometer interface {
	Temperature() (float64, error)
}

func validateCapture(n int, period time.Duration) error {
	if n <= 0 {
		return fmt.Errorf("sample count must be positive, got %d", n)
	}
	if period <= 0 {
		return fmt.Errorf("sample period must be positive, got %s", period)
	}
	return nil
}

// CaptureStill polls r n times, period apart, and returns the gyro and
// accelerometer series.
func CaptureStill(ctx context.Context, r imu.Reader, n int, period time.Duration) (gyro, accel []Vec3, source string, err error) {
	if err := validateCapture(n, period); err != nil {
		return nil, nil, "", err
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for len(gyro) < n {
		if err := r.Update(ctx); err != nil {
			return nil, nil, "", fmt.Errorf("sensor update: %w", err)
		}
		s, err := r.Read()
		if err != nil {
			return nil, nil, "", fmt.Errorf("sensor read: %w", err)
		}
		source = s.Source
		gyro = append(gyro, Vec3{s.GyroX, s.GyroY, s.GyroZ})
		accel = append(accel, Vec3{s.AccX, s.AccY, s.AccZ})

		select {
		case <-ctx.Done():
			return nil, nil, "", ctx.Err()
		case <-ticker.C:
		}
	}
	return gyro, accel, source, nil
}

// NewCalibrationReport scores captured still series.
func NewCalibrationReport(source string, gyro, accel []Vec3, dur time.Duration, at time.Time) CalibrationReport {
	res := CalibrationReport{
		SchemaVersion: 1,
		CheckedAt:     at.Format(time.RFC3339),
		Sensor:        source,
		Gyro:          computeStats(gyro, dur),
		Accel:         computeStats(accel, dur),
	}
	res.GravityNorm = res.Accel.Mean.Norm()
	res.Confidence.Stillness = stillnessConfidence(res.Gyro.StdDev)
	res.Confidence.Gravity = gravityConfidence(res.GravityNorm)
	res.Confidence.Overall = math.Min(res.Confidence.Stillness, res.Confidence.Gravity)

	if res.Confidence.Stillness < 0.5 {
		res.Notes = append(res.Notes, "gyro noisy: device may have moved during capture")
	}
	if res.Confidence.Gravity < 0.5 {
		res.Notes = append(res.Notes, fmt.Sprintf("gravity magnitude %.3fg far from 1g: check accelerometer range", res.GravityNorm))
	}
	return res
}

func computeStats(values []Vec3, dur time.Duration) PhaseStats {
	n := len(values)
	if n == 0 {
		return PhaseStats{Samples: 0, DurationSec: dur.Seconds()}
	}
	var sum, sumAbs Vec3
	for _, v := range values {
		sum.X += v.X
		sum.Y += v.Y
		sum.Z += v.Z
		sumAbs.X += math.Abs(v.X)
		sumAbs.Y += math.Abs(v.Y)
		sumAbs.Z += math.Abs(v.Z)
	}
	fn := float64(n)
	mean := Vec3{X: sum.X / fn, Y: sum.Y / fn, Z: sum.Z / fn}
	meanAbs := Vec3{X: sumAbs.X / fn, Y: sumAbs.Y / fn, Z: sumAbs.Z / fn}

	var vx, vy, vz float64
	for _, v := range values {
		dx := v.X - mean.X
		dy := v.Y - mean.Y
		dz := v.Z - mean.Z
		vx += dx * dx
		vy += dy * dy
		vz += dz * dz
	}

	return PhaseStats{
		Samples:     n,
		DurationSec: dur.Seconds(),
		Mean:        mean,
		MeanAbs:     meanAbs,
		StdDev:      Vec3{X: math.Sqrt(vx / fn), Y: math.Sqrt(vy / fn), Z: math.Sqrt(vz / fn)},
	}
}

func stillnessConfidence(std Vec3) float64 {
	// Use average std dev across axes.
	return rampConfidence((std.X+std.Y+std.Z)/3, stillStdGood, stillStdBad)
}

func gravityConfidence(norm float64) float64 {
	return rampConfidence(math.Abs(norm-1), gravityErrGood, gravityErrBad)
}

// rampConfidence is 1 up to good, confFloor from bad, linear in between.
func rampConfidence(x, good, bad float64) float64 {
	switch {
	case x <= good:
		return 1.0
	case x >= bad:
		return confFloor
	default:
		t := (x - good) / (bad - good)
		return clamp01(1.0 - (1.0-confFloor)*t)
	}
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// readBackSensor adds what the sensor can report about itself after the
// capture. Failures become notes.
func readBackSensor(res *CalibrationReport, src any, logger *zap.SugaredLogger) {
	if d, ok := src.(registerDumper); ok {
		regs, err := d.Registers()
		if err != nil {
			logger.Warnw("register read-back failed", "error", err)
			res.Notes = append(res.Notes, "register read-back failed")
		}
		res.Registers = regs
	}
	if th, ok := src.(thermometer); ok {
		temp, err := th.Temperature()
		if err != nil {
			logger.Warnw("temperature read failed", "error", err)
			res.Notes = append(res.Notes, "temperature read failed")
			return
		}
		res.TemperatureC = &temp
	}
}

// WriteCalibrationReport stores res as indented JSON in dir and returns the
// file path.
func WriteCalibrationReport(dir string, res CalibrationReport, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	name := filepath.Join(dir, fmt.Sprintf("%s_%s_mems_calibration.json", res.Sensor, at.Format("2006-01-02T15-04-05Z07-00")))

	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(name, b, 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// RunCalibrationCheck brings the sensor up (which calibrates the gyro),
// captures n still samples and writes a quality report to dir.
func RunCalibrationCheck(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, n int, period time.Duration, dir string) (err error) {
	if err := validateCapture(n, period); err != nil {
		return err
	}
	src, err := sensors.Open(ctx, cfg, logger.Named("sensor"))
	if err != nil {
		return fmt.Errorf("sensor bring-up: %w", err)
	}
	defer func() {
		err = multierr.Append(err, src.Close())
	}()

	logger.Infof("capturing %d samples, keep the device still", n)
	start := time.Now()
	gyro, accel, source, err := CaptureStill(ctx, src, n, period)
	if err != nil {
		return err
	}
	res := NewCalibrationReport(source, gyro, accel, time.Since(start), start)
	readBackSensor(&res, src, logger)

	path, err := WriteCalibrationReport(dir, res, start)
	if err != nil {
		return err
	}
	logger.Infow("calibration check complete",
		"residual_gyro_bias", res.Gyro.Mean,
		"gravity_norm", res.GravityNorm,
		"confidence", res.Confidence.Overall,
		"report", path)
	for _, note := range res.Notes {
		logger.Warn(note)
	}
	return nil
}
