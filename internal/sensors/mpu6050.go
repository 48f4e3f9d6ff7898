// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"periph.io/x/conn/v3"

	"github.com/mayele-labs/mems_logger/internal/imu"
)

var (
	// ErrNoSample is returned by Read before the first successful Update.
	ErrNoSample = errors.New("no sample read yet")
	// ErrWrongDevice is returned when WHO_AM_I does not identify an MPU-6050.
	ErrWrongDevice = errors.New("device is not an MPU-6050")
)

// Options configures the MPU-6050 at bring-up.
type Options struct {
	AccelRange         byte // 0-3
	GyroRange          byte // 0-3
	DLPF               byte // 0-6
	SampleRateDiv      byte
	CalibrationSamples int // still samples averaged into the gyro offset, 0 disables

	// Clock paces calibration reads. Defaults to the wall clock.
	Clock clock.Clock
}

// MPU6050 reads acceleration (g) and angular velocity (°/s) from an MPU-6050.
type MPU6050 struct {
	name   string
	dev    conn.Conn
	logger *zap.SugaredLogger
	clock  clock.Clock

	accelLSB   float64
	gyroLSB    float64
	gyroOffset [3]float64

	calibrationDelay time.Duration

	last imu.MotionSample
	have bool
}

// NewMPU6050 identifies, wakes and configures the chip behind dev, then
// calibrates the gyro offsets if opts asks for it.
func NewMPU6050(ctx context.Context, dev conn.Conn, opts Options, logger *zap.SugaredLogger) (*MPU6050, error) {
	if opts.AccelRange > 3 || opts.GyroRange > 3 {
		return nil, fmt.Errorf("mpu6050: range out of bounds (accel=%d gyro=%d)", opts.AccelRange, opts.GyroRange)
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	m := &MPU6050{
		name:             "mpu6050",
		dev:              dev,
		logger:           logger,
		clock:            opts.Clock,
		accelLSB:         accelLSBPerG[opts.AccelRange],
		gyroLSB:          gyroLSBPerDPS[opts.GyroRange],
		calibrationDelay: 3 * time.Millisecond,
	}

	id, err := m.readReg(regWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("%s: read WHO_AM_I: %w", m.name, err)
	}
	if id&0x7E != whoAmIValue {
		return nil, fmt.Errorf("%s: WHO_AM_I=0x%02X: %w", m.name, id, ErrWrongDevice)
	}

	// The chip powers up asleep; clear SLEEP and clock from the X gyro PLL.
	if err := m.writeReg(regPwrMgmt1, pwrClockPLLGyroX); err != nil {
		return nil, fmt.Errorf("%s: wake: %w", m.name, err)
	}
	if err := m.writeReg(regSmplrtDiv, opts.SampleRateDiv); err != nil {
		return nil, fmt.Errorf("%s: set sample rate divider: %w", m.name, err)
	}
	if err := m.writeReg(regConfig, opts.DLPF&0x07); err != nil {
		return nil, fmt.Errorf("%s: set DLPF config: %w", m.name, err)
	}
	if err := m.writeReg(regGyroConfig, opts.GyroRange<<3); err != nil {
		return nil, fmt.Errorf("%s: set gyro range: %w", m.name, err)
	}
	logger.Infof("gyroscope range set to %d (±%d°/s)", opts.GyroRange, []int{250, 500, 1000, 2000}[opts.GyroRange])
	if err := m.writeReg(regAccelConfig, opts.AccelRange<<3); err != nil {
		return nil, fmt.Errorf("%s: set accel range: %w", m.name, err)
	}
	logger.Infof("accelerometer range set to %d (±%dg)", opts.AccelRange, []int{2, 4, 8, 16}[opts.AccelRange])

	outputRate := 1000 / (1 + int(opts.SampleRateDiv))
	logger.Infof("DLPF config %d, sample rate divider %d (output rate: %d Hz)", opts.DLPF, opts.SampleRateDiv, outputRate)

	if opts.CalibrationSamples > 0 {
		if err := m.Calibrate(ctx, opts.CalibrationSamples); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Calibrate averages n readings taken while the sensor is still and uses
// the result as the gyro zero offset.
func (m *MPU6050) Calibrate(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("%s: calibration needs at least one sample", m.name)
	}
	m.logger.Infof("calculating gyro offsets over %d samples, do not move the sensor", n)

	var sum [3]float64
	for i := 0; i < n; i++ {
		raw, err := m.readBurst()
		if err != nil {
			return fmt.Errorf("%s: calibration sample %d: %w", m.name, i, err)
		}
		for axis := 0; axis < 3; axis++ {
			sum[axis] += float64(raw[4+axis]) / m.gyroLSB
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.clock.After(m.calibrationDelay):
		}
	}
	for axis := range sum {
		m.gyroOffset[axis] = sum[axis] / float64(n)
	}
	m.logger.Infof("gyro offsets: X=%.3f Y=%.3f Z=%.3f °/s", m.gyroOffset[0], m.gyroOffset[1], m.gyroOffset[2])
	return nil
}

// Update reads a fresh accel + gyro burst and caches it for Read.
func (m *MPU6050) Update(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := m.readBurst()
	if err != nil {
		return fmt.Errorf("%s: read data: %w", m.name, err)
	}
	m.last = imu.MotionSample{
		Source: m.name,
		AccX:   float64(raw[0]) / m.accelLSB,
		AccY:   float64(raw[1]) / m.accelLSB,
		AccZ:   float64(raw[2]) / m.accelLSB,
		GyroX:  float64(raw[4])/m.gyroLSB - m.gyroOffset[0],
		GyroY:  float64(raw[5])/m.gyroLSB - m.gyroOffset[1],
		GyroZ:  float64(raw[6])/m.gyroLSB - m.gyroOffset[2],
	}
	m.have = true
	return nil
}

// Read returns the sample cached by the last successful Update.
func (m *MPU6050) Read() (imu.MotionSample, error) {
	if !m.have {
		return imu.MotionSample{}, fmt.Errorf("%s: %w", m.name, ErrNoSample)
	}
	return m.last, nil
}

// Temperature reads the die temperature in °C.
func (m *MPU6050) Temperature() (float64, error) {
	raw, err := m.readBurst()
	if err != nil {
		return 0, fmt.Errorf("%s: read temperature: %w", m.name, err)
	}
	// Register map formula.
	return float64(raw[3])/340.0 + 36.53, nil
}

// Sleep puts the chip back into its low-power sleep mode.
func (m *MPU6050) Sleep() error {
	return m.writeReg(regPwrMgmt1, pwrSleep)
}

func (m *MPU6050) String() string { return m.name }

// Registers reads back the configuration registers as a hex address to hex
// value map.
func (m *MPU6050) Registers() (map[string]string, error) {
	regs := make(map[string]string, len(configRegisters))
	for _, reg := range configRegisters {
		v, err := m.readReg(reg)
		if err != nil {
			return nil, fmt.Errorf("%s: read register 0x%02X: %w", m.name, reg, err)
		}
		regs[fmt.Sprintf("0x%02X", reg)] = fmt.Sprintf("0x%02X", v)
	}
	return regs, nil
}

// readBurst returns ax, ay, az, temp, gx, gy, gz as signed counts.
func (m *MPU6050) readBurst() ([7]int16, error) {
	var out [7]int16
	buf := make([]byte, burstLen)
	if err := m.dev.Tx([]byte{regAccelXOutH}, buf); err != nil {
		return out, err
	}
	for i := range out {
		out[i] = int16(uint16(buf[2*i])<<8 | uint16(buf[2*i+1]))
	}
	return out, nil
}

func (m *MPU6050) readReg(reg byte) (byte, error) {
	buf := make([]byte, 1)
	if err := m.dev.Tx([]byte{reg}, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (m *MPU6050) writeReg(reg, value byte) error {
	return m.dev.Tx([]byte{reg, value}, nil)
}
