// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/mayele-labs/mems_logger/internal/imu"
)

type mockSource struct {
	clock clock.Clock
	start time.Time
	last  imu.MotionSample
	have  bool
}

// NewMockSource creates a motion source that generates smooth changing
// values, for running without hardware.
func NewMockSource(c clock.Clock) Source {
	return &mockSource{clock: c, start: c.Now()}
}

func (m *mockSource) Update(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	elapsed := m.clock.Since(m.start).Seconds()

	// Gentle rocking about X and Y with gravity mostly on Z.
	roll := 0.35 * math.Sin(elapsed)
	pitch := 0.26 * math.Cos(elapsed*0.7)
	m.last = imu.MotionSample{
		Source: "mock",
		AccX:   -math.Sin(pitch),
		AccY:   math.Sin(roll) * math.Cos(pitch),
		AccZ:   math.Cos(roll) * math.Cos(pitch),
		GyroX:  0.35 * math.Cos(elapsed) * 180 / math.Pi,
		GyroY:  -0.26 * 0.7 * math.Sin(elapsed*0.7) * 180 / math.Pi,
		GyroZ:  0,
	}
	m.have = true
	return nil
}

func (m *mockSource) Read() (imu.MotionSample, error) {
	if !m.have {
		return imu.MotionSample{}, fmt.Errorf("mock: %w", ErrNoSample)
	}
	return m.last, nil
}

func (m *mockSource) Close() error { return nil }
