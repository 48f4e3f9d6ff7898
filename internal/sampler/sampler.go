// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sampler drives the motion sensor at a fixed cadence and fans each
// emitted sample out to the display, the CSV log and optional telemetry.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mayele-labs/mems_logger/internal/imu"
	"github.com/mayele-labs/mems_logger/internal/state"
)

// ErrSensorNotReady is returned by Tick while the motion sensor has not
// completed bring-up.
var ErrSensorNotReady = errors.New("motion sensor not ready")

// LineSink receives the human-readable projection of a sample.
type LineSink interface {
	PrintLine(text string) error
}

// RecordSink receives the log record of a sample.
type RecordSink interface {
	AppendRecord(path, line string) error
}

// Publisher receives every emitted sample with its emission time.
type Publisher interface {
	Publish(ctx context.Context, s imu.MotionSample, at time.Time) error
}

// Config wires a Sampler. Sensor and State are required; Display, Storage
// and Publisher may be nil.
type Config struct {
	Interval  time.Duration
	Clock     clock.Clock
	Sensor    imu.Reader
	State     *state.State
	Display   LineSink
	Storage   RecordSink
	LogPath   string
	Publisher Publisher
	Logger    *zap.SugaredLogger
}

// Sampler owns the sampling clock and the current MotionSample. Tick must
// be called from a single goroutine; Current may be called from any.
type Sampler struct {
	interval  time.Duration
	clock     clock.Clock
	sensor    imu.Reader
	state     *state.State
	display   LineSink
	storage   RecordSink
	logPath   string
	publisher Publisher
	logger    *zap.SugaredLogger

	last time.Time

	mu      sync.RWMutex
	current imu.MotionSample
	have    bool
	emitted uint64
}

// New returns a Sampler whose first sample is due one interval from now.
func New(cfg Config) (*Sampler, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sampler: interval must be positive, got %v", cfg.Interval)
	}
	if cfg.Sensor == nil {
		return nil, errors.New("sampler: sensor is required")
	}
	if cfg.State == nil {
		return nil, errors.New("sampler: state is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Sampler{
		interval:  cfg.Interval,
		clock:     cfg.Clock,
		sensor:    cfg.Sensor,
		state:     cfg.State,
		display:   cfg.Display,
		storage:   cfg.Storage,
		logPath:   cfg.LogPath,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		last:      cfg.Clock.Now(),
	}, nil
}

// Tick runs one sampler invocation. The sensor is updated on every call;
// a sample is read and dispatched only once a full interval has passed
// since the last emitted one. A failed update or read leaves the cadence
// clock untouched so the next call retries. Sink failures are combined in
// the returned error and do not un-emit the sample.
func (s *Sampler) Tick(ctx context.Context) (bool, error) {
	if !s.state.Check(state.MEMSReady) {
		return false, ErrSensorNotReady
	}
	if err := s.sensor.Update(ctx); err != nil {
		return false, fmt.Errorf("sensor update: %w", err)
	}

	now := s.clock.Now()
	if now.Sub(s.last) < s.interval {
		return false, nil
	}

	sample, err := s.sensor.Read()
	if err != nil {
		return false, fmt.Errorf("sensor read: %w", err)
	}
	s.last = now

	s.mu.Lock()
	s.current = sample
	s.have = true
	s.emitted++
	s.mu.Unlock()

	var errs error
	if s.display != nil && s.state.Check(state.DisplayReady) {
		if err := s.display.PrintLine(sample.DisplayLine()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("display: %w", err))
		}
	}
	if s.storage != nil && s.state.Check(state.StorageReady) {
		if err := s.storage.AppendRecord(s.logPath, sample.Record()); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, sample, now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish: %w", err))
		}
	}
	s.logger.Debugw("sample emitted", "line", sample.DisplayLine())
	return true, errs
}

// Current returns the most recently emitted sample; ok is false until the
// first one.
func (s *Sampler) Current() (sample imu.MotionSample, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.have
}

// Emitted returns how many samples have been emitted.
func (s *Sampler) Emitted() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emitted
}
