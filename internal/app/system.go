// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mayele-labs/mems_logger/internal/config"
	"github.com/mayele-labs/mems_logger/internal/display"
	"github.com/mayele-labs/mems_logger/internal/imu"
	"github.com/mayele-labs/mems_logger/internal/sampler"
	"github.com/mayele-labs/mems_logger/internal/sensors"
	"github.com/mayele-labs/mems_logger/internal/state"
	"github.com/mayele-labs/mems_logger/internal/storage"
	"github.com/mayele-labs/mems_logger/internal/telemetry"
)

// Step names, in the order Initialize runs them.
const (
	StepStorage   = "storage"
	StepDisplay   = "display"
	StepSensor    = "sensor"
	StepTelemetry = "telemetry"
	StepWorking   = "working"
)

var (
	// errDisabled marks a step turned off by configuration.
	errDisabled = errors.New("disabled by configuration")
	errNoSensor = errors.New("no motion sensor")
)

// Panel messages for a storage step that failed before the display was up.
const (
	noticeMountFailed = "Card Mount Failed"
	noticeOpenFailed  = "Failed to open file for writing"
)

// StepResult is the outcome of one initialization step.
type StepResult struct {
	Name string
	Err  error
}

// OK reports whether the step succeeded.
func (r StepResult) OK() bool { return r.Err == nil }

// Skipped reports whether configuration turned the step off.
func (r StepResult) Skipped() bool { return errors.Is(r.Err, errDisabled) }

// Deps are the hardware and network openers Initialize uses. Tests replace
// them with fakes.
type Deps struct {
	Clock       clock.Clock
	OpenDisplay func(cfg *config.Config, logger *zap.SugaredLogger) (display.Device, error)
	OpenSensor  func(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (sensors.Source, error)
	ConnectMQTT func(broker, clientID string, logger *zap.SugaredLogger) (mqtt.Client, error)

	// Sensor bring-up backoff when waiting.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// DefaultDeps opens real hardware.
func DefaultDeps() Deps {
	return Deps{
		Clock: clock.New(),
		OpenDisplay: func(cfg *config.Config, logger *zap.SugaredLogger) (display.Device, error) {
			return display.OpenOLED(cfg.DisplayI2CBus, logger)
		},
		OpenSensor:    sensors.Open,
		ConnectMQTT:   telemetry.Connect,
		RetryDelay:    500 * time.Millisecond,
		MaxRetryDelay: 5 * time.Second,
	}
}

// System is everything the control loop owns.
type System struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	clock  clock.Clock

	State     *state.State
	Storage   *storage.Storage
	Console   *display.Console
	Sensor    sensors.Source
	Publisher *telemetry.Publisher
	Sampler   *sampler.Sampler

	panel display.Device
}

// Initialize brings the system up in order: storage probe and header,
// display, motion sensor, telemetry. No step is fatal; each sets its
// readiness flag only on success. A storage failure is shown on the display
// once it is up. Working is set once a sampler exists. With wait set, sensor
// bring-up is retried until it succeeds or ctx is done.
func Initialize(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, wait bool, deps Deps) (*System, []StepResult) {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	s := &System{
		cfg:    cfg,
		logger: logger,
		clock:  deps.Clock,
		State:  &state.State{},
	}

	storageErr := s.initStorage()
	results := []StepResult{
		{StepStorage, storageErr},
		{StepDisplay, s.initDisplay(deps)},
	}
	if storageErr != nil {
		s.notify(storageNotice(storageErr))
	}
	results = append(results,
		StepResult{StepSensor, s.initSensor(ctx, wait, deps)},
		StepResult{StepTelemetry, s.initTelemetry(deps)},
	)

	var lines sampler.LineSink
	if s.Console != nil {
		lines = s.Console
	}
	var publisher sampler.Publisher
	if s.Publisher != nil {
		publisher = s.Publisher
	}
	err := errNoSensor
	if s.Sensor != nil {
		s.Sampler, err = sampler.New(sampler.Config{
			Interval:  cfg.SampleEvery(),
			Clock:     s.clock,
			Sensor:    s.Sensor,
			State:     s.State,
			Display:   lines,
			Storage:   s.Storage,
			LogPath:   cfg.StorageLogFile,
			Publisher: publisher,
			Logger:    logger.Named("sampler"),
		})
	}
	if err == nil {
		s.State.Set(state.Working)
	}
	results = append(results, StepResult{StepWorking, err})

	for _, r := range results {
		switch {
		case r.Skipped():
			logger.Infow("init step skipped", "step", r.Name)
		case !r.OK():
			logger.Warnw("init step failed", "step", r.Name, "error", r.Err)
		}
	}
	logger.Infow("initialization complete", "state", s.State.String())
	return s, results
}

func storageNotice(err error) string {
	if errors.Is(err, storage.ErrStorageUnavailable) {
		return noticeMountFailed
	}
	return noticeOpenFailed
}

// notify prints msg on the display when there is one.
func (s *System) notify(msg string) {
	if s.Console == nil {
		return
	}
	if err := s.Console.PrintLine(msg); err != nil {
		s.logger.Warnw("display notice failed", "notice", msg, "error", err)
	}
}

func (s *System) initStorage() error {
	s.Storage = storage.New(s.cfg.StorageRoot, s.logger.Named("storage"))
	if err := s.Storage.CheckStorage(); err != nil {
		return err
	}
	if err := s.Storage.WriteHeader(s.cfg.StorageLogFile, imu.Header+"\n"); err != nil {
		return err
	}
	s.State.Set(state.StorageReady)
	return nil
}

func (s *System) initDisplay(deps Deps) error {
	if !s.cfg.DisplayEnabled {
		return errDisabled
	}
	if deps.OpenDisplay == nil {
		return errors.New("no display opener")
	}
	panel, err := deps.OpenDisplay(s.cfg, s.logger.Named("display"))
	if err != nil {
		return err
	}
	console, err := display.NewConsole(panel, s.cfg.DisplayTextScale)
	if err == nil {
		err = console.Init()
	}
	if err != nil {
		return multierr.Append(err, panel.Close())
	}
	s.panel = panel
	s.Console = console
	s.State.Set(state.DisplayReady)
	cols, rows := console.Size()
	s.logger.Infow("display ready", "cols", cols, "rows", rows)
	return nil
}

func (s *System) initSensor(ctx context.Context, wait bool, deps Deps) error {
	if deps.OpenSensor == nil {
		return errors.New("no sensor opener")
	}
	logger := s.logger.Named("sensor")
	delay := deps.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	for {
		src, err := deps.OpenSensor(ctx, s.cfg, logger)
		if err == nil {
			s.Sensor = src
			s.State.Set(state.MEMSReady)
			return nil
		}
		if !wait {
			return err
		}
		logger.Warnw("sensor bring-up failed, retrying", "error", err, "in", delay)
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (gave up: %w)", err, ctx.Err())
		case <-s.clock.After(delay):
		}
		delay *= 2
		if deps.MaxRetryDelay > 0 && delay > deps.MaxRetryDelay {
			delay = deps.MaxRetryDelay
		}
	}
}

func (s *System) initTelemetry(deps Deps) error {
	if s.cfg.MQTTBroker == "" {
		return errDisabled
	}
	if deps.ConnectMQTT == nil {
		return errors.New("no MQTT connector")
	}
	client, err := deps.ConnectMQTT(s.cfg.MQTTBroker, s.cfg.MQTTClientIDLogger, s.logger.Named("mqtt"))
	if err != nil {
		return err
	}
	s.Publisher = telemetry.NewPublisher(client, s.cfg.TopicSample)
	return nil
}

// Run invokes the sampler every poll interval until ctx is done. It returns
// nil on cancellation; tick failures are logged and the loop continues.
func (s *System) Run(ctx context.Context) error {
	ticker := s.clock.Ticker(s.cfg.PollEvery())
	defer ticker.Stop()

	if s.Sampler == nil {
		s.logger.Warn("no motion sensor, sampling disabled")
	}
	s.logger.Infow("main loop started", "sample_interval", s.cfg.SampleEvery(), "poll_interval", s.cfg.PollEvery())

	for {
		select {
		case <-ctx.Done():
			var fields []any
			if s.Sampler != nil {
				fields = append(fields, "samples", s.Sampler.Emitted())
				if last, ok := s.Sampler.Current(); ok {
					fields = append(fields, "last", last.DisplayLine())
				}
			}
			s.logger.Infow("main loop stopped", fields...)
			return nil
		case <-ticker.C:
			if s.Sampler == nil {
				continue
			}
			if _, err := s.Sampler.Tick(ctx); err != nil && !errors.Is(err, sampler.ErrSensorNotReady) {
				s.logger.Warnw("sample failed", "error", err)
			}
		}
	}
}

// Close releases the sensor, the display and the MQTT session, and logs the
// log file totals.
func (s *System) Close() error {
	if s.Storage != nil && s.State.Check(state.StorageReady) {
		appended, dropped := s.Storage.Stats()
		s.logger.Infow("storage totals", "root", s.Storage.Root(), "appended", appended, "dropped", dropped)
	}
	var err error
	if s.Sensor != nil {
		err = multierr.Append(err, s.Sensor.Close())
	}
	if s.panel != nil {
		err = multierr.Append(err, s.panel.Close())
	}
	if s.Publisher != nil {
		err = multierr.Append(err, s.Publisher.Close())
	}
	return err
}
