package sensors

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/mayele-labs/mems_logger/internal/config"
	"github.com/mayele-labs/mems_logger/internal/imu"
)

// Source is a motion sensor owned by the control loop.
type Source interface {
	imu.Reader
	Close() error
}

// Open brings up the motion sensor described by cfg: the mock source when
// IMU_MOCK is set, otherwise an MPU-6050 on the configured I2C bus.
func Open(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (Source, error) {
	if cfg.IMUMock {
		logger.Info("using mock motion source")
		return NewMockSource(clock.New()), nil
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(cfg.IMUI2CBus)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %q: %w", cfg.IMUI2CBus, err)
	}

	dev := &i2c.Dev{Bus: bus, Addr: cfg.IMUI2CAddr}
	m, err := NewMPU6050(ctx, dev, Options{
		AccelRange:         cfg.IMUAccelRange,
		GyroRange:          cfg.IMUGyroRange,
		DLPF:               cfg.IMUDLPFConfig,
		SampleRateDiv:      cfg.IMUSampleRateDiv,
		CalibrationSamples: cfg.IMUCalibrationSamples,
	}, logger)
	if err != nil {
		return nil, multierr.Append(err, bus.Close())
	}
	logger.Infof("MPU-6050 ready at %s", dev)
	return &i2cSource{MPU6050: m, bus: bus}, nil
}

type i2cSource struct {
	*MPU6050
	bus i2c.BusCloser
}

func (s *i2cSource) Close() error {
	return multierr.Combine(s.Sleep(), s.bus.Close())
}
