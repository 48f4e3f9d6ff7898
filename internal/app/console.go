package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mayele-labs/mems_logger/internal/config"
	"github.com/mayele-labs/mems_logger/internal/telemetry"
)

// ConsoleLine renders one published sample for a terminal.
func ConsoleLine(p telemetry.Payload) string {
	return fmt.Sprintf("[MEMS] %s  ROLL=%6.2f  PITCH=%6.2f",
		p.MotionSample.DisplayLine(), p.Roll, p.Pitch)
}

// RunConsole prints every published sample to out until ctx is done.
func RunConsole(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, out io.Writer) error {
	if cfg.MQTTBroker == "" {
		return errors.New("console: MQTT_BROKER is not configured")
	}
	client, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientIDConsole, logger.Named("mqtt"))
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	err = telemetry.Subscribe(client, cfg.TopicSample, logger, func(p telemetry.Payload) {
		fmt.Fprintln(out, ConsoleLine(p))
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("console: shutting down")
	return nil
}
