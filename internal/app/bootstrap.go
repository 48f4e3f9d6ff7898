package app

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mayele-labs/mems_logger/internal/config"
	"github.com/mayele-labs/mems_logger/internal/logging"
)

// Bootstrap loads the global configuration and builds the process logger on
// the configured console. The caller closes the console on exit.
func Bootstrap(configPath, name string) (*config.Config, *zap.SugaredLogger, *logging.Console, error) {
	if err := config.InitGlobal(configPath); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg := config.Get()

	console, err := logging.OpenConsole(cfg.ConsoleSerialPort, cfg.ConsoleBaudRate)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel, console)
	if err != nil {
		console.Close()
		return nil, nil, nil, err
	}
	return cfg, logger.Named(name), console, nil
}

// Shutdown logs a fatal err, flushes logger and closes console, in that
// order. It returns the process exit code.
func Shutdown(logger *zap.SugaredLogger, console io.Closer, err error) int {
	if err != nil {
		logger.Errorf("fatal: %v", err)
	}
	_ = logger.Sync()
	_ = console.Close()
	if err != nil {
		return 1
	}
	return 0
}
