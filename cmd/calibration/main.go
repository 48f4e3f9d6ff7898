// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Calibration check for the motion sensor: brings it up (which measures the
// gyro offsets), then captures samples with the device lying still and
// writes a JSON quality report.
//
// Run:
//
//	go run ./cmd/calibration -samples 500
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mayele-labs/mems_logger/internal/app"
)

func main() {
	configPath := flag.String("config", "./mems_config.txt", "path to configuration file")
	samples := flag.Int("samples", 500, "number of still samples to capture")
	period := flag.Duration("period", 10*time.Millisecond, "time between samples")
	outDir := flag.String("out", "./calibration", "directory for the report")
	flag.Parse()

	cfg, logger, console, err := app.Bootstrap(*configPath, "calibration")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = app.RunCalibrationCheck(ctx, cfg, logger, *samples, *period, *outDir)
	stop()
	os.Exit(app.Shutdown(logger, console, err))
}
