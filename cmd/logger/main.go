// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mayele-labs/mems_logger/internal/app"
)

func main() {
	configPath := flag.String("config", "./mems_config.txt", "path to configuration file")
	wait := flag.Bool("wait", false, "retry motion sensor bring-up until it succeeds")
	flag.Parse()

	cfg, logger, console, err := app.Bootstrap(*configPath, "mems")
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = app.RunLogger(ctx, cfg, logger, *wait)
	stop()
	os.Exit(app.Shutdown(logger, console, err))
}
