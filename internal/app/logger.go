// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mayele-labs/mems_logger/internal/config"
)

// RunLogger initializes the logger hardware and samples until ctx is done.
func RunLogger(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, wait bool) (err error) {
	logger.Info("starting MEMS logger")

	sys, _ := Initialize(ctx, cfg, logger, wait, DefaultDeps())
	defer func() {
		err = multierr.Append(err, sys.Close())
	}()

	return sys.Run(ctx)
}
