// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logging builds the zap loggers every component writes its
// diagnostics to, and the console those loggers print on.
package logging

import (
	"fmt"
	"io"
	"os"

	serial "github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EncoderConfig is the console layout used on stdout and on the UART.
func EncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// New returns a sugared logger writing console-encoded entries at or above
// level ("debug", "info", "warn", "error") to out.
func New(level string, out io.Writer) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(EncoderConfig()),
		zapcore.AddSync(out),
		zap.NewAtomicLevelAt(lvl),
	)
	return zap.New(core).Sugar(), nil
}

// Console is where diagnostics are printed: stdout, mirrored to a serial
// port when one is configured.
type Console struct {
	io.Writer
	port io.Closer
}

// OpenConsole opens the console. An empty portName gives a stdout-only console.
func OpenConsole(portName string, baudRate int) (*Console, error) {
	if portName == "" {
		return &Console{Writer: os.Stdout}, nil
	}

	port, err := serial.Open(serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("console serial port %s: %w", portName, err)
	}
	return &Console{Writer: io.MultiWriter(os.Stdout, port), port: port}, nil
}

// Close releases the serial port, if any.
func (c *Console) Close() error {
	if c.port == nil {
		return nil
	}
	return c.port.Close()
}
