// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package state tracks which peripherals finished initialization.
package state

import "strings"

// Flags is a set of readiness bits.
type Flags uint16

// Each flag owns a distinct bit so that checking one never matches another.
const (
	StorageReady Flags = 1 << iota
	MEMSReady
	DisplayReady
	Working
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{StorageReady, "storage"},
	{MEMSReady, "mems"},
	{DisplayReady, "display"},
	{Working, "working"},
}

// State is the readiness bitmask owned by the main control loop.
// The zero value has no flags set.
type State struct {
	flags Flags
}

// Check reports whether every bit in flags is set.
func (s *State) Check(flags Flags) bool { return s.flags&flags == flags }

// Set sets the given bits.
func (s *State) Set(flags Flags) { s.flags |= flags }

// Clear clears the given bits.
func (s *State) Clear(flags Flags) { s.flags &^= flags }

// Flags returns the raw mask.
func (s *State) Flags() Flags { return s.flags }

func (s *State) String() string { return s.flags.String() }

func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return strings.Join(names, "|")
}
