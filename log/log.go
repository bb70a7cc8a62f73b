// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package log wires every other package's btclog.Logger to a shared,
// optionally rotating output and gives a cmd/ltcspv-demo-style front end
// a single place to set per-subsystem verbosity.
package log

import (
	"fmt"
	"os"
	"sort"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/ltcsuite/ltcspv/addrmgr"
	"github.com/ltcsuite/ltcspv/blockstore"
	"github.com/ltcsuite/ltcspv/chainengine"
	"github.com/ltcsuite/ltcspv/checkpoints"
	"github.com/ltcsuite/ltcspv/peer"
	"github.com/ltcsuite/ltcspv/peergroup"
	"github.com/ltcsuite/ltcspv/txrelay"
)

// logWriter implements an io.Writer that outputs to both standard output
// and the rotating log file.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	return logRotator.Write(p)
}

// backendLog is the logging backend used to create all subsystem
// loggers. The backend must not be used before InitLogRotator is
// called.
var backendLog = btclog.NewBackend(logWriter{})

// logRotator is a log rotator that writes to a directory intended for
// log files. It must be called before the backend log is used, normally
// early in the parent process's startup.
var logRotator *rotator.Rotator

// subsystemLoggers maps each subsystem identifier to its logger so
// SetLogLevel/SetLogLevels can reach every package from one place
// without each package needing to know about the others. Each entry
// both creates the subsystem's logger and hands it to that package's
// own UseLogger, so this map's construction is the wiring step.
var subsystemLoggers = newSubsystemLoggers()

func newSubsystemLoggers() map[string]btclog.Logger {
	loggers := map[string]btclog.Logger{
		"CHEN": backendLog.Logger("CHEN"),
		"PEER": backendLog.Logger("PEER"),
		"PRGP": backendLog.Logger("PRGP"),
		"TXRL": backendLog.Logger("TXRL"),
		"ADXM": backendLog.Logger("ADXM"),
		"BLKS": backendLog.Logger("BLKS"),
		"CKPT": backendLog.Logger("CKPT"),
	}

	chainengine.UseLogger(loggers["CHEN"])
	peer.UseLogger(loggers["PEER"])
	peergroup.UseLogger(loggers["PRGP"])
	txrelay.UseLogger(loggers["TXRL"])
	addrmgr.UseLogger(loggers["ADXM"])
	blockstore.UseLogger(loggers["BLKS"])
	checkpoints.UseLogger(loggers["CKPT"])

	return loggers
}

// InitLogRotator initializes the logging rotator to write logs to
// logFile and create roll files in the same directory. It must be
// called before the package-level log rotator variables are used.
func InitLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("log: failed to create file rotator: %w", err)
	}
	logRotator = r
	return nil
}

// SetLogLevel sets the logging level for the provided subsystem. Invalid
// subsystems are ignored. Uninitialized subsystems are also ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}
	level, ok := btclog.LevelFromString(logLevel)
	if !ok {
		return
	}
	logger.SetLevel(level)
}

// SetLogLevels sets the log level for every registered subsystem.
// Invalid log levels are ignored.
func SetLogLevels(logLevel string) {
	for subsystemID := range subsystemLoggers {
		SetLogLevel(subsystemID, logLevel)
	}
}

// SupportedSubsystems returns a sorted slice of the supported subsystems
// for logging purposes, used by a CLI front end to validate a
// --debuglevel flag and print usage text.
func SupportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}
