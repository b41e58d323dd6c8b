/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package logs

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the application logger. Log lines go to logFilePath (created on
// demand, append mode); withConsole adds a human-readable mirror on stdout.
// The returned logger is also installed as the zerolog global.
func New(logFilePath string, withConsole bool) (zerolog.Logger, error) {
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var writer io.Writer = logFile
	if withConsole {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		writer = zerolog.MultiLevelWriter(logFile, consoleWriter)
	}

	logger := zerolog.New(writer).With().
		Timestamp().
		Caller().
		Logger()

	log.Logger = logger
	return logger, nil
}
