package config

import (
	"feedthread/pkg/log"
	"feedthread/pkg/log/transporters"
)

// Logger builds the process logger. Stdout gets LogLevel and above. When
// LogFile is set the file also keeps Debug entries.
func (c Config) Logger() (*log.Logger, error) {
	if c.LogFile == "" {
		return log.New(c.LogLevel, transporters.NewStdout()), nil
	}

	f, err := transporters.NewFile(c.LogFile)
	if err != nil {
		return nil, err
	}
	fileLevel := min(c.LogLevel, log.Debug)
	return log.New(fileLevel,
		log.AtLeast(c.LogLevel, transporters.NewStdout()),
		log.AtLeast(fileLevel, f),
	), nil
}
