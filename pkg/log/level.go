package log

import (
	"errors"
	"strings"
)

// Level is the severity of a log entry. Higher is more severe.
type Level int

const (
	Trace Level = iota
	Debug
	Info
	Warn
	Error
	Fatal
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if l < Trace || l > Fatal {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ErrInvalidLevel is returned by ParseLevel for an unknown name.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel maps a case-insensitive level name to its Level. WARNING is
// accepted for Warn. Unknown names yield Info and ErrInvalidLevel.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(s)
	if name == "WARNING" {
		return Warn, nil
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return Info, ErrInvalidLevel
}

// ParseLevelOr parses s, returning fallback for an empty or unknown name.
func ParseLevelOr(s string, fallback Level) Level {
	l, err := ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return l
}

// Enables reports whether a logger set to l emits entries at target.
func (l Level) Enables(target Level) bool {
	return target >= l
}
