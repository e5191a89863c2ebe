// Package logging configures the logrus logger shared by iwls commands.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config controls basic logger behaviour.
type Config struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// New constructs a logger writing to stderr, so reports on stdout stay clean.
func New(cfg Config) *logrus.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter constructs a logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(parseLevel(cfg.Level))

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			DisableQuote:     true,
			QuoteEmptyFields: true,
		})
	}
	return l
}

// NewFromEnv uses IWLS_LOG_LEVEL and IWLS_LOG_FORMAT, defaulting to text at
// info level.
func NewFromEnv() *logrus.Logger {
	return New(Config{
		Level:  os.Getenv("IWLS_LOG_LEVEL"),
		Format: os.Getenv("IWLS_LOG_FORMAT"),
	})
}

// Noop returns a logger that drops everything.
func Noop() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// parseLevel falls back to info for empty or unknown levels.
func parseLevel(level string) logrus.Level {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}
