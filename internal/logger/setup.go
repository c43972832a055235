package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level      string
	Format     string // "pretty" or "json"
	WithCaller bool
	Output     io.Writer
	TimeFormat string
}

// DefaultConfig returns the CLI defaults
func DefaultConfig() *Config {
	return &Config{
		Level:      "warn",
		Format:     "pretty",
		WithCaller: false,
		Output:     os.Stderr,
		TimeFormat: time.RFC3339,
	}
}

// InitLogger builds a logger from config. The level is applied to the
// returned logger only, so callers embedding the library keep control of
// the global level.
func InitLogger(config *Config) zerolog.Logger {
	if config == nil {
		config = DefaultConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	var output io.Writer = out
	if config.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	logger := zerolog.New(output).
		Level(ParseLevel(config.Level)).
		With().
		Timestamp().
		Str("app", "svcbase").
		Logger()

	if config.WithCaller {
		logger = logger.With().Caller().Logger()
	}

	return logger
}

// ParseLevel converts a level name to zerolog.Level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// SetupFromFlags configures the CLI logger from -v/--debug/--log-format,
// writing to out (stderr when nil)
func SetupFromFlags(out io.Writer, verbose, debug bool, format string) zerolog.Logger {
	config := DefaultConfig()
	if out != nil {
		config.Output = out
	}

	switch {
	case debug:
		config.Level = "debug"
		config.WithCaller = true
	case verbose:
		config.Level = "info"
	}
	if format != "" {
		config.Format = format
	}

	return InitLogger(config)
}

// ForComponent creates a logger with component context
func ForComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// ForAction creates a logger with remote action context
func ForAction(logger zerolog.Logger, method, action string) zerolog.Logger {
	return logger.With().
		Str("method", method).
		Str("action", action).
		Logger()
}

// ForMCP creates a logger with MCP context
func ForMCP(logger zerolog.Logger, tool string) zerolog.Logger {
	return logger.With().
		Str("mcp_tool", tool).
		Str("component", "mcp").
		Logger()
}
