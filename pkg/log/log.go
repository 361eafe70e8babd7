// Package log wraps zerolog with the set of scoped child loggers the
// reconciliation pipeline and its transports need: one per entity kind
// plus one per pass, so every line a resolver or handler emits carries
// the id of the thing it acted on.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide base logger. Init sets it; every With* helper
// derives a child from it.
var Logger zerolog.Logger

// Level is the configured verbosity, read from Config.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls how Init builds the base logger.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init builds the base Logger from cfg. JSONOutput picks a structured
// encoder for production; otherwise a console writer suits local `pass`
// invocations and development.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent scopes a logger to one of the scheduler's subsystems
// (api, eventserver, scheduler, ...).
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithNodeID scopes a logger to a single node, for the node resolver and
// node event handlers.
func WithNodeID(nodeID string) zerolog.Logger {
	return Logger.With().Str("node_id", nodeID).Logger()
}

// WithServiceID scopes a logger to a single service, for the service
// resolver and its CRUD handlers.
func WithServiceID(serviceID string) zerolog.Logger {
	return Logger.With().Str("service_id", serviceID).Logger()
}

// WithInstanceID scopes a logger to a single service instance, for the
// instance resolver's grow/shrink/placement decisions and instance event
// handlers.
func WithInstanceID(instanceID string) zerolog.Logger {
	return Logger.With().Str("instance_id", instanceID).Logger()
}

// WithPassID scopes a logger to one reconciliation pass, keyed by the
// same id the pass's SchedulerLog entry is stored under, so a pass's
// summary line can be joined back to its persisted record.
func WithPassID(passID string) zerolog.Logger {
	return Logger.With().Str("pass_id", passID).Logger()
}
