/*
Package log provides structured logging for the scheduler using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-scoped child loggers, a configurable level/format, and helper
functions for common logging patterns.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│  Global Logger (zerolog.Logger, set by log.Init)          │
	│         │                                                 │
	│  Component loggers: WithComponent("resolvers"),           │
	│  WithNodeID(id), WithServiceID(id), WithInstanceID(id)    │
	│         │                                                 │
	│  Console (human) or JSON output, to stdout or a writer    │
	└────────────────────────────────────────────────────────────┘

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	passLogger := log.WithComponent("scheduler")
	passLogger.Info().Dur("duration", d).Msg("pass completed")

	nodeLogger := log.WithComponent("resolvers").With().Str("node_id", n.ID).Logger()
	nodeLogger.Warn().Msg("node drained after failure event")

# Integration points

  - pkg/scheduler logs pass completion with its duration, and SchedulingError aborts.
  - pkg/resolvers logs per-entity resolution decisions at debug level.
  - pkg/api and pkg/eventserver log request/event handling outcomes.
*/
package log
