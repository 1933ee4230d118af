// Package logging configures the structured loggers used across simmurator.
//
// It wraps log/slog so every component logs with the same level and format,
// chosen once from config at startup:
//
//	log := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatJSON,
//	})
//	log.Info("starting HTTP server", "port", 4040)
//
// Components accept a *slog.Logger through an option or setter and default to
// logging.Nop() when none is given. Component tags a logger with the name of
// the subsystem that owns it.
package logging
