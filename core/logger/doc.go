// Package logger provides structured logging helpers built on log/slog.
//
// New creates a text or JSON logger; Nop returns a logger that discards output,
// which is the default for every component that accepts a logger option.
//
//	log := logger.New(logger.WithLevel(slog.LevelDebug), logger.WithJSONFormatter())
//	log.Info("transition committed",
//		logger.Component("state"),
//		logger.State("users.detail"),
//		logger.Params(params),
//	)
//
// Attribute helpers return an empty slog.Attr for nil or empty input, so they
// can be passed unconditionally:
//
//	log.Error("transition failed", logger.Error(err))
//
// Config is loaded with the config package and applied through WithConfig.
package logger
