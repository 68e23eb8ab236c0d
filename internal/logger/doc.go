// Package logger provides a small leveled logging facade over logrus.
//
// Each log entry carries a timestamp, level, optional component name (for
// pool workers this is "worker-<id>") and message.
//
// # Basic Usage
//
// Using the default logger:
//
//	logger.Info("", "ThreadPool started")
//	logger.Debug("worker-1", "got a job; executing")
//	logger.Error("worker-1", "job panicked: %v", r)
//
// Creating a custom logger:
//
//	l := logger.New(os.Stderr, logger.LevelDebug)
//	l.Debug("worker-0", "Debug message")
//
// # Log Levels
//
// Messages below the configured level are filtered:
//   - LevelDebug: all messages
//   - LevelInfo: Info, Warn, Error
//   - LevelWarn: Warn, Error
//   - LevelError: Error only
//
// ParseLevel accepts "debug", "info", "warn" and "error" for configuration
// files and flags.
package logger
