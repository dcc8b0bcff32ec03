// Package log provides the leveled, printf-style logging used across toolgraph.
//
// Two implementations are provided:
//
//   - DefaultLogger writes through Go's standard log package with a "[toolgraph]" prefix.
//   - GologLogger forwards to a github.com/kataras/golog logger.
//
// A package-level logger is available for code that does not carry a Logger
// around:
//
//	log.SetDefaultLogger(log.NewGologLogger(golog.New()))
//	log.Info("registered %d tools", n)
//
// Levels in order of increasing severity are LogLevelDebug, LogLevelInfo,
// LogLevelWarn and LogLevelError. LogLevelNone disables output.
package log
