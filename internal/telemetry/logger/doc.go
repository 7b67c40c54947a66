// Package logger configures structured logging for kvopts.
//
// It builds a *slog.Logger from a level and format, keeps the level in a
// process-wide slog.LevelVar so it can be changed at runtime, and carries a
// logger and a load id through context.Context.
package logger
