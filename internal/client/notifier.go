package client

import "log/slog"

// Level classifies a user-facing notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notifier surfaces operation outcomes to the user. The sync layer emits a
// success notification after every cache refresh and an error notification
// for every failed call; it never retries on its own.
type Notifier interface {
	Notify(level Level, message string)
}

// SlogNotifier logs notifications through slog.
type SlogNotifier struct{}

func (SlogNotifier) Notify(level Level, message string) {
	if level == LevelError {
		slog.Error(message)
		return
	}
	slog.Info(message)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(Level, string) {}
