// Package logger provides adapters for the logging interface.
package logger

import (
	"context"

	"github.com/MyCarrier-DevOps/repo-sync/internal/domain"
)

// Logger defines the logging interface used throughout the application.
// External loggers that implement these methods can be wrapped with ZapAdapter.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, err error, fields map[string]any)
}

// ZapAdapter adapts a Logger to the application's logging interface.
// Credentials embedded in URLs are masked in the message, in string and error
// field values, and in the logged error before anything reaches the
// underlying logger.
type ZapAdapter struct {
	log Logger
}

// NewZapAdapter creates a new ZapAdapter wrapping the given logger.
func NewZapAdapter(log Logger) *ZapAdapter {
	return &ZapAdapter{log: log}
}

// Info logs an info message.
func (a *ZapAdapter) Info(ctx context.Context, msg string, fields map[string]any) {
	a.log.Info(ctx, domain.RedactCredentials(msg), redactFields(fields))
}

// Debug logs a debug message.
func (a *ZapAdapter) Debug(ctx context.Context, msg string, fields map[string]any) {
	a.log.Debug(ctx, domain.RedactCredentials(msg), redactFields(fields))
}

// Warn logs a warning message.
func (a *ZapAdapter) Warn(ctx context.Context, msg string, fields map[string]any) {
	a.log.Warn(ctx, domain.RedactCredentials(msg), redactFields(fields))
}

// Error logs an error message.
func (a *ZapAdapter) Error(ctx context.Context, msg string, err error, fields map[string]any) {
	a.log.Error(ctx, domain.RedactCredentials(msg), redactError(err), redactFields(fields))
}

// redactedError masks the message of err while keeping it unwrappable.
type redactedError struct {
	err error
}

func (e *redactedError) Error() string {
	return domain.RedactCredentials(e.err.Error())
}

func (e *redactedError) Unwrap() error {
	return e.err
}

func redactError(err error) error {
	if err == nil {
		return nil
	}
	text := err.Error()
	if domain.RedactCredentials(text) == text {
		return err
	}
	return &redactedError{err: err}
}

// redactFields returns a copy of fields with credentials masked. The caller's
// map is never modified.
func redactFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			out[key] = domain.RedactCredentials(v)
		case []string:
			masked := make([]string, len(v))
			for i, s := range v {
				masked[i] = domain.RedactCredentials(s)
			}
			out[key] = masked
		case error:
			out[key] = domain.RedactCredentials(v.Error())
		default:
			out[key] = value
		}
	}
	return out
}
