// Package mailer defines the outbound email capability used by the
// authentication core and two implementations of it: a development sender
// that writes messages to slog, and an asynchronous decorator that moves
// delivery off the request path.
//
// Delivery is fire-and-forget. Send reports whether the message was accepted
// and never returns an error; callers log a refusal and carry on.
package mailer

import (
	"context"
	"log/slog"
)

// Sender delivers one plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) bool
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to, subject, body string) bool

func (f SenderFunc) Send(ctx context.Context, to, subject, body string) bool {
	return f(ctx, to, subject, body)
}

// LogSender writes every message to a logger instead of sending it. It is
// meant for local development, where the link in the body is all that matters.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender returns a LogSender. A nil logger uses slog.Default().
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger.With("component", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) bool {
	s.logger.InfoContext(ctx, "email dispatched",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", body),
	)
	return true
}

var (
	_ Sender = SenderFunc(nil)
	_ Sender = (*LogSender)(nil)
)
