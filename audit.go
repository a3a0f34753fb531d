package auth

import (
	"log/slog"

	internalaudit "github.com/justincavery/yoga-app-sub000/internal/audit"
)

// AuditEvent is one security-relevant occurrence. IP and UserAgent are taken
// from the request context (see WithClientIP and WithUserAgent).
type AuditEvent = internalaudit.Event

// AuditSink receives events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// SlogSink writes every event as a structured log record.
type SlogSink = internalaudit.SlogSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewSlogSink returns a SlogSink writing through logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
