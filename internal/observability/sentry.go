// Package observability holds the daemon's Sentry reporting and HTTP
// request logging.
package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry configures the global Sentry client. An empty dsn disables
// reporting; capture calls then become no-ops.
func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
}

// FlushSentry waits up to two seconds for queued events.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports an unexpected error.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}
