// Package report dispatches the end-of-emergency summary. Actual email
// delivery is simulated; the summary lands in the log where operators and
// tests can see it.
package report

import (
	"context"
	"log/slog"
)

// LogSender implements emergency.ReportSender by logging the summary.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, subject, body string) error {
	s.Logger.Info("summary report dispatched", "subject", subject, "body", body)
	return nil
}
