package audit

import (
	"context"

	"github.com/alumnity/alumnity/internal/domain/audit"
	"github.com/alumnity/alumnity/internal/logger"
)

// LogSink records audit events as structured log lines. This is the
// default sink; operator tooling tails these lines.
type LogSink struct {
	logger *logger.Logger
}

func NewLogSink(logger *logger.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, event audit.Event) error {
	s.logger.Infow("audit event",
		"audit_id", event.ID,
		"action", event.Action,
		"actor_id", event.ActorID,
		"tenant_id", event.TenantID,
		"metadata", event.Metadata,
		"recorded_at", event.RecordedAt,
	)
	return nil
}
