package dashboard

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Telemetry records dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// LogTelemetry writes telemetry events as structured logrus entries.
type LogTelemetry struct {
	logger logrus.FieldLogger
	level  logrus.Level
}

// NewLogTelemetry adapts a logrus logger. Events are logged at info level.
func NewLogTelemetry(logger logrus.FieldLogger) *LogTelemetry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogTelemetry{logger: logger, level: logrus.InfoLevel}
}

// WithLevel changes the level events are logged at.
func (t *LogTelemetry) WithLevel(level logrus.Level) *LogTelemetry {
	t.level = level
	return t
}

// Record implements Telemetry.
func (t *LogTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	entry := t.logger.WithFields(logrus.Fields(payload)).WithField("event", event)
	switch t.level {
	case logrus.DebugLevel, logrus.TraceLevel:
		entry.Debug(event)
	case logrus.WarnLevel:
		entry.Warn(event)
	default:
		entry.Info(event)
	}
}
