// Package service holds the business operations behind the HTTP handlers:
// account registration and login, and project management with ownership
// checks.
package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/meowem-bao/do1ad-assignment2/internal/service"

// instrumentation carries the logger and tracer shared by every service.
type instrumentation struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func newInstrumentation(logger *zap.Logger) instrumentation {
	return instrumentation{logger: logger, tracer: otel.Tracer(tracerName)}
}

func (s instrumentation) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s instrumentation) audit(event string, attrs ...any) {
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	s.log().Info("audit", fields...)
}

func (s instrumentation) log() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return zap.L()
}
