package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// OTelHandler mirrors slog records to the OpenTelemetry log pipeline while
// delegating console output to the wrapped handler.
type OTelHandler struct {
	handler slog.Handler
	logger  log.Logger
}

func NewOTelHandler(handler slog.Handler) *OTelHandler {
	return &OTelHandler{
		handler: handler,
		logger:  global.GetLoggerProvider().Logger("cron-observer"),
	}
}

func (h *OTelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *OTelHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := h.handler.Handle(ctx, record); err != nil {
		return err
	}
	h.logger.Emit(ctx, h.convert(ctx, record))
	return nil
}

// convert maps one slog record onto an OTel log record, carrying the trace
// context of the current span when there is one.
func (h *OTelHandler) convert(ctx context.Context, record slog.Record) log.Record {
	var out log.Record
	out.SetTimestamp(record.Time)
	out.SetBody(log.StringValue(record.Message))
	out.SetSeverity(severity(record.Level))

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		out.AddAttributes(
			log.String("trace_id", spanCtx.TraceID().String()),
			log.String("span_id", spanCtx.SpanID().String()),
		)
	}

	record.Attrs(func(attr slog.Attr) bool {
		out.AddAttributes(log.String(attr.Key, attr.Value.String()))
		return true
	})
	return out
}

// severity maps slog levels by threshold, so custom levels between the
// standard four still land in a sensible bucket.
func severity(level slog.Level) log.Severity {
	switch {
	case level >= slog.LevelError:
		return log.SeverityError
	case level >= slog.LevelWarn:
		return log.SeverityWarn
	case level >= slog.LevelInfo:
		return log.SeverityInfo
	default:
		return log.SeverityDebug
	}
}

func (h *OTelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &OTelHandler{
		handler: h.handler.WithAttrs(attrs),
		logger:  h.logger,
	}
}

func (h *OTelHandler) WithGroup(name string) slog.Handler {
	return &OTelHandler{
		handler: h.handler.WithGroup(name),
		logger:  h.logger,
	}
}
