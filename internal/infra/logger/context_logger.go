package logger

import (
	"context"
	"log/slog"
	"os"
)

type ContextKey string

const (
	// Business context keys propagated through the report pipeline
	JobIDKey    ContextKey = "research.job.id"
	SectionKey  ContextKey = "research.section"
	StageKey    ContextKey = "research.stage"
	PipelineKey ContextKey = "research.pipeline"
)

// ContextLogger provides context-aware logging for the report pipeline
type ContextLogger struct {
	logger      *slog.Logger
	serviceName string
}

// NewContextLogger creates a new context-aware logger
func NewContextLogger(serviceName string) *ContextLogger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)

	return &ContextLogger{
		logger:      slog.New(handler),
		serviceName: serviceName,
	}
}

// WithContext returns a logger with context values extracted and added as fields
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger.With("service", cl.serviceName)

	var fields []any

	if jobID := ctx.Value(JobIDKey); jobID != nil {
		fields = append(fields, string(JobIDKey), jobID)
	}
	if section := ctx.Value(SectionKey); section != nil {
		fields = append(fields, string(SectionKey), section)
	}
	if stage := ctx.Value(StageKey); stage != nil {
		fields = append(fields, string(StageKey), stage)
	}
	if pipeline := ctx.Value(PipelineKey); pipeline != nil {
		fields = append(fields, string(PipelineKey), pipeline)
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}

	return logger
}

// Context helper functions

// WithJobID adds the research job ID to context for observability
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// WithSection adds the document section topic to context for observability
func WithSection(ctx context.Context, section string) context.Context {
	return context.WithValue(ctx, SectionKey, section)
}

// WithStage adds the pipeline stage to context for observability
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

// WithPipeline adds the pipeline name to context for observability
func WithPipeline(ctx context.Context, pipeline string) context.Context {
	return context.WithValue(ctx, PipelineKey, pipeline)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
