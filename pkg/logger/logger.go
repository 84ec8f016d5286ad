package logger

import (
	"context"

	"go.uber.org/zap"

	"formexport/pkg/trace"
)

// NewLogger 本地环境使用开发配置，其他环境使用 JSON 生产配置
func NewLogger(env string) *zap.Logger {
	build := zap.NewProduction
	if env == "local" {
		build = zap.NewDevelopment
	}
	l, err := build()
	if err != nil {
		panic(err)
	}
	return l
}

// WithTrace 从 context 中提取 trace_id 并添加到 logger
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if traceID := trace.FromContext(ctx); traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
