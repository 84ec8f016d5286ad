package mqhandler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	mqcontracts "formexport/contracts/mq"
	"formexport/internal/export"
	"formexport/internal/options"
	"formexport/internal/service"
	"formexport/pkg/logger"
	"formexport/pkg/trace"
)

const ModeTest = "test"

type OptionsLoader interface {
	Load(ctx context.Context) (options.Options, error)
}

type ExportRunner interface {
	RunExportAndSend(ctx context.Context, trigger service.Trigger, opts options.Options, limit int) (*service.RunResult, error)
	SendTest(ctx context.Context, opts options.Options) (*service.RunResult, error)
}

type ExportRequestedHandler struct {
	options OptionsLoader
	runner  ExportRunner
	logger  *zap.Logger
}

func NewExportRequestedHandler(loader OptionsLoader, runner ExportRunner, logger *zap.Logger) *ExportRequestedHandler {
	return &ExportRequestedHandler{
		options: loader,
		runner:  runner,
		logger:  logger,
	}
}

// HandleExportRequested -- 按请求执行完整导出或测试发送
func (h *ExportRequestedHandler) HandleExportRequested(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.ExportRequestedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal export requested payload", zap.Error(err))
		return err
	}

	ctx, _ = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, h.logger).With(zap.String("mode", p.Mode))

	opts, err := h.options.Load(ctx)
	if err != nil {
		log.Error("Failed to load options", zap.Error(err))
		return err
	}

	var result *service.RunResult
	if p.Mode == ModeTest {
		result, err = h.runner.SendTest(ctx, opts)
	} else {
		limit := p.Limit
		if limit < 0 {
			limit = 0
		}
		result, err = h.runner.RunExportAndSend(ctx, service.TriggerMQ, opts, limit)
	}

	// 配置缺失和投递失败已记录，不重试
	var cfgErr *export.ConfigurationError
	var deliveryErr *export.DeliveryError
	switch {
	case errors.As(err, &cfgErr):
		log.Warn("Export request ignored", zap.String("reason", cfgErr.Reason))
		return nil
	case errors.As(err, &deliveryErr):
		return nil
	case err != nil:
		return err
	}

	log.Info("Export request handled",
		zap.String("run_id", result.RunID),
		zap.Int("files", len(result.Files)),
		zap.Bool("delivered", result.Delivered),
	)
	return nil
}
