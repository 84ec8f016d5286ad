package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"formexport/internal/export"
	"formexport/internal/options"
	"formexport/internal/service"
	"formexport/pkg/logger"
)

// OptionsManager 读写导出配置
type OptionsManager interface {
	Load(ctx context.Context) (options.Options, error)
	Save(ctx context.Context, in options.Input) (options.Options, error)
	Clear(ctx context.Context) error
}

// ScheduleController 控制定时导出任务
type ScheduleController interface {
	Toggle(ctx context.Context, opts options.Options) (bool, error)
	Reschedule(ctx context.Context, opts options.Options) error
	Status() (bool, time.Time)
}

// TestSender 发送测试导出邮件
type TestSender interface {
	SendTest(ctx context.Context, opts options.Options) (*service.RunResult, error)
}

type AdminHandler struct {
	options  OptionsManager
	schedule ScheduleController
	sender   TestSender
	logger   *zap.Logger
}

func NewAdminHandler(opts OptionsManager, schedule ScheduleController, sender TestSender, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		options:  opts,
		schedule: schedule,
		sender:   sender,
		logger:   logger,
	}
}

// GetOptions 返回当前生效的配置
// GET /admin/options
func (h *AdminHandler) GetOptions(c *gin.Context) {
	opts, err := h.options.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load options"})
		return
	}
	c.JSON(http.StatusOK, opts)
}

// SaveOptions 保存配置，频率变化时重新调度
// PUT /admin/options
func (h *AdminHandler) SaveOptions(c *gin.Context) {
	var in options.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	prev, err := h.options.Load(ctx)
	if err != nil {
		h.logger.Error("Failed to load options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load options"})
		return
	}

	saved, err := h.options.Save(ctx, in)
	if err != nil {
		h.logger.Error("Failed to save options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save options"})
		return
	}

	resp := gin.H{"options": saved}
	if saved.ScheduleFrequency != prev.ScheduleFrequency {
		if err := h.schedule.Reschedule(c.Request.Context(), saved); err != nil {
			h.logger.Warn("Schedule stopped after options change", zap.Error(err))
			resp["warning"] = err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ClearOptions 删除所有配置
// DELETE /admin/options
func (h *AdminHandler) ClearOptions(c *gin.Context) {
	if err := h.options.Clear(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear options"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All options have been cleared."})
}

// GetSchedule 返回定时任务状态
// GET /admin/schedule
func (h *AdminHandler) GetSchedule(c *gin.Context) {
	scheduled, next := h.schedule.Status()
	resp := gin.H{"scheduled": scheduled}
	if scheduled {
		resp["next_run"] = next
	}
	c.JSON(http.StatusOK, resp)
}

// ToggleSchedule 运行中则取消，否则启动
// POST /admin/schedule/toggle
func (h *AdminHandler) ToggleSchedule(c *gin.Context) {
	opts, err := h.options.Load(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load options"})
		return
	}

	scheduled, err := h.schedule.Toggle(c.Request.Context(), opts)
	if err != nil {
		var cfgErr *export.ConfigurationError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Reason})
			return
		}
		h.logger.Error("Failed to toggle schedule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle schedule"})
		return
	}

	message := "Scheduled sending has been canceled."
	if scheduled {
		message = "Scheduled sending has been started."
	}
	c.JSON(http.StatusOK, gin.H{"scheduled": scheduled, "message": message})
}

// SendTestEmail 发送测试邮件，投递失败只记录日志
// POST /admin/test-email
func (h *AdminHandler) SendTestEmail(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithTrace(ctx, h.logger)

	opts, err := h.options.Load(ctx)
	if err != nil {
		log.Error("Failed to load options", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load options"})
		return
	}

	result, err := h.sender.SendTest(ctx, opts)
	if err != nil {
		var cfgErr *export.ConfigurationError
		var deliveryErr *export.DeliveryError
		switch {
		case errors.As(err, &cfgErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No test email address provided."})
			return
		case errors.As(err, &deliveryErr):
			log.Warn("Test email delivery failed, reported as sent", zap.Error(err))
		default:
			log.Error("Test export failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run test export"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Test email sent to " + opts.TestEmail,
		"run_id":  result.RunID,
		"files":   result.Files,
	})
}
