package export

import (
	"fmt"
	"strings"
)

// ConfigurationError 表示缺少必要配置（收件人、测试邮箱）
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// RepositoryError 表示查询提交数据失败，整次运行中止
type RepositoryError struct {
	Op     string
	FormID int64
	Err    error
}

func (e *RepositoryError) Error() string {
	if e.FormID != 0 {
		return fmt.Sprintf("repository error: %s (form %d): %v", e.Op, e.FormID, e.Err)
	}
	return fmt.Sprintf("repository error: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// FilesystemError 表示 CSV 文件写入失败
type FilesystemError struct {
	Path   string
	FormID int64
	Err    error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error: form %d -> %s: %v", e.FormID, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// DeliveryError 表示邮件发送失败，不重试
type DeliveryError struct {
	Recipients []string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery error: to %s: %v", strings.Join(e.Recipients, ","), e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
