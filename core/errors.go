package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Repository 错误：NOT_FOUND, CONFLICT
//   - Source 错误：UNAVAILABLE
//   - Signal 错误：INVALID_INPUT
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "CONFLICT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "repository", "source"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误是否为 DomainError 类型（支持 wrap 链）
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用（可重试）
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeConflict      = "CONFLICT"       // 版本冲突（乐观并发控制）
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore      = "store"
	ModuleRepository = "repository"
	ModuleSource     = "source"
	ModuleLearner    = "learner"
	ModuleService    = "service"
)

// 领域错误定义
var (
	ErrUserNotFound     = NewDomainError(ModuleRepository, ErrorCodeNotFound, "repository: user not found")
	ErrEventNotFound    = NewDomainError(ModuleRepository, ErrorCodeNotFound, "repository: event not found")
	ErrFeedbackNotFound = NewDomainError(ModuleRepository, ErrorCodeNotFound, "repository: feedback not found")
	ErrVersionConflict  = NewDomainError(ModuleRepository, ErrorCodeConflict, "repository: version conflict")

	// ErrSourceUnavailable 表示所有事件源查询（包括全局兜底查询）均失败，调用方可稍后重试
	ErrSourceUnavailable = NewDomainError(ModuleSource, ErrorCodeUnavailable, "source: all event source queries failed")

	ErrInvalidRating = NewDomainError(ModuleLearner, ErrorCodeInvalidInput, "learner: rating must be between 1 and 5")
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsConflict 检查错误是否为 CONFLICT
func IsConflict(err error) bool {
	return hasCode(err, ErrorCodeConflict)
}

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}
