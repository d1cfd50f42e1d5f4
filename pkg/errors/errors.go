// Package errors 定义带错误码、HTTP 与 gRPC 状态的业务错误
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error 业务错误
type Error struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	HTTPStatus int               `json:"-"`
	GRPCCode   codes.Code        `json:"-"`
	Cause      error             `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按错误码比较
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Copy 复制错误
func (e *Error) Copy() *Error {
	newErr := &Error{
		Code:       e.Code,
		Message:    e.Message,
		HTTPStatus: e.HTTPStatus,
		GRPCCode:   e.GRPCCode,
		Cause:      e.Cause,
	}
	if e.Details != nil {
		newErr.Details = make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			newErr.Details[k] = v
		}
	}
	return newErr
}

// WithDetail 添加单个详情
func (e *Error) WithDetail(key, value string) *Error {
	newErr := e.Copy()
	if newErr.Details == nil {
		newErr.Details = make(map[string]string)
	}
	newErr.Details[key] = value
	return newErr
}

// WithMessagef 格式化替换错误消息
func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	newErr := e.Copy()
	newErr.Message = fmt.Sprintf(format, args...)
	return newErr
}

// NewWithStatus 创建带状态码的错误
func NewWithStatus(code, message string, httpStatus int, grpcCode codes.Code) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		GRPCCode:   grpcCode,
	}
}

// Wrap 包装错误
func Wrap(err *Error, cause error) *Error {
	newErr := err.Copy()
	newErr.Cause = cause
	return newErr
}

// Wrapf 包装错误并追加信息
func Wrapf(err *Error, cause error, format string, args ...interface{}) *Error {
	newErr := err.Copy()
	newErr.Message = fmt.Sprintf("%s: %s", err.Message, fmt.Sprintf(format, args...))
	newErr.Cause = cause
	return newErr
}

// 通用错误码
var (
	ErrInternal     = NewWithStatus("INTERNAL_ERROR", "internal error", http.StatusInternalServerError, codes.Internal)
	ErrNotFound     = NewWithStatus("NOT_FOUND", "resource not found", http.StatusNotFound, codes.NotFound)
	ErrInvalidInput = NewWithStatus("INVALID_REQUEST", "invalid request", http.StatusBadRequest, codes.InvalidArgument)
)

// 配置相关错误码
var (
	// ErrValidation 变更输入格式错误, 调用方问题, 不重试
	ErrValidation = NewWithStatus("VALIDATION_ERROR", "invalid configuration value", http.StatusBadRequest, codes.InvalidArgument)
	// ErrSourceUnavailable 远程配置源不可达、超时或鉴权失败
	ErrSourceUnavailable = NewWithStatus("SOURCE_UNAVAILABLE", "remote configuration source unavailable", http.StatusServiceUnavailable, codes.Unavailable)
	// ErrPartialCollection 某个集合返回零行, 仅用于 debug 日志
	ErrPartialCollection = NewWithStatus("PARTIAL_COLLECTION", "collection returned no active rows", http.StatusOK, codes.OK)
)

// Validationf 创建格式化的校验错误
func Validationf(format string, args ...interface{}) *Error {
	return ErrValidation.WithMessagef(format, args...)
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	return Is(err, ErrValidation)
}

// IsSourceUnavailable 判断是否为配置源不可用
func IsSourceUnavailable(err error) bool {
	return Is(err, ErrSourceUnavailable)
}

// Is 判断错误类型
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	return errors.Is(err, target)
}

// As 提取错误类型
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetCode 获取错误码
func GetCode(err error) string {
	if err == nil {
		return ""
	}
	var bizErr *Error
	if errors.As(err, &bizErr) {
		return bizErr.Code
	}
	return "UNKNOWN"
}

// ToHTTPStatus 获取 HTTP 状态码
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var bizErr *Error
	if errors.As(err, &bizErr) && bizErr.HTTPStatus != 0 {
		return bizErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// ToGRPCError 转换为 gRPC 错误
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	var bizErr *Error
	if errors.As(err, &bizErr) {
		return status.Error(bizErr.GRPCCode, bizErr.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
