// Package errors 对外错误码与 HTTP 状态映射
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 对外暴露的错误码，前端按它分支处理
type ErrorCode string

const (
	// 通用 (1xxx)
	CodeInvalidParam    ErrorCode = "1001"
	CodeUnauthorized    ErrorCode = "1002"
	CodeTooManyRequests ErrorCode = "1006"
	CodeInternalError   ErrorCode = "1007"

	// 令牌 (2xxx)
	CodeTokenExpired ErrorCode = "2001"
	CodeTokenInvalid ErrorCode = "2002"
	CodeTokenMissing ErrorCode = "2003"

	// 资源 (3xxx)
	CodeUserNotFound     ErrorCode = "3005"
	CodeDocumentNotFound ErrorCode = "3006"

	// 生成 (4xxx)
	CodeQuotaExceeded   ErrorCode = "4007"
	CodeMalformedOutput ErrorCode = "4008"

	// 上游 (5xxx)
	CodeLLMProviderError ErrorCode = "5005"
)

// 未列出的错误码按 500 处理
var httpStatusByCode = map[ErrorCode]int{
	CodeInvalidParam:     http.StatusBadRequest,
	CodeUnauthorized:     http.StatusUnauthorized,
	CodeTokenExpired:     http.StatusUnauthorized,
	CodeTokenInvalid:     http.StatusUnauthorized,
	CodeTokenMissing:     http.StatusUnauthorized,
	CodeQuotaExceeded:    http.StatusForbidden,
	CodeUserNotFound:     http.StatusNotFound,
	CodeDocumentNotFound: http.StatusNotFound,
	CodeTooManyRequests:  http.StatusTooManyRequests,
	CodeLLMProviderError: http.StatusBadGateway,
	CodeMalformedOutput:  http.StatusBadGateway,
}

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

func (e *AppError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较，克隆出的副本与哨兵值视为同一错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && e.Code == t.Code
}

// WithDetail 返回带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	c := *e
	c.Detail = detail
	return &c
}

// WithError 返回带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	status, ok := httpStatusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// 哨兵值只读，使用时通过 WithDetail/WithError 克隆
var (
	ErrInvalidParam    = New(CodeInvalidParam, "invalid parameter")
	ErrUnauthorized    = New(CodeUnauthorized, "unauthorized")
	ErrTooManyRequests = New(CodeTooManyRequests, "too many requests")
	ErrInternalError   = New(CodeInternalError, "internal server error")

	ErrTokenExpired = New(CodeTokenExpired, "token expired")
	ErrTokenInvalid = New(CodeTokenInvalid, "token invalid")
	ErrTokenMissing = New(CodeTokenMissing, "token missing")

	ErrUserNotFound     = New(CodeUserNotFound, "user not found")
	ErrDocumentNotFound = New(CodeDocumentNotFound, "document not found")

	ErrQuotaExceeded   = New(CodeQuotaExceeded, "usage limit reached, please upgrade")
	ErrMalformedOutput = New(CodeMalformedOutput, "model output is not a valid array")
	ErrProviderError   = New(CodeLLMProviderError, "AI provider error")
)

// AsAppError 取出错误链上的 AppError，没有时包装为内部错误
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalError.WithError(err)
}
