package service

import (
	"errors"
	"fmt"
)

// 业务错误分类，调用方用 errors.Is 判断
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTokenFormat = errors.New("invalid token format")
)

// 菜单表单校验错误，均归类为 ErrValidation
var (
	ErrMenuFormSchemaInvalid = fmt.Errorf("%w: menu form schema", ErrValidation)
	ErrMenuFormAnswerInvalid = fmt.Errorf("%w: menu form answer", ErrValidation)
)

// 认证相关错误
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrStaffDisabled      = errors.New("staff disabled")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrCaptchaRequired    = errors.New("captcha required")
	ErrCaptchaInvalid     = errors.New("captcha invalid")
	ErrCaptchaConfig      = errors.New("captcha config invalid")
)

// OperationError 携带出错资源的业务错误
type OperationError struct {
	Kind       error
	Resource   string
	ResourceID uint
	Reason     string
}

func (e *OperationError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Resource != "" {
		if e.ResourceID != 0 {
			msg = fmt.Sprintf("%s: %s %d", msg, e.Resource, e.ResourceID)
		} else {
			msg = fmt.Sprintf("%s: %s", msg, e.Resource)
		}
	}
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// Unwrap 返回错误分类
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

func opError(kind error, resource string, id uint, reason string) error {
	return &OperationError{Kind: kind, Resource: resource, ResourceID: id, Reason: reason}
}

func validationError(reason string) error {
	return &OperationError{Kind: ErrValidation, Reason: reason}
}
