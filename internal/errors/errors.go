package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorCode 错误码类型
type ErrorCode int

// 错误码定义（按模块分组）
const (
	// 通用错误 (1000-1999)
	ErrUnknown          ErrorCode = 1000
	ErrInvalidParam     ErrorCode = 1001
	ErrNotFound         ErrorCode = 1002
	ErrAlreadyExists    ErrorCode = 1003
	ErrPermissionDenied ErrorCode = 1004
	ErrTimeout          ErrorCode = 1005
	ErrCanceled         ErrorCode = 1006
	ErrNotImplemented   ErrorCode = 1007

	// 游戏错误 (2000-2999)
	ErrInsufficientEnergy ErrorCode = 2000
	ErrInsufficientGold   ErrorCode = 2001
	ErrSelfFusion         ErrorCode = 2002
	ErrNotOwner           ErrorCode = 2003
	ErrCardLocked         ErrorCode = 2004
	ErrCardInDeck         ErrorCode = 2005
	ErrMaxLevelReached    ErrorCode = 2006
	ErrNotFusionMaterial  ErrorCode = 2007
	ErrAlreadyInDeck      ErrorCode = 2008
	ErrNotInDeck          ErrorCode = 2009
	ErrPositionOccupied   ErrorCode = 2010
	ErrInvalidPosition    ErrorCode = 2011
	ErrEmptyDeck          ErrorCode = 2012
	ErrOpponentNotFound   ErrorCode = 2013
	ErrOpponentEmptyDeck  ErrorCode = 2014
	ErrInvalidBattleType  ErrorCode = 2015
	ErrCardNotFound       ErrorCode = 2016
	ErrUserNotFound       ErrorCode = 2017
	ErrTemplateNotFound   ErrorCode = 2018
	ErrNoActiveTemplates  ErrorCode = 2019

	// 通信错误 (4000-4999)
	ErrWebSocketConnect ErrorCode = 4000
	ErrWebSocketSend    ErrorCode = 4001
	ErrWebSocketReceive ErrorCode = 4002
	ErrWebSocketClosed  ErrorCode = 4003
	ErrMessageFormat    ErrorCode = 4004
	ErrLockUnavailable  ErrorCode = 4005

	// 数据库错误 (5000-5999)
	ErrDatabaseConnect ErrorCode = 5000
	ErrDatabaseQuery   ErrorCode = 5001
	ErrDatabaseInsert  ErrorCode = 5002
	ErrDatabaseUpdate  ErrorCode = 5003
	ErrDatabaseDelete  ErrorCode = 5004
	ErrTransaction     ErrorCode = 5005
	ErrDataIntegrity   ErrorCode = 5006

	// 配置错误 (6000-6999)
	ErrConfigLoad     ErrorCode = 6000
	ErrConfigParse    ErrorCode = 6001
	ErrConfigValidate ErrorCode = 6002
	ErrConfigMissing  ErrorCode = 6003

	// 安全错误 (7000-7999)
	ErrAuthentication    ErrorCode = 7000
	ErrAuthorization     ErrorCode = 7001
	ErrTokenExpired      ErrorCode = 7002
	ErrTokenInvalid      ErrorCode = 7003
	ErrRateLimitExceeded ErrorCode = 7004
	ErrEncryption        ErrorCode = 7005
	ErrDecryption        ErrorCode = 7006
)

// Category 错误分类
type Category string

// 错误分类定义
const (
	CategoryValidation     Category = "validation"
	CategoryAuthorization  Category = "authorization"
	CategoryPrecondition   Category = "precondition"
	CategoryResource       Category = "resource"
	CategoryNotFound       Category = "not_found"
	CategoryAuthentication Category = "authentication"
	CategoryInternal       Category = "internal"
)

// 错误码消息映射
var errorMessages = map[ErrorCode]string{
	// 通用错误
	ErrUnknown:          "未知错误",
	ErrInvalidParam:     "无效的参数",
	ErrNotFound:         "资源未找到",
	ErrAlreadyExists:    "资源已存在",
	ErrPermissionDenied: "权限不足",
	ErrTimeout:          "操作超时",
	ErrCanceled:         "操作已取消",
	ErrNotImplemented:   "功能未实现",

	// 游戏错误
	ErrInsufficientEnergy: "体力不足",
	ErrInsufficientGold:   "金币不足",
	ErrSelfFusion:         "卡牌不能与自身融合",
	ErrNotOwner:           "不是卡牌的拥有者",
	ErrCardLocked:         "卡牌已锁定",
	ErrCardInDeck:         "卡牌在卡组中",
	ErrMaxLevelReached:    "卡牌已达到最高等级",
	ErrNotFusionMaterial:  "该卡牌不能作为融合材料",
	ErrAlreadyInDeck:      "卡牌已在卡组中",
	ErrNotInDeck:          "卡牌不在卡组中",
	ErrPositionOccupied:   "卡组位置已被占用",
	ErrInvalidPosition:    "无效的卡组位置",
	ErrEmptyDeck:          "卡组中没有卡牌",
	ErrOpponentNotFound:   "对手不存在",
	ErrOpponentEmptyDeck:  "对手卡组为空",
	ErrInvalidBattleType:  "无效的战斗类型",
	ErrCardNotFound:       "卡牌不存在",
	ErrUserNotFound:       "用户不存在",
	ErrTemplateNotFound:   "卡牌模板不存在",
	ErrNoActiveTemplates:  "没有可用的卡牌模板",

	// 通信错误
	ErrWebSocketConnect: "WebSocket连接失败",
	ErrWebSocketSend:    "WebSocket发送失败",
	ErrWebSocketReceive: "WebSocket接收失败",
	ErrWebSocketClosed:  "WebSocket连接已关闭",
	ErrMessageFormat:    "消息格式错误",
	ErrLockUnavailable:  "获取用户锁失败",

	// 数据库错误
	ErrDatabaseConnect: "数据库连接失败",
	ErrDatabaseQuery:   "数据库查询失败",
	ErrDatabaseInsert:  "数据库插入失败",
	ErrDatabaseUpdate:  "数据库更新失败",
	ErrDatabaseDelete:  "数据库删除失败",
	ErrTransaction:     "事务处理失败",
	ErrDataIntegrity:   "数据完整性错误",

	// 配置错误
	ErrConfigLoad:     "配置加载失败",
	ErrConfigParse:    "配置解析失败",
	ErrConfigValidate: "配置验证失败",
	ErrConfigMissing:  "配置项缺失",

	// 安全错误
	ErrAuthentication:    "认证失败",
	ErrAuthorization:     "授权失败",
	ErrTokenExpired:      "令牌已过期",
	ErrTokenInvalid:      "无效的令牌",
	ErrRateLimitExceeded: "请求频率超限",
	ErrEncryption:        "加密失败",
	ErrDecryption:        "解密失败",
}

// 错误码分类映射（未列出的错误码归为internal）
var errorCategories = map[ErrorCode]Category{
	ErrInvalidParam:      CategoryValidation,
	ErrInvalidPosition:   CategoryValidation,
	ErrSelfFusion:        CategoryValidation,
	ErrInvalidBattleType: CategoryValidation,

	ErrPermissionDenied: CategoryAuthorization,
	ErrNotOwner:         CategoryAuthorization,
	ErrAuthorization:    CategoryAuthorization,

	ErrAlreadyExists:     CategoryPrecondition,
	ErrCardLocked:        CategoryPrecondition,
	ErrCardInDeck:        CategoryPrecondition,
	ErrMaxLevelReached:   CategoryPrecondition,
	ErrNotFusionMaterial: CategoryPrecondition,
	ErrAlreadyInDeck:     CategoryPrecondition,
	ErrNotInDeck:         CategoryPrecondition,
	ErrPositionOccupied:  CategoryPrecondition,
	ErrEmptyDeck:         CategoryPrecondition,
	ErrOpponentEmptyDeck: CategoryPrecondition,
	ErrNoActiveTemplates: CategoryPrecondition,

	ErrInsufficientEnergy: CategoryResource,
	ErrInsufficientGold:   CategoryResource,

	ErrNotFound:         CategoryNotFound,
	ErrCardNotFound:     CategoryNotFound,
	ErrUserNotFound:     CategoryNotFound,
	ErrTemplateNotFound: CategoryNotFound,
	ErrOpponentNotFound: CategoryNotFound,

	ErrAuthentication: CategoryAuthentication,
	ErrTokenExpired:   CategoryAuthentication,
	ErrTokenInvalid:   CategoryAuthentication,
}

// AppError 应用错误结构
type AppError struct {
	Code    ErrorCode    `json:"code"`            // 错误码
	Message string       `json:"message"`         // 错误消息
	Details string       `json:"details"`         // 详细信息
	Cause   error        `json:"-"`               // 原始错误
	Stack   []StackFrame `json:"stack,omitempty"` // 调用栈
}

// StackFrame 调用栈帧
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 返回原始错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因错误
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	if cause != nil && e.Details == "" {
		e.Details = cause.Error()
	}
	return e
}

// Category 返回错误分类
func (e *AppError) Category() Category {
	return CategoryOf(e.Code)
}

// New 创建新的应用错误
func New(code ErrorCode, details ...string) *AppError {
	message, ok := errorMessages[code]
	if !ok {
		message = errorMessages[ErrUnknown]
	}

	err := &AppError{
		Code:    code,
		Message: message,
	}

	if len(details) > 0 {
		err.Details = strings.Join(details, "; ")
	}

	// 捕获调用栈
	err.captureStack(2)

	return err
}

// Newf 创建格式化的应用错误
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return New(code, details)
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, details ...string) *AppError {
	if err == nil {
		return nil
	}

	// 如果已经是AppError，保留原始错误码
	if appErr, ok := As(err); ok {
		if len(details) > 0 {
			appErr.Details = strings.Join(details, "; ") + "; " + appErr.Details
		}
		return appErr
	}

	appErr := New(code, details...)
	appErr.Cause = err
	if appErr.Details == "" {
		appErr.Details = err.Error()
	}

	return appErr
}

// Wrapf 包装格式化错误
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	details := fmt.Sprintf(format, args...)
	return Wrap(err, code, details)
}

// As 从错误链中提取AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil && stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is 判断错误是否为指定错误码
func Is(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// GetCode 获取错误码
func GetCode(err error) ErrorCode {
	if err == nil {
		return 0
	}

	if appErr, ok := As(err); ok {
		return appErr.Code
	}

	return ErrUnknown
}

// CategoryOf 获取错误码对应的分类
func CategoryOf(code ErrorCode) Category {
	if category, ok := errorCategories[code]; ok {
		return category
	}
	return CategoryInternal
}

// captureStack 捕获调用栈
func (e *AppError) captureStack(skip int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)

	if n > 0 {
		frames := runtime.CallersFrames(pcs[:n])
		for {
			frame, more := frames.Next()

			// 跳过runtime和本包的调用
			if strings.Contains(frame.Function, "runtime.") ||
				strings.Contains(frame.Function, "github.com/wfunc/card-game/internal/errors") {
				if !more {
					break
				}
				continue
			}

			e.Stack = append(e.Stack, StackFrame{
				Function: frame.Function,
				File:     frame.File,
				Line:     frame.Line,
			})

			if !more {
				break
			}

			// 只保留前10个栈帧
			if len(e.Stack) >= 10 {
				break
			}
		}
	}
}

// GetStack 获取格式化的调用栈
func (e *AppError) GetStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, frame := range e.Stack {
		builder.WriteString(fmt.Sprintf("%d. %s\n   %s:%d\n",
			i+1, frame.Function, frame.File, frame.Line))
	}

	return builder.String()
}

// HTTPStatus 返回对应的HTTP状态码
func (e *AppError) HTTPStatus() int {
	switch e.Category() {
	case CategoryValidation, CategoryResource:
		return 400 // Bad Request
	case CategoryAuthentication:
		return 401 // Unauthorized
	case CategoryAuthorization:
		return 403 // Forbidden
	case CategoryNotFound:
		return 404 // Not Found
	case CategoryPrecondition:
		return 409 // Conflict
	}

	switch {
	case e.Code == ErrTimeout:
		return 408 // Request Timeout
	case e.Code == ErrRateLimitExceeded:
		return 429 // Too Many Requests
	case e.Code == ErrLockUnavailable:
		return 503
	case e.Code >= 5000 && e.Code <= 5999:
		return 503 // Service Unavailable
	default:
		return 500 // Internal Server Error
	}
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrTimeout,
		ErrWebSocketConnect,
		ErrDatabaseConnect,
		ErrLockUnavailable:
		return true
	default:
		return false
	}
}

// IsCritical 判断是否为严重错误
func IsCritical(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	switch code {
	case ErrDatabaseConnect,
		ErrConfigLoad,
		ErrConfigMissing,
		ErrDataIntegrity:
		return true
	default:
		return false
	}
}

// ErrorResponse API错误响应结构
type ErrorResponse struct {
	Success   bool      `json:"success"`
	Error     *AppError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(err *AppError, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Success:   false,
		Error:     err,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
