package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/logger"
)

const (
	// RequestIDHeader 请求ID头
	RequestIDHeader = "X-Request-ID"
	contextRequest  = "requestID"
)

// RequestID 为每个请求分配ID，已携带时沿用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(contextRequest, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID 获取请求ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextRequest)
}

// RequestLogger 请求日志
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		logger.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), c.ClientIP())
		for _, e := range c.Errors {
			logger.LogError(e.Err, "请求处理出错")
		}
	}
}

// Recovery 捕获panic并返回500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.LogPanic(r, debug.Stack())
				AbortWithError(c, errors.New(errors.ErrUnknown, "服务器内部错误"))
			}
		}()
		c.Next()
	}
}

// AbortWithError 以统一格式返回错误并中止
func AbortWithError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	status := appErr.HTTPStatus()

	// 不向客户端暴露调用栈，内部错误只返回错误码
	public := &errors.AppError{Code: appErr.Code, Message: appErr.Message}
	if status < http.StatusInternalServerError {
		public.Details = appErr.Details
	} else {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, errors.NewErrorResponse(public, GetRequestID(c)))
}
