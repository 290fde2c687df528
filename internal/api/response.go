package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/card-game/internal/errors"
	"github.com/wfunc/card-game/internal/middleware"
)

// SuccessResponse 成功响应
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Success:   true,
		Data:      data,
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Success:   true,
		Data:      data,
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

func okMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{
		Success:   true,
		Message:   message,
		RequestID: middleware.GetRequestID(c),
		Timestamp: time.Now().Unix(),
	})
}

// bindJSON 绑定请求体，失败时直接返回参数错误
func bindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.AbortWithError(c, errors.New(errors.ErrInvalidParam, err.Error()))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		middleware.AbortWithError(c, errors.New(errors.ErrInvalidParam, err.Error()))
		return false
	}
	return true
}

// paramID 解析路径中的正整数ID
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		middleware.AbortWithError(c, errors.Newf(errors.ErrInvalidParam, "无效的%s: %s", name, c.Param(name)))
		return 0, false
	}
	return uint(id), true
}

// currentUser 读取认证中间件写入的用户ID
func currentUser(c *gin.Context) (uint, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		middleware.AbortWithError(c, errors.New(errors.ErrAuthentication, "未登录"))
		return 0, false
	}
	return userID, true
}
