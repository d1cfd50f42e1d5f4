package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bizerr "github.com/eidos-exchange/eidos/eidos-tunables/pkg/errors"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/logger"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Reason  string      `json:"reason,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// BadRequest 请求参数错误
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Code:    400,
		Message: message,
	})
}

// Fail 按业务错误映射 HTTP 状态
func Fail(c *gin.Context, err error) {
	status := bizerr.ToHTTPStatus(err)
	logger.WithContext(c.Request.Context()).Warn("request failed",
		zap.String("reason", bizerr.GetCode(err)),
		zap.Error(err))
	c.JSON(status, Response{
		Code:    status,
		Message: err.Error(),
		Reason:  bizerr.GetCode(err),
	})
}
