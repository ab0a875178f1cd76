package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ApiResponse 统一的响应结构
type ApiResponse struct {
	Code    int    `json:"code"`    // 状态码，0表示成功
	Message string `json:"message"` // 响应消息
	Data    any    `json:"data"`    // 响应数据
}

// success 创建成功响应
func success(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// created 创建 201 成功响应
func created(c *gin.Context, data any, message string) {
	c.JSON(http.StatusCreated, ApiResponse{
		Code:    0,
		Message: message,
		Data:    data,
	})
}

// fail 创建错误响应
func fail(c *gin.Context, statusCode int, errorCode int, message string) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    nil,
	})
}

// failWithData 创建携带数据的错误响应，用于冲突等需要回传服务端状态的场景
func failWithData(c *gin.Context, statusCode int, errorCode int, message string, data any) {
	c.JSON(statusCode, ApiResponse{
		Code:    errorCode,
		Message: message,
		Data:    data,
	})
}

// uintParam 解析路径参数为无符号整数ID
func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		fail(c, http.StatusBadRequest, 400, "无效的"+name+"参数")
		return 0, false
	}
	return uint(id), true
}
