package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bitfantasy/gagetrack/internal/gage/repository"
	"github.com/bitfantasy/gagetrack/internal/gage/service"
	"github.com/gin-gonic/gin"
)

// Handlers 处理器集合
type Handlers struct {
	Auth         *AuthHandler
	Gage         *GageHandler
	Reallocation *ReallocationHandler
	Notification *NotificationHandler
	Calibration  *CalibrationHandler
	SSE          *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(services *service.Services, repos *repository.Repositories) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(services.Auth),
		Gage:         NewGageHandler(services.Gage),
		Reallocation: NewReallocationHandler(services.Reallocation, services.Auth),
		Notification: NewNotificationHandler(services.Notification),
		Calibration:  NewCalibrationHandler(services.Calibration, services.Auth),
		SSE:          NewSSEHandler(),
	}
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Pagination 分页信息
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// ListData 列表响应数据
type ListData struct {
	Items      interface{} `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Code: 0, Message: "success", Data: data})
}

// SuccessList 列表响应
func SuccessList(c *gin.Context, items interface{}, page, pageSize int, total int64) {
	Success(c, ListData{
		Items:      items,
		Pagination: Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

// BadRequest 参数错误
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{Code: 40000, Message: message})
}

// NotFound 资源不存在
func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, Response{Code: 40400, Message: message})
}

// Forbidden 无权限
func Forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, Response{Code: 40300, Message: message})
}

// InternalError 服务端错误
func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, Response{Code: 50000, Message: message})
}

// HandleError 按错误类型映射响应
func HandleError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		NotFound(c, "记录不存在")
		return
	}
	BadRequest(c, err.Error())
}

// GetUserID 从上下文取当前用户ID
func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// GetUsername 从上下文取当前用户名
func GetUsername(c *gin.Context) string {
	return c.GetString("username")
}

// GetPagination 解析分页参数
func GetPagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
