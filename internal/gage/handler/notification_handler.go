package handler

import (
	"github.com/bitfantasy/gagetrack/internal/gage/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 操作员通知接口
type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List GET /api/v1/notifications
// 支持 status / time_period(TODAY|WEEK|MONTH) / read_status(UNREAD) 过滤
func (h *NotificationHandler) List(c *gin.Context) {
	items, err := h.notificationService.GetNotificationsForUser(
		c.Request.Context(),
		GetUsername(c),
		c.Query("status"),
		c.Query("time_period"),
		c.Query("read_status"),
	)
	if err != nil {
		InternalError(c, "查询通知失败")
		return
	}
	Success(c, items)
}

// UnreadCount GET /api/v1/notifications/unread-count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notificationService.UnreadCount(c.Request.Context(), GetUsername(c))
	if err != nil {
		InternalError(c, "查询未读数失败")
		return
	}
	Success(c, gin.H{"count": count})
}

// Acknowledge POST /api/v1/notifications/:id/ack
// :id为调拨单ID
func (h *NotificationHandler) Acknowledge(c *gin.Context) {
	r, err := h.notificationService.Acknowledge(c.Request.Context(), c.Param("id"), GetUsername(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, r)
}
