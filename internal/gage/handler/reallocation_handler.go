package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"github.com/bitfantasy/gagetrack/internal/gage/service"
	"github.com/gin-gonic/gin"
)

// ReallocationHandler 量具调拨接口
type ReallocationHandler struct {
	reallocService *service.ReallocationService
	authService    *service.AuthService
}

func NewReallocationHandler(reallocService *service.ReallocationService, authService *service.AuthService) *ReallocationHandler {
	return &ReallocationHandler{reallocService: reallocService, authService: authService}
}

func (h *ReallocationHandler) currentUser(c *gin.Context) (*entity.User, bool) {
	user, err := h.authService.GetCurrentUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取当前用户失败")
		return nil, false
	}
	return user, true
}

// Create POST /api/v1/reallocations
func (h *ReallocationHandler) Create(c *gin.Context) {
	var req service.CreateReallocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	r, err := h.reallocService.CreateReallocation(c.Request.Context(), user, &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, r)
}

// List GET /api/v1/reallocations
func (h *ReallocationHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":             c.Query("status"),
		"gage_id":            c.Query("gage_id"),
		"current_department": c.Query("current_department"),
		"requested_by":       c.Query("requested_by"),
	}

	items, total, err := h.reallocService.ListReallocations(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "查询调拨列表失败")
		return
	}
	SuccessList(c, service.NewReallocationViews(items, time.Now()), page, pageSize, total)
}

// ListByStatus GET /api/v1/reallocations/status/:status
func (h *ReallocationHandler) ListByStatus(c *gin.Context) {
	items, err := h.reallocService.ListByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	Success(c, service.NewReallocationViews(items, time.Now()))
}

// ListByUser GET /api/v1/reallocations/user/:username
func (h *ReallocationHandler) ListByUser(c *gin.Context) {
	items, err := h.reallocService.ListByUser(c.Request.Context(), c.Param("username"))
	if err != nil {
		InternalError(c, "查询用户调拨记录失败")
		return
	}
	Success(c, service.NewReallocationViews(items, time.Now()))
}

// Get GET /api/v1/reallocations/:id
func (h *ReallocationHandler) Get(c *gin.Context) {
	r, err := h.reallocService.GetReallocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, service.NewReallocationView(*r, time.Now()))
}

// Approve POST /api/v1/reallocations/:id/approve
func (h *ReallocationHandler) Approve(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	r, err := h.reallocService.ApproveReallocation(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, r)
}

// Reject POST /api/v1/reallocations/:id/reject
func (h *ReallocationHandler) Reject(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	r, err := h.reallocService.RejectReallocation(c.Request.Context(), c.Param("id"), user, req.Reason)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, r)
}

// Return POST /api/v1/reallocations/:id/return
func (h *ReallocationHandler) Return(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	r, err := h.reallocService.ReturnReallocation(c.Request.Context(), c.Param("id"), user, req.Reason)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, r)
}

// Cancel POST /api/v1/reallocations/:id/cancel
func (h *ReallocationHandler) Cancel(c *gin.Context) {
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	r, err := h.reallocService.CancelReallocation(c.Request.Context(), c.Param("id"), user, req.Reason)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, r)
}

// Complete POST /api/v1/reallocations/:id/complete
func (h *ReallocationHandler) Complete(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	r, err := h.reallocService.CompleteReallocation(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, r)
}

// RequestAgain POST /api/v1/reallocations/:id/request-again
func (h *ReallocationHandler) RequestAgain(c *gin.Context) {
	var req service.RequestAgainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	r, err := h.reallocService.RequestAgain(c.Request.Context(), c.Param("id"), user, &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, r)
}

// ProcessExpired POST /api/v1/reallocations/:id/process-expired
func (h *ReallocationHandler) ProcessExpired(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	r, err := h.reallocService.ProcessExpiredReallocation(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, r)
}

// ProcessAllExpired POST /api/v1/reallocations/process-expired
func (h *ReallocationHandler) ProcessAllExpired(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	processed, err := h.reallocService.ProcessAllExpiredReallocations(c.Request.Context(), user)
	if err != nil {
		InternalError(c, "处理到期调拨失败")
		return
	}
	Success(c, gin.H{"processed": processed})
}

// CheckAvailable GET /api/v1/reallocations/validate/gage/:gageId/available
func (h *ReallocationHandler) CheckAvailable(c *gin.Context) {
	available, err := h.reallocService.IsGageAvailable(c.Request.Context(), c.Param("gageId"))
	if err != nil {
		InternalError(c, "查询量具可用性失败")
		return
	}
	Success(c, gin.H{"available": available})
}

// CompletedHistory GET /api/v1/reallocations/gage/:gageId/completed-history
func (h *ReallocationHandler) CompletedHistory(c *gin.Context) {
	items, err := h.reallocService.CompletedHistory(c.Request.Context(), c.Param("gageId"))
	if err != nil {
		InternalError(c, "查询调拨历史失败")
		return
	}
	Success(c, service.NewReallocationViews(items, time.Now()))
}

// TimeLimits GET /api/v1/reallocations/enums/time-limits
func (h *ReallocationHandler) TimeLimits(c *gin.Context) {
	Success(c, h.reallocService.TimeLimitOptions())
}

// Export GET /api/v1/reallocations/export
func (h *ReallocationHandler) Export(c *gin.Context) {
	filters := map[string]string{
		"status":             c.Query("status"),
		"gage_id":            c.Query("gage_id"),
		"current_department": c.Query("current_department"),
	}

	f, filename, err := h.reallocService.ExportReallocations(c.Request.Context(), filters)
	if err != nil {
		InternalError(c, "导出失败: "+err.Error())
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.QueryEscape(filename)))
	if err := f.Write(c.Writer); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}
