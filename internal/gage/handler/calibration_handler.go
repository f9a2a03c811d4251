package handler

import (
	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"github.com/bitfantasy/gagetrack/internal/gage/service"
	"github.com/gin-gonic/gin"
)

// CalibrationHandler 校准排期接口
type CalibrationHandler struct {
	calibrationService *service.CalibrationService
	authService        *service.AuthService
}

func NewCalibrationHandler(calibrationService *service.CalibrationService, authService *service.AuthService) *CalibrationHandler {
	return &CalibrationHandler{calibrationService: calibrationService, authService: authService}
}

func (h *CalibrationHandler) currentUser(c *gin.Context) (*entity.User, bool) {
	user, err := h.authService.GetCurrentUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取当前用户失败")
		return nil, false
	}
	return user, true
}

// Schedule POST /api/v1/calibrations
func (h *CalibrationHandler) Schedule(c *gin.Context) {
	var req service.ScheduleCalibrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	cal, err := h.calibrationService.ScheduleCalibration(c.Request.Context(), user, &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, cal)
}

// List GET /api/v1/calibrations
func (h *CalibrationHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":  c.Query("status"),
		"gage_id": c.Query("gage_id"),
	}

	items, total, err := h.calibrationService.ListCalibrations(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "查询校准记录失败")
		return
	}
	SuccessList(c, items, page, pageSize, total)
}

// Get GET /api/v1/calibrations/:id
func (h *CalibrationHandler) Get(c *gin.Context) {
	cal, err := h.calibrationService.GetCalibration(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, cal)
}

// ListByGage GET /api/v1/calibrations/gage/:gageId
func (h *CalibrationHandler) ListByGage(c *gin.Context) {
	items, err := h.calibrationService.ListByGage(c.Request.Context(), c.Param("gageId"))
	if err != nil {
		InternalError(c, "查询量具校准历史失败")
		return
	}
	Success(c, items)
}

// Complete POST /api/v1/calibrations/:id/complete
func (h *CalibrationHandler) Complete(c *gin.Context) {
	var req service.CompleteCalibrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	cal, err := h.calibrationService.CompleteCalibration(c.Request.Context(), c.Param("id"), user, &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, cal)
}

// Cancel POST /api/v1/calibrations/:id/cancel
func (h *CalibrationHandler) Cancel(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	cal, err := h.calibrationService.CancelCalibration(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, cal)
}
