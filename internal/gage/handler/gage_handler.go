package handler

import (
	"strconv"

	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"github.com/bitfantasy/gagetrack/internal/gage/service"
	"github.com/gin-gonic/gin"
)

// GageHandler 量具台账接口
type GageHandler struct {
	gageService *service.GageService
}

func NewGageHandler(gageService *service.GageService) *GageHandler {
	return &GageHandler{gageService: gageService}
}

// Create POST /api/v1/gages
func (h *GageHandler) Create(c *gin.Context) {
	var req service.CreateGageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	// 创建人只需身份标识，取自JWT上下文
	user := &entity.User{ID: GetUserID(c), Username: GetUsername(c)}
	g, err := h.gageService.CreateGage(c.Request.Context(), user, &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, g)
}

// List GET /api/v1/gages
func (h *GageHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":     c.Query("status"),
		"department": c.Query("department"),
		"type_name":  c.Query("type_name"),
		"search":     c.Query("search"),
	}

	items, total, err := h.gageService.ListGages(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "查询量具列表失败")
		return
	}
	SuccessList(c, items, page, pageSize, total)
}

// Get GET /api/v1/gages/:id
func (h *GageHandler) Get(c *gin.Context) {
	g, err := h.gageService.GetGage(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, g)
}

// Update PUT /api/v1/gages/:id
func (h *GageHandler) Update(c *gin.Context) {
	var req service.UpdateGageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	g, err := h.gageService.UpdateGage(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, g)
}

// Retire POST /api/v1/gages/:id/retire
func (h *GageHandler) Retire(c *gin.Context) {
	g, err := h.gageService.RetireGage(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, g)
}

// CalibrationDue GET /api/v1/gages/calibration-due?within_days=30
func (h *GageHandler) CalibrationDue(c *gin.Context) {
	withinDays, _ := strconv.Atoi(c.DefaultQuery("within_days", "30"))
	items, err := h.gageService.ListCalibrationDue(c.Request.Context(), withinDays)
	if err != nil {
		InternalError(c, "查询校准到期量具失败")
		return
	}
	Success(c, items)
}
