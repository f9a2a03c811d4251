package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"github.com/bitfantasy/gagetrack/internal/gage/repository"
	"github.com/google/uuid"
)

// GageService 量具台账服务
type GageService struct {
	gageRepo    *repository.GageRepository
	reallocRepo *repository.ReallocationRepository
}

func NewGageService(gageRepo *repository.GageRepository, reallocRepo *repository.ReallocationRepository) *GageService {
	return &GageService{gageRepo: gageRepo, reallocRepo: reallocRepo}
}

// CreateGageRequest 新增量具
type CreateGageRequest struct {
	SerialNo                string `json:"serial_no" binding:"required"`
	ModelNo                 string `json:"model_no"`
	TypeName                string `json:"type_name" binding:"required"`
	Name                    string `json:"name"`
	Department              string `json:"department"`
	Function                string `json:"function"`
	Operation               string `json:"operation"`
	CalibrationIntervalDays int    `json:"calibration_interval_days"`
	Notes                   string `json:"notes"`
}

// CreateGage 新增量具
func (s *GageService) CreateGage(ctx context.Context, user *entity.User, req *CreateGageRequest) (*entity.Gage, error) {
	if _, err := s.gageRepo.FindBySerialNo(ctx, req.SerialNo); err == nil {
		return nil, fmt.Errorf("序列号已存在: %s", req.SerialNo)
	}

	interval := req.CalibrationIntervalDays
	if interval <= 0 {
		interval = 365
	}

	now := time.Now()
	g := &entity.Gage{
		ID:                      uuid.New().String()[:32],
		SerialNo:                req.SerialNo,
		ModelNo:                 req.ModelNo,
		TypeName:                req.TypeName,
		Name:                    req.Name,
		Department:              req.Department,
		Function:                req.Function,
		Operation:               req.Operation,
		Status:                  entity.GageStatusActive,
		CalibrationIntervalDays: interval,
		Notes:                   req.Notes,
		CreatedBy:               user.Username,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.gageRepo.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateGageRequest 更新量具基础信息
type UpdateGageRequest struct {
	ModelNo                 *string `json:"model_no"`
	TypeName                *string `json:"type_name"`
	Name                    *string `json:"name"`
	Department              *string `json:"department"`
	Function                *string `json:"function"`
	Operation               *string `json:"operation"`
	CalibrationIntervalDays *int    `json:"calibration_interval_days"`
	Notes                   *string `json:"notes"`
}

// UpdateGage 更新量具，nil字段不变
func (s *GageService) UpdateGage(ctx context.Context, id string, req *UpdateGageRequest) (*entity.Gage, error) {
	g, err := s.gageRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ModelNo != nil {
		g.ModelNo = *req.ModelNo
	}
	if req.TypeName != nil {
		g.TypeName = *req.TypeName
	}
	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Department != nil {
		g.Department = *req.Department
	}
	if req.Function != nil {
		g.Function = *req.Function
	}
	if req.Operation != nil {
		g.Operation = *req.Operation
	}
	if req.CalibrationIntervalDays != nil && *req.CalibrationIntervalDays > 0 {
		g.CalibrationIntervalDays = *req.CalibrationIntervalDays
	}
	if req.Notes != nil {
		g.Notes = *req.Notes
	}
	g.UpdatedAt = time.Now()

	if err := s.gageRepo.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// RetireGage 量具退役
// 守卫：无未完结调拨单
func (s *GageService) RetireGage(ctx context.Context, id string) (*entity.Gage, error) {
	g, err := s.gageRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.Status == entity.GageStatusRetired {
		return nil, fmt.Errorf("量具已退役")
	}

	active, err := s.reallocRepo.HasActiveForGage(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, fmt.Errorf("量具有未完结的调拨申请，不可退役")
	}

	g.Status = entity.GageStatusRetired
	g.UpdatedAt = time.Now()
	if err := s.gageRepo.Update(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// GetGage 量具详情
func (s *GageService) GetGage(ctx context.Context, id string) (*entity.Gage, error) {
	return s.gageRepo.FindByID(ctx, id)
}

// ListGages 量具列表
func (s *GageService) ListGages(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Gage, int64, error) {
	return s.gageRepo.FindAll(ctx, page, pageSize, filters)
}

// ListCalibrationDue 未来N天内校准到期的量具，默认30天
func (s *GageService) ListCalibrationDue(ctx context.Context, withinDays int) ([]entity.Gage, error) {
	if withinDays <= 0 {
		withinDays = 30
	}
	return s.gageRepo.FindCalibrationDue(ctx, withinDays)
}
