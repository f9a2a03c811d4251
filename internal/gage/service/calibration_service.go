package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"github.com/bitfantasy/gagetrack/internal/gage/repository"
	"github.com/bitfantasy/gagetrack/internal/gage/sse"
	"github.com/google/uuid"
)

// CalibrationService 校准排期服务
type CalibrationService struct {
	calibrationRepo *repository.CalibrationRepository
	gageRepo        *repository.GageRepository
	activityLogRepo *repository.ActivityLogRepository
}

func NewCalibrationService(
	calibrationRepo *repository.CalibrationRepository,
	gageRepo *repository.GageRepository,
	activityLogRepo *repository.ActivityLogRepository,
) *CalibrationService {
	return &CalibrationService{
		calibrationRepo: calibrationRepo,
		gageRepo:        gageRepo,
		activityLogRepo: activityLogRepo,
	}
}

// ScheduleCalibrationRequest 排期校准
type ScheduleCalibrationRequest struct {
	GageID      string     `json:"gage_id" binding:"required"`
	ScheduledAt *time.Time `json:"scheduled_at" binding:"required"`
	Agency      string     `json:"agency"`
	Notes       string     `json:"notes"`
}

// ScheduleCalibration 创建校准排期，量具进入in_calibration
func (s *CalibrationService) ScheduleCalibration(ctx context.Context, user *entity.User, req *ScheduleCalibrationRequest) (*entity.Calibration, error) {
	gage, err := s.gageRepo.FindByID(ctx, req.GageID)
	if err != nil {
		return nil, fmt.Errorf("量具不存在: %w", err)
	}
	if gage.Status == entity.GageStatusRetired {
		return nil, fmt.Errorf("量具已退役，不可排期校准")
	}
	if gage.Status == entity.GageStatusInCalibration {
		return nil, fmt.Errorf("量具已在校准中")
	}

	code, err := s.calibrationRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成校准编码失败: %w", err)
	}

	now := time.Now()
	c := &entity.Calibration{
		ID:           uuid.New().String()[:32],
		Code:         code,
		GageID:       gage.ID,
		GageSerialNo: gage.SerialNo,
		Status:       entity.CalibrationStatusScheduled,
		ScheduledAt:  req.ScheduledAt,
		Agency:       req.Agency,
		Notes:        req.Notes,
		ScheduledBy:  user.Username,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.calibrationRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	gage.Status = entity.GageStatusInCalibration
	gage.UpdatedAt = now
	if err := s.gageRepo.Update(ctx, gage); err != nil {
		return nil, fmt.Errorf("更新量具状态失败: %w", err)
	}

	s.activityLogRepo.LogActivity(ctx, "calibration", c.ID, c.Code,
		"schedule", "", entity.CalibrationStatusScheduled,
		fmt.Sprintf("排期校准: %s @ %s", gage.SerialNo, req.ScheduledAt.Format("2006-01-02")),
		user.ID, user.Name)

	sse.PublishCalibrationUpdate(c.ID, c.GageID, c.Status)

	return c, nil
}

// CompleteCalibrationRequest 完成校准
type CompleteCalibrationRequest struct {
	Result string `json:"result" binding:"required"` // passed/failed/adjusted
	Notes  string `json:"notes"`
}

// CompleteCalibration 完成校准，回写量具校准时间并顺延下次到期日
func (s *CalibrationService) CompleteCalibration(ctx context.Context, id string, user *entity.User, req *CompleteCalibrationRequest) (*entity.Calibration, error) {
	c, err := s.calibrationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != entity.CalibrationStatusScheduled && c.Status != entity.CalibrationStatusInProgress {
		return nil, fmt.Errorf("校准记录状态不正确: %s", c.Status)
	}
	switch req.Result {
	case entity.CalibrationResultPassed, entity.CalibrationResultFailed, entity.CalibrationResultAdjusted:
	default:
		return nil, fmt.Errorf("无效的校准结果: %s", req.Result)
	}

	now := time.Now()
	c.Status = entity.CalibrationStatusCompleted
	c.CompletedAt = &now
	c.CompletedBy = &user.Username
	c.Result = req.Result
	if req.Notes != "" {
		c.Notes = req.Notes
	}
	c.UpdatedAt = now

	if err := s.calibrationRepo.Update(ctx, c); err != nil {
		return nil, err
	}

	// 回写量具：校准失败的量具退役处理由管理员另行操作
	gage, err := s.gageRepo.FindByID(ctx, c.GageID)
	if err == nil {
		gage.LastCalibratedAt = &now
		due := now.AddDate(0, 0, gage.CalibrationIntervalDays)
		gage.CalibrationDueAt = &due
		gage.Status = entity.GageStatusActive
		gage.UpdatedAt = now
		if uerr := s.gageRepo.Update(ctx, gage); uerr != nil {
			return nil, fmt.Errorf("回写量具校准信息失败: %w", uerr)
		}
	}

	s.activityLogRepo.LogActivity(ctx, "calibration", c.ID, c.Code,
		"complete", entity.CalibrationStatusScheduled, entity.CalibrationStatusCompleted,
		fmt.Sprintf("校准完成: %s，结果 %s", c.GageSerialNo, req.Result),
		user.ID, user.Name)

	sse.PublishCalibrationUpdate(c.ID, c.GageID, c.Status)

	return c, nil
}

// CancelCalibration 取消校准排期，量具回到active
func (s *CalibrationService) CancelCalibration(ctx context.Context, id string, user *entity.User) (*entity.Calibration, error) {
	c, err := s.calibrationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != entity.CalibrationStatusScheduled {
		return nil, fmt.Errorf("校准记录状态不正确: %s", c.Status)
	}

	now := time.Now()
	c.Status = entity.CalibrationStatusCancelled
	c.UpdatedAt = now
	if err := s.calibrationRepo.Update(ctx, c); err != nil {
		return nil, err
	}

	if gage, gerr := s.gageRepo.FindByID(ctx, c.GageID); gerr == nil && gage.Status == entity.GageStatusInCalibration {
		gage.Status = entity.GageStatusActive
		gage.UpdatedAt = now
		if uerr := s.gageRepo.Update(ctx, gage); uerr != nil {
			return nil, fmt.Errorf("恢复量具状态失败: %w", uerr)
		}
	}

	s.activityLogRepo.LogActivity(ctx, "calibration", c.ID, c.Code,
		"cancel", entity.CalibrationStatusScheduled, entity.CalibrationStatusCancelled,
		fmt.Sprintf("取消校准排期: %s", c.GageSerialNo),
		user.ID, user.Name)

	sse.PublishCalibrationUpdate(c.ID, c.GageID, c.Status)

	return c, nil
}

// GetCalibration 校准记录详情
func (s *CalibrationService) GetCalibration(ctx context.Context, id string) (*entity.Calibration, error) {
	return s.calibrationRepo.FindByID(ctx, id)
}

// ListCalibrations 校准记录列表
func (s *CalibrationService) ListCalibrations(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Calibration, int64, error) {
	return s.calibrationRepo.FindAll(ctx, page, pageSize, filters)
}

// ListByGage 量具的校准历史
func (s *CalibrationService) ListByGage(ctx context.Context, gageID string) ([]entity.Calibration, error) {
	return s.calibrationRepo.FindByGage(ctx, gageID)
}
