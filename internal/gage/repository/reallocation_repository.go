package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"gorm.io/gorm"
)

// ReallocationRepository 调拨单仓库
type ReallocationRepository struct {
	db *gorm.DB
}

func NewReallocationRepository(db *gorm.DB) *ReallocationRepository {
	return &ReallocationRepository{db: db}
}

// FindAll 查询调拨单列表
func (r *ReallocationRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Reallocation, int64, error) {
	var items []entity.Reallocation
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Reallocation{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if gageID := filters["gage_id"]; gageID != "" {
		query = query.Where("gage_id = ?", gageID)
	}
	if dept := filters["current_department"]; dept != "" {
		query = query.Where("current_department = ?", dept)
	}
	if requestedBy := filters["requested_by"]; requestedBy != "" {
		query = query.Where("requested_by = ?", requestedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找调拨单
func (r *ReallocationRepository) FindByID(ctx context.Context, id string) (*entity.Reallocation, error) {
	var req entity.Reallocation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// FindByStatus 按状态查询全量调拨单（通知派生用，不分页）
func (r *ReallocationRepository) FindByStatus(ctx context.Context, status string) ([]entity.Reallocation, error) {
	var items []entity.Reallocation
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// FindByUser 查询某用户相关的调拨单（申请人或审批人）
func (r *ReallocationRepository) FindByUser(ctx context.Context, username string) ([]entity.Reallocation, error) {
	var items []entity.Reallocation
	err := r.db.WithContext(ctx).
		Where("requested_by = ? OR approved_by = ? OR notify_operator = ?", username, username, username).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// HasActiveForGage 量具是否存在未完结（pending_approval/approved）的调拨单
func (r *ReallocationRepository) HasActiveForGage(ctx context.Context, gageID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Reallocation{}).
		Where("gage_id = ? AND status IN ?", gageID,
			[]string{entity.ReallocationStatusPendingApproval, entity.ReallocationStatusApproved}).
		Count(&count).Error
	return count > 0, err
}

// FindCompletedHistoryByGage 量具的已完结调拨历史（returned/completed），再次申请弹窗用
func (r *ReallocationRepository) FindCompletedHistoryByGage(ctx context.Context, gageID string) ([]entity.Reallocation, error) {
	var items []entity.Reallocation
	err := r.db.WithContext(ctx).
		Where("gage_id = ? AND status IN ?", gageID,
			[]string{entity.ReallocationStatusReturned, entity.ReallocationStatusCompleted}).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// FindExpiredCandidates 已到期但状态仍为approved的调拨单
func (r *ReallocationRepository) FindExpiredCandidates(ctx context.Context, now time.Time) ([]entity.Reallocation, error) {
	var items []entity.Reallocation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			entity.ReallocationStatusApproved, now).
		Find(&items).Error
	return items, err
}

// Create 创建调拨单
func (r *ReallocationRepository) Create(ctx context.Context, req *entity.Reallocation) error {
	return r.db.WithContext(ctx).Create(req).Error
}

// Update 更新调拨单
func (r *ReallocationRepository) Update(ctx context.Context, req *entity.Reallocation) error {
	return r.db.WithContext(ctx).Save(req).Error
}

// GenerateCode 生成调拨单编码 RAL-{year}-{4位}
func (r *ReallocationRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("RAL-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Reallocation{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "RAL-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("RAL-%s-%04d", year, seq), nil
}
