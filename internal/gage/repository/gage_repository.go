package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"gorm.io/gorm"
)

// GageRepository 量具仓库
type GageRepository struct {
	db *gorm.DB
}

func NewGageRepository(db *gorm.DB) *GageRepository {
	return &GageRepository{db: db}
}

// FindAll 查询量具列表
func (r *GageRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Gage, int64, error) {
	var items []entity.Gage
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Gage{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if dept := filters["department"]; dept != "" {
		query = query.Where("department = ?", dept)
	}
	if typeName := filters["type_name"]; typeName != "" {
		query = query.Where("type_name = ?", typeName)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("serial_no ILIKE ? OR model_no ILIKE ? OR name ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("serial_no ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找量具
func (r *GageRepository) FindByID(ctx context.Context, id string) (*entity.Gage, error) {
	var g entity.Gage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FindBySerialNo 根据序列号查找量具
func (r *GageRepository) FindBySerialNo(ctx context.Context, serialNo string) (*entity.Gage, error) {
	var g entity.Gage
	err := r.db.WithContext(ctx).Where("serial_no = ?", serialNo).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FindCalibrationDue 校准到期（或即将到期）的量具
func (r *GageRepository) FindCalibrationDue(ctx context.Context, within int) ([]entity.Gage, error) {
	var items []entity.Gage
	err := r.db.WithContext(ctx).
		Where("status != ? AND calibration_due_at IS NOT NULL AND calibration_due_at < NOW() + make_interval(days => ?)",
			entity.GageStatusRetired, within).
		Order("calibration_due_at ASC").
		Find(&items).Error
	return items, err
}

// Create 创建量具
func (r *GageRepository) Create(ctx context.Context, g *entity.Gage) error {
	return r.db.WithContext(ctx).Create(g).Error
}

// Update 更新量具
func (r *GageRepository) Update(ctx context.Context, g *entity.Gage) error {
	return r.db.WithContext(ctx).Save(g).Error
}
