package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"gorm.io/gorm"
)

// CalibrationRepository 校准记录仓库
type CalibrationRepository struct {
	db *gorm.DB
}

func NewCalibrationRepository(db *gorm.DB) *CalibrationRepository {
	return &CalibrationRepository{db: db}
}

// FindAll 查询校准记录列表
func (r *CalibrationRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Calibration, int64, error) {
	var items []entity.Calibration
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Calibration{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if gageID := filters["gage_id"]; gageID != "" {
		query = query.Where("gage_id = ?", gageID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("scheduled_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找校准记录
func (r *CalibrationRepository) FindByID(ctx context.Context, id string) (*entity.Calibration, error) {
	var cal entity.Calibration
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &cal, nil
}

// FindByGage 量具的校准历史
func (r *CalibrationRepository) FindByGage(ctx context.Context, gageID string) ([]entity.Calibration, error) {
	var items []entity.Calibration
	err := r.db.WithContext(ctx).
		Where("gage_id = ?", gageID).
		Order("scheduled_at DESC").
		Find(&items).Error
	return items, err
}

// Create 创建校准记录
func (r *CalibrationRepository) Create(ctx context.Context, cal *entity.Calibration) error {
	return r.db.WithContext(ctx).Create(cal).Error
}

// Update 更新校准记录
func (r *CalibrationRepository) Update(ctx context.Context, cal *entity.Calibration) error {
	return r.db.WithContext(ctx).Save(cal).Error
}

// GenerateCode 生成校准编码 CAL-{year}-{4位}
func (r *CalibrationRepository) GenerateCode(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("CAL-%s-", year)

	var maxCode string
	err := r.db.WithContext(ctx).
		Model(&entity.Calibration{}).
		Select("COALESCE(MAX(code), '')").
		Where("code LIKE ?", prefix+"%").
		Scan(&maxCode).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxCode != "" {
		fmt.Sscanf(maxCode, "CAL-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("CAL-%s-%04d", year, seq), nil
}
