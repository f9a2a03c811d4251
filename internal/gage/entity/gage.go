package entity

import "time"

// Gage 量具台账
type Gage struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	SerialNo string `json:"serial_no" gorm:"size:64;uniqueIndex;not null"`
	ModelNo  string `json:"model_no" gorm:"size:64"`
	TypeName string `json:"type_name" gorm:"size:100"` // 卡尺/千分尺/塞规等
	Name     string `json:"name" gorm:"size:200"`

	// 当前分配位置
	Department string `json:"department" gorm:"size:100;index"`
	Function   string `json:"function" gorm:"size:100"`
	Operation  string `json:"operation" gorm:"size:100"`

	Status string `json:"status" gorm:"size:20;default:active"` // active/issued/in_calibration/retired

	// 校准策略
	CalibrationIntervalDays int        `json:"calibration_interval_days" gorm:"default:365"`
	LastCalibratedAt        *time.Time `json:"last_calibrated_at"`
	CalibrationDueAt        *time.Time `json:"calibration_due_at"`

	// 当前持有人（发放后填写）
	IssuedTo *string    `json:"issued_to" gorm:"size:64"`
	IssuedAt *time.Time `json:"issued_at"`

	Notes     string    `json:"notes" gorm:"type:text"`
	CreatedBy string    `json:"created_by" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Gage) TableName() string {
	return "gages"
}

// Gage 状态
const (
	GageStatusActive        = "active"
	GageStatusIssued        = "issued"
	GageStatusInCalibration = "in_calibration"
	GageStatusRetired       = "retired"
)

// CalibrationDue 校准是否到期
func (g *Gage) CalibrationDue(now time.Time) bool {
	return g.CalibrationDueAt != nil && g.CalibrationDueAt.Before(now)
}
