package entity

import "time"

// Calibration 校准记录
// 厂长排期 → 执行 → 完成后回写量具的校准到期日
type Calibration struct {
	ID   string `json:"id" gorm:"primaryKey;size:32"`
	Code string `json:"code" gorm:"size:32;uniqueIndex;not null"` // CAL-2026-0001

	GageID       string `json:"gage_id" gorm:"size:32;not null;index"`
	GageSerialNo string `json:"gage_serial_no" gorm:"size:64"`

	Status string `json:"status" gorm:"size:20;default:scheduled"` // scheduled/in_progress/completed/cancelled

	ScheduledAt *time.Time `json:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at"`
	Result      string     `json:"result" gorm:"size:20"` // passed/failed/adjusted
	Agency      string     `json:"agency" gorm:"size:200"`
	Notes       string     `json:"notes" gorm:"type:text"`

	ScheduledBy string    `json:"scheduled_by" gorm:"size:64"`
	CompletedBy *string   `json:"completed_by" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Calibration) TableName() string {
	return "gage_calibrations"
}

// Calibration 状态
const (
	CalibrationStatusScheduled  = "scheduled"
	CalibrationStatusInProgress = "in_progress"
	CalibrationStatusCompleted  = "completed"
	CalibrationStatusCancelled  = "cancelled"
)

// Calibration 结果
const (
	CalibrationResultPassed   = "passed"
	CalibrationResultFailed   = "failed"
	CalibrationResultAdjusted = "adjusted"
)
