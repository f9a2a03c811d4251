package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	User         *UserRepository
	Gage         *GageRepository
	Reallocation *ReallocationRepository
	Calibration  *CalibrationRepository
	ActivityLog  *ActivityLogRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Gage:         NewGageRepository(db),
		Reallocation: NewReallocationRepository(db),
		Calibration:  NewCalibrationRepository(db),
		ActivityLog:  NewActivityLogRepository(db),
	}
}
