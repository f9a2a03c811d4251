package service

import (
	"github.com/bitfantasy/gagetrack/internal/config"
	"github.com/bitfantasy/gagetrack/internal/gage/repository"
	"github.com/bitfantasy/gagetrack/internal/shared/mailer"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Auth         *AuthService
	Gage         *GageService
	Reallocation *ReallocationService
	Notification *NotificationService
	Calibration  *CalibrationService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Services {
	reallocation := NewReallocationService(repos.Reallocation, repos.Gage, repos.User, repos.ActivityLog, db)
	if cfg.Mail.Enabled && cfg.Mail.RelayURL != "" {
		reallocation.SetMailClient(mailer.NewClient(cfg.Mail.RelayURL))
	}

	return &Services{
		Auth:         NewAuthService(repos.User, rdb, cfg.JWT),
		Gage:         NewGageService(repos.Gage, repos.Reallocation),
		Reallocation: reallocation,
		Notification: NewNotificationService(repos.Reallocation),
		Calibration:  NewCalibrationService(repos.Calibration, repos.Gage, repos.ActivityLog),
	}
}
