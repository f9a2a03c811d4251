package entity

import "time"

// User 系统用户
type User struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	Username     string `json:"username" gorm:"size:64;uniqueIndex;not null"`
	Name         string `json:"name" gorm:"size:100"`
	Email        string `json:"email" gorm:"size:200"`
	PasswordHash string `json:"-" gorm:"size:100;not null"`

	Role       string `json:"role" gorm:"size:32;default:operator"` // operator/crib_manager/plant_head/gage_admin
	Department string `json:"department" gorm:"size:100"`
	Function   string `json:"function" gorm:"size:100"`
	Operation  string `json:"operation" gorm:"size:100"`

	Status    string    `json:"status" gorm:"size:20;default:active"` // active/disabled
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "gage_users"
}

// 用户角色
const (
	RoleOperator    = "operator"
	RoleCribManager = "crib_manager"
	RolePlantHead   = "plant_head"
	RoleGageAdmin   = "gage_admin"
)
