package entity

import (
	"fmt"
	"strings"
	"time"
)

// Reallocation 量具调拨单
// 记录量具在部门/工位之间的临时调拨，含时限与审批信息
type Reallocation struct {
	ID   string `json:"id" gorm:"primaryKey;size:32"`
	Code string `json:"code" gorm:"size:32;uniqueIndex;not null"` // RAL-2026-0001

	// 量具信息（冗余展示字段，GageID为关联键）
	GageID       string `json:"gage_id" gorm:"size:32;not null;index"`
	GageSerialNo string `json:"gage_serial_no" gorm:"size:64"`
	GageModelNo  string `json:"gage_model_no" gorm:"size:64"`
	GageTypeName string `json:"gage_type_name" gorm:"size:100"`

	// 原分配位置
	OriginalDepartment string `json:"original_department" gorm:"size:100"`
	OriginalFunction   string `json:"original_function" gorm:"size:100"`
	OriginalOperation  string `json:"original_operation" gorm:"size:100"`

	// 调拨目标位置
	CurrentDepartment string `json:"current_department" gorm:"size:100"`
	CurrentFunction   string `json:"current_function" gorm:"size:100"`
	CurrentOperation  string `json:"current_operation" gorm:"size:100"`

	// 时限策略
	TimeLimit   string     `json:"time_limit" gorm:"size:20;default:one_day"` // two_hours/one_day/one_week/one_month/custom
	AllocatedAt *time.Time `json:"allocated_at"`                              // 审批通过时刻
	ExpiresAt   *time.Time `json:"expires_at"`                                // allocated_at + 时限；custom由请求方指定

	Status string `json:"status" gorm:"size:20;default:pending_approval;index"`

	// 说明
	Reason       string `json:"reason" gorm:"type:text;not null"` // 调拨原因，创建时必填
	Notes        string `json:"notes" gorm:"type:text"`
	ReturnReason string `json:"return_reason" gorm:"type:text"`

	// 通知目标操作员（旧数据在notes中嵌入 "Notify Operator: <username>"，见NotifyTarget）
	NotifyOperator string `json:"notify_operator" gorm:"size:64;index"`
	// 操作员是否已读通知
	AcknowledgedByOperator bool `json:"acknowledged_by_operator" gorm:"default:false"`

	// 操作人
	RequestedBy          string  `json:"requested_by" gorm:"size:64;not null;index"`
	RequestedByFunction  string  `json:"requested_by_function" gorm:"size:100"`
	RequestedByOperation string  `json:"requested_by_operation" gorm:"size:100"`
	ApprovedBy           *string `json:"approved_by" gorm:"size:64"`

	// 审计时间
	ApprovedAt  *time.Time `json:"approved_at"`
	CancelledAt *time.Time `json:"cancelled_at"`
	ReturnedAt  *time.Time `json:"returned_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Reallocation) TableName() string {
	return "gage_reallocations"
}

// Reallocation 状态
const (
	ReallocationStatusPendingApproval = "pending_approval"
	ReallocationStatusApproved        = "approved"
	ReallocationStatusReturned        = "returned"
	ReallocationStatusExpired         = "expired"
	ReallocationStatusCancelled       = "cancelled"
	ReallocationStatusCompleted       = "completed"
)

// ReallocationStatuses 全部合法状态，用于参数校验
var ReallocationStatuses = []string{
	ReallocationStatusPendingApproval,
	ReallocationStatusApproved,
	ReallocationStatusReturned,
	ReallocationStatusExpired,
	ReallocationStatusCancelled,
	ReallocationStatusCompleted,
}

// IsValidReallocationStatus 校验状态字符串
func IsValidReallocationStatus(s string) bool {
	for _, v := range ReallocationStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal 是否终态（returned/expired在close-out后转completed，仍视为终态）
func (r *Reallocation) IsTerminal() bool {
	switch r.Status {
	case ReallocationStatusReturned, ReallocationStatusExpired,
		ReallocationStatusCancelled, ReallocationStatusCompleted:
		return true
	}
	return false
}

// IsActive 非终态：占用量具，阻止新的调拨申请
func (r *Reallocation) IsActive() bool {
	return r.Status == ReallocationStatusPendingApproval || r.Status == ReallocationStatusApproved
}

// CanRequestAgain 是否可作为"再次申请"的基础单
// returned为正常归还终态，completed为管理员close-out后的归档态，两者等价
func (r *Reallocation) CanRequestAgain() bool {
	return r.Status == ReallocationStatusReturned || r.Status == ReallocationStatusCompleted
}

// reallocationTransitions 状态机合法迁移表
var reallocationTransitions = map[string][]string{
	ReallocationStatusPendingApproval: {ReallocationStatusApproved, ReallocationStatusCancelled},
	ReallocationStatusApproved:        {ReallocationStatusReturned, ReallocationStatusExpired, ReallocationStatusCancelled},
	ReallocationStatusReturned:        {ReallocationStatusCompleted},
	ReallocationStatusExpired:         {ReallocationStatusCompleted},
}

// CanTransition 状态机守卫：from→to 是否合法
func CanTransition(from, to string) bool {
	for _, t := range reallocationTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// === 时限 ===

// TimeLimit 调拨时限枚举
const (
	TimeLimitTwoHours = "two_hours"
	TimeLimitOneDay   = "one_day"
	TimeLimitOneWeek  = "one_week"
	TimeLimitOneMonth = "one_month"
	TimeLimitCustom   = "custom"
)

// TimeLimits 枚举顺序与前端下拉一致
var TimeLimits = []string{
	TimeLimitTwoHours,
	TimeLimitOneDay,
	TimeLimitOneWeek,
	TimeLimitOneMonth,
	TimeLimitCustom,
}

var timeLimitNames = map[string]string{
	TimeLimitTwoHours: "2 Hours",
	TimeLimitOneDay:   "1 Day",
	TimeLimitOneWeek:  "1 Week",
	TimeLimitOneMonth: "1 Month",
	TimeLimitCustom:   "Custom",
}

// TimeLimitDisplayName 时限展示名，未知值原样返回
func TimeLimitDisplayName(limit string) string {
	if name, ok := timeLimitNames[limit]; ok {
		return name
	}
	return limit
}

// TimeLimitDuration 时限对应的持续时间
// custom没有固定时长，返回0，到期时间由申请单显式指定
func TimeLimitDuration(limit string) time.Duration {
	switch limit {
	case TimeLimitTwoHours:
		return 2 * time.Hour
	case TimeLimitOneDay:
		return 24 * time.Hour
	case TimeLimitOneWeek:
		return 7 * 24 * time.Hour
	case TimeLimitOneMonth:
		return 30 * 24 * time.Hour
	}
	return 0
}

// IsValidTimeLimit 校验时限枚举值
func IsValidTimeLimit(limit string) bool {
	_, ok := timeLimitNames[limit]
	return ok
}

// === 到期评估（纯函数，仅用于展示提示；状态变更由服务端ProcessExpired驱动）===

// IsExpired 到期判断：expires_at 已过
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.Before(now)
}

// IsExpiringSoon 即将到期：距expires_at不足24小时
func IsExpiringSoon(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	remaining := expiresAt.Sub(now)
	return remaining > 0 && remaining <= 24*time.Hour
}

// === 通知目标 ===

const notifyMarkerPrefix = "Notify Operator: "

// NotifyTarget 该调拨单通知的目标操作员
// 优先使用notify_operator字段；兼容旧数据notes中的 "Notify Operator: <username>" 标记
func (r *Reallocation) NotifyTarget() string {
	if r.NotifyOperator != "" {
		return r.NotifyOperator
	}
	idx := strings.Index(r.Notes, notifyMarkerPrefix)
	if idx < 0 {
		return ""
	}
	rest := r.Notes[idx+len(notifyMarkerPrefix):]
	// 用户名到第一个空白或句点为止
	end := strings.IndexFunc(rest, func(c rune) bool {
		return c == ' ' || c == '\t' || c == '\n' || c == '.' || c == ','
	})
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// NotifiesUser 是否面向指定操作员（字段匹配或notes子串精确匹配，区分大小写）
func (r *Reallocation) NotifiesUser(username string) bool {
	if username == "" {
		return false
	}
	if r.NotifyOperator == username {
		return true
	}
	return strings.Contains(r.Notes, notifyMarkerPrefix+username)
}

// NotifyMarker 生成notes兼容标记
func NotifyMarker(username string) string {
	return notifyMarkerPrefix + username
}

// RepeatedRequestPrefix "再次申请"的notes前缀
func RepeatedRequestPrefix(username string) string {
	return fmt.Sprintf("Repeated request from %s. Previous usage completed.", username)
}
