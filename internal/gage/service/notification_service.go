package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"github.com/bitfantasy/gagetrack/internal/gage/repository"
)

// NotificationService 通知服务
// 通知不单独落库，由调拨单按状态派生：approved/cancelled/returned三类记录中
// 通知目标命中当前用户的即为其通知
type NotificationService struct {
	reallocRepo *repository.ReallocationRepository
}

func NewNotificationService(reallocRepo *repository.ReallocationRepository) *NotificationService {
	return &NotificationService{reallocRepo: reallocRepo}
}

// Notification 通知视图
type Notification struct {
	ID                string     `json:"id"`
	ReallocationID    string     `json:"reallocation_id"`
	Code              string     `json:"code"`
	GageID            string     `json:"gage_id"`
	GageSerialNo      string     `json:"gage_serial_no"`
	GageModelNo       string     `json:"gage_model_no"`
	GageTypeName      string     `json:"gage_type_name"`
	Status            string     `json:"status"`
	Message           string     `json:"message"`
	Timestamp         time.Time  `json:"timestamp"`
	Read              bool       `json:"read"`
	RequestedBy       string     `json:"requested_by"`
	ApprovedBy        string     `json:"approved_by,omitempty"`
	CurrentDepartment string     `json:"current_department"`
	CurrentFunction   string     `json:"current_function,omitempty"`
	CurrentOperation  string     `json:"current_operation,omitempty"`
	TimeLimit         string     `json:"time_limit,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	Reason            string     `json:"reason,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

// 时间段过滤取值
const (
	TimePeriodToday = "TODAY"
	TimePeriodWeek  = "WEEK"
	TimePeriodMonth = "MONTH"

	ReadStatusUnread = "UNREAD"
)

// NotificationMessage 按状态生成通知文案
func NotificationMessage(status, serialNo string) string {
	switch status {
	case entity.ReallocationStatusApproved:
		return fmt.Sprintf("Request for %s has been approved", serialNo)
	case entity.ReallocationStatusCancelled:
		return fmt.Sprintf("Request for %s has been cancelled", serialNo)
	case entity.ReallocationStatusReturned:
		return fmt.Sprintf("%s has been returned", serialNo)
	default:
		return fmt.Sprintf("Status update for %s", serialNo)
	}
}

// NotificationTimestamp 通知时间取状态对应的动作时刻
// 优先级: approved_at > cancelled_at > returned_at > updated_at
func NotificationTimestamp(r *entity.Reallocation) time.Time {
	if r.ApprovedAt != nil {
		return *r.ApprovedAt
	}
	if r.CancelledAt != nil {
		return *r.CancelledAt
	}
	if r.ReturnedAt != nil {
		return *r.ReturnedAt
	}
	return r.UpdatedAt
}

// DeriveNotifications 从调拨单集合派生指定用户的通知，按时间倒序
// 纯函数，不触库
func DeriveNotifications(records []entity.Reallocation, username string) []Notification {
	items := make([]Notification, 0)
	for i := range records {
		r := &records[i]
		if !r.NotifiesUser(username) {
			continue
		}
		n := Notification{
			ID:                "ntf-" + r.ID,
			ReallocationID:    r.ID,
			Code:              r.Code,
			GageID:            r.GageID,
			GageSerialNo:      r.GageSerialNo,
			GageModelNo:       r.GageModelNo,
			GageTypeName:      r.GageTypeName,
			Status:            r.Status,
			Message:           NotificationMessage(r.Status, r.GageSerialNo),
			Timestamp:         NotificationTimestamp(r),
			Read:              r.AcknowledgedByOperator,
			RequestedBy:       r.RequestedBy,
			CurrentDepartment: r.CurrentDepartment,
			CurrentFunction:   r.CurrentFunction,
			CurrentOperation:  r.CurrentOperation,
			TimeLimit:         r.TimeLimit,
			ExpiresAt:         r.ExpiresAt,
			Reason:            r.Reason,
			Notes:             r.Notes,
		}
		if r.ApprovedBy != nil {
			n.ApprovedBy = *r.ApprovedBy
		}
		items = append(items, n)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items
}

// FilterNotifications 按状态/时间段/已读状态过滤通知
// 纯函数；TODAY为自然日零点起，WEEK为近7天，MONTH为近1个月
func FilterNotifications(items []Notification, status, timePeriod, readStatus string, now time.Time) []Notification {
	out := make([]Notification, 0, len(items))
	status = strings.ToLower(status)
	var cutoff time.Time
	switch strings.ToUpper(timePeriod) {
	case TimePeriodToday:
		cutoff = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case TimePeriodWeek:
		cutoff = now.AddDate(0, 0, -7)
	case TimePeriodMonth:
		cutoff = now.AddDate(0, -1, 0)
	}

	for _, n := range items {
		if status != "" && n.Status != status {
			continue
		}
		if !cutoff.IsZero() && n.Timestamp.Before(cutoff) {
			continue
		}
		if strings.ToUpper(readStatus) == ReadStatusUnread && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out
}

// GetNotificationsForUser 查询用户的通知
// 汇总approved/cancelled/returned三类调拨单后派生并过滤
func (s *NotificationService) GetNotificationsForUser(ctx context.Context, username, status, timePeriod, readStatus string) ([]Notification, error) {
	records := make([]entity.Reallocation, 0)
	for _, st := range []string{
		entity.ReallocationStatusApproved,
		entity.ReallocationStatusCancelled,
		entity.ReallocationStatusReturned,
	} {
		batch, err := s.reallocRepo.FindByStatus(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("list %s reallocations: %w", st, err)
		}
		records = append(records, batch...)
	}

	items := DeriveNotifications(records, username)
	return FilterNotifications(items, status, timePeriod, readStatus, time.Now()), nil
}

// UnreadCount 用户未读通知数
func (s *NotificationService) UnreadCount(ctx context.Context, username string) (int, error) {
	items, err := s.GetNotificationsForUser(ctx, username, "", "", ReadStatusUnread)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Acknowledge 操作员确认通知（标记已读）
// 仅通知目标本人可确认
func (s *NotificationService) Acknowledge(ctx context.Context, reallocationID, username string) (*entity.Reallocation, error) {
	r, err := s.reallocRepo.FindByID(ctx, reallocationID)
	if err != nil {
		return nil, err
	}
	if !r.NotifiesUser(username) {
		return nil, fmt.Errorf("该通知不属于当前用户")
	}

	r.AcknowledgedByOperator = true
	r.UpdatedAt = time.Now()
	if err := s.reallocRepo.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}
