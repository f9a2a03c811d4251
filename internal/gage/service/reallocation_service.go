package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"github.com/bitfantasy/gagetrack/internal/gage/repository"
	"github.com/bitfantasy/gagetrack/internal/gage/sse"
	"github.com/bitfantasy/gagetrack/internal/shared/mailer"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ReallocationService 量具调拨服务
// 调拨单生命周期：pending_approval → approved → returned/expired（→ completed），
// pending_approval/approved 均可 cancelled
type ReallocationService struct {
	reallocRepo     *repository.ReallocationRepository
	gageRepo        *repository.GageRepository
	userRepo        *repository.UserRepository
	activityLogRepo *repository.ActivityLogRepository
	mailClient      *mailer.Client
	db              *gorm.DB
}

func NewReallocationService(
	reallocRepo *repository.ReallocationRepository,
	gageRepo *repository.GageRepository,
	userRepo *repository.UserRepository,
	activityLogRepo *repository.ActivityLogRepository,
	db *gorm.DB,
) *ReallocationService {
	return &ReallocationService{
		reallocRepo:     reallocRepo,
		gageRepo:        gageRepo,
		userRepo:        userRepo,
		activityLogRepo: activityLogRepo,
		db:              db,
	}
}

// SetMailClient 注入邮件中继客户端（可选，未配置时跳过邮件通知）
func (s *ReallocationService) SetMailClient(client *mailer.Client) {
	s.mailClient = client
}

// ReallocationView 调拨单视图，附带客户端提示字段
// is_expired/is_expiring_soon 仅为展示提示，权威状态以status为准
type ReallocationView struct {
	entity.Reallocation
	IsExpired        bool   `json:"is_expired"`
	IsExpiringSoon   bool   `json:"is_expiring_soon"`
	TimeLimitDisplay string `json:"time_limit_display"`
}

// NewReallocationView 构建调拨单视图
func NewReallocationView(r entity.Reallocation, now time.Time) ReallocationView {
	return ReallocationView{
		Reallocation:     r,
		IsExpired:        entity.IsExpired(r.ExpiresAt, now),
		IsExpiringSoon:   entity.IsExpiringSoon(r.ExpiresAt, now),
		TimeLimitDisplay: entity.TimeLimitDisplayName(r.TimeLimit),
	}
}

// NewReallocationViews 批量构建视图
func NewReallocationViews(items []entity.Reallocation, now time.Time) []ReallocationView {
	views := make([]ReallocationView, 0, len(items))
	for _, r := range items {
		views = append(views, NewReallocationView(r, now))
	}
	return views
}

// CreateReallocationRequest 创建调拨申请
type CreateReallocationRequest struct {
	GageID            string     `json:"gage_id" binding:"required"`
	CurrentDepartment string     `json:"current_department" binding:"required"`
	CurrentFunction   string     `json:"current_function"`
	CurrentOperation  string     `json:"current_operation"`
	TimeLimit         string     `json:"time_limit" binding:"required"`
	CustomExpiresAt   *time.Time `json:"custom_expires_at"`
	Reason            string     `json:"reason" binding:"required"`
	Notes             string     `json:"notes"`
	NotifyOperator    string     `json:"notify_operator"`
}

// CreateReallocation 创建调拨申请
// 守卫：量具存在且未退役；该量具无未完结调拨单；reason必填；时限枚举合法
func (s *ReallocationService) CreateReallocation(ctx context.Context, user *entity.User, req *CreateReallocationRequest) (*entity.Reallocation, error) {
	if req.Reason == "" {
		return nil, fmt.Errorf("调拨原因必填")
	}
	if !entity.IsValidTimeLimit(req.TimeLimit) {
		return nil, fmt.Errorf("无效的时限: %s", req.TimeLimit)
	}
	if req.TimeLimit == entity.TimeLimitCustom && req.CustomExpiresAt == nil {
		return nil, fmt.Errorf("custom时限必须指定到期时间")
	}

	gage, err := s.gageRepo.FindByID(ctx, req.GageID)
	if err != nil {
		return nil, fmt.Errorf("量具不存在: %w", err)
	}
	if gage.Status == entity.GageStatusRetired {
		return nil, fmt.Errorf("量具已退役，不可调拨")
	}

	// 可用性守卫：每个量具最多一个未完结调拨单
	active, err := s.reallocRepo.HasActiveForGage(ctx, req.GageID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, fmt.Errorf("该量具已有未完结的调拨申请")
	}

	code, err := s.reallocRepo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("生成调拨编码失败: %w", err)
	}

	now := time.Now()
	r := &entity.Reallocation{
		ID:                   uuid.New().String()[:32],
		Code:                 code,
		GageID:               gage.ID,
		GageSerialNo:         gage.SerialNo,
		GageModelNo:          gage.ModelNo,
		GageTypeName:         gage.TypeName,
		OriginalDepartment:   gage.Department,
		OriginalFunction:     gage.Function,
		OriginalOperation:    gage.Operation,
		CurrentDepartment:    req.CurrentDepartment,
		CurrentFunction:      req.CurrentFunction,
		CurrentOperation:     req.CurrentOperation,
		TimeLimit:            req.TimeLimit,
		ExpiresAt:            req.CustomExpiresAt,
		Status:               entity.ReallocationStatusPendingApproval,
		Reason:               req.Reason,
		Notes:                req.Notes,
		NotifyOperator:       req.NotifyOperator,
		RequestedBy:          user.Username,
		RequestedByFunction:  user.Function,
		RequestedByOperation: user.Operation,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.reallocRepo.Create(ctx, r); err != nil {
		return nil, err
	}

	s.activityLogRepo.LogActivity(ctx, "reallocation", r.ID, r.Code,
		"create", "", entity.ReallocationStatusPendingApproval,
		fmt.Sprintf("创建调拨申请: %s → %s，原因: %s", gage.SerialNo, req.CurrentDepartment, req.Reason),
		user.ID, user.Name)

	// 邮件通知尽力而为，失败不回滚
	s.sendMailAsync(ctx, s.approverEmails(ctx),
		fmt.Sprintf("Reallocation requested for %s", gage.SerialNo),
		fmt.Sprintf("%s requested gage %s for %s (%s). Reason: %s",
			user.Username, gage.SerialNo, req.CurrentDepartment,
			entity.TimeLimitDisplayName(req.TimeLimit), req.Reason))

	sse.PublishReallocationUpdate(r.ID, r.GageID, r.Status)

	return r, nil
}

// ApproveReallocation 审批通过
// 设置allocated_at并据此推导expires_at；量具位置切换到目标分配
func (s *ReallocationService) ApproveReallocation(ctx context.Context, id string, approver *entity.User) (*entity.Reallocation, error) {
	r, err := s.reallocRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(r.Status, entity.ReallocationStatusApproved) {
		return nil, fmt.Errorf("调拨单状态不正确: %s", r.Status)
	}

	now := time.Now()
	r.Status = entity.ReallocationStatusApproved
	r.ApprovedBy = &approver.Username
	r.ApprovedAt = &now
	r.AllocatedAt = &now
	if r.TimeLimit == entity.TimeLimitCustom {
		if r.ExpiresAt == nil {
			return nil, fmt.Errorf("custom时限缺少到期时间")
		}
	} else {
		expires := now.Add(entity.TimeLimitDuration(r.TimeLimit))
		r.ExpiresAt = &expires
	}
	r.UpdatedAt = now

	if err := s.reallocRepo.Update(ctx, r); err != nil {
		return nil, err
	}

	// 量具位置随调拨生效
	if gage, gerr := s.gageRepo.FindByID(ctx, r.GageID); gerr == nil {
		gage.Department = r.CurrentDepartment
		gage.Function = r.CurrentFunction
		gage.Operation = r.CurrentOperation
		gage.UpdatedAt = now
		if uerr := s.gageRepo.Update(ctx, gage); uerr != nil {
			log.Printf("[Realloc] 更新量具位置失败: %v", uerr)
		}
	}

	s.activityLogRepo.LogActivity(ctx, "reallocation", r.ID, r.Code,
		"approve", entity.ReallocationStatusPendingApproval, entity.ReallocationStatusApproved,
		fmt.Sprintf("调拨审批通过: %s，到期 %s", r.GageSerialNo, r.ExpiresAt.Format(time.RFC3339)),
		approver.ID, approver.Name)

	recipients := make([]string, 0, 2)
	if email := s.userEmail(ctx, r.RequestedBy); email != "" {
		recipients = append(recipients, email)
	}
	if email := s.userEmail(ctx, r.NotifyTarget()); email != "" && (len(recipients) == 0 || recipients[0] != email) {
		recipients = append(recipients, email)
	}
	s.sendMailAsync(ctx, recipients,
		fmt.Sprintf("Reallocation approved for %s", r.GageSerialNo),
		fmt.Sprintf("Request %s approved by %s, expires at %s.",
			r.Code, approver.Username, r.ExpiresAt.Format(time.RFC3339)))

	sse.PublishReallocationUpdate(r.ID, r.GageID, r.Status)

	return r, nil
}

// RejectReallocation 驳回待审批的调拨申请（以审批人身份取消）
func (s *ReallocationService) RejectReallocation(ctx context.Context, id string, approver *entity.User, reason string) (*entity.Reallocation, error) {
	r, err := s.reallocRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != entity.ReallocationStatusPendingApproval {
		return nil, fmt.Errorf("调拨单状态不正确: %s", r.Status)
	}
	return s.cancel(ctx, r, approver, reason)
}

// CancelReallocation 取消调拨单
// 守卫：状态 ∈ {pending_approval, approved}，reason必填
func (s *ReallocationService) CancelReallocation(ctx context.Context, id string, user *entity.User, reason string) (*entity.Reallocation, error) {
	r, err := s.reallocRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(r.Status, entity.ReallocationStatusCancelled) {
		return nil, fmt.Errorf("调拨单状态不正确: %s", r.Status)
	}
	return s.cancel(ctx, r, user, reason)
}

func (s *ReallocationService) cancel(ctx context.Context, r *entity.Reallocation, user *entity.User, reason string) (*entity.Reallocation, error) {
	if reason == "" {
		return nil, fmt.Errorf("取消原因必填")
	}

	wasApproved := r.Status == entity.ReallocationStatusApproved
	fromStatus := r.Status
	now := time.Now()
	r.Status = entity.ReallocationStatusCancelled
	r.CancelledAt = &now
	r.ReturnReason = reason
	r.UpdatedAt = now

	if err := s.reallocRepo.Update(ctx, r); err != nil {
		return nil, err
	}

	// 已生效的调拨取消后量具回到原位置
	if wasApproved {
		s.restoreGageLocation(ctx, r, now)
	}

	s.activityLogRepo.LogActivity(ctx, "reallocation", r.ID, r.Code,
		"cancel", fromStatus, entity.ReallocationStatusCancelled,
		fmt.Sprintf("调拨取消: %s，原因: %s", r.GageSerialNo, reason),
		user.ID, user.Name)

	sse.PublishReallocationUpdate(r.ID, r.GageID, r.Status)

	return r, nil
}

// ReturnReallocation 归还量具
// 守卫：status == approved；reason必填；操作人必须是当前持有人（申请人）
func (s *ReallocationService) ReturnReallocation(ctx context.Context, id string, user *entity.User, reason string) (*entity.Reallocation, error) {
	r, err := s.reallocRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != entity.ReallocationStatusApproved {
		return nil, fmt.Errorf("调拨单状态不正确: %s", r.Status)
	}
	if reason == "" {
		return nil, fmt.Errorf("归还原因必填")
	}
	if r.RequestedBy != user.Username {
		return nil, fmt.Errorf("仅当前持有人可归还量具")
	}

	now := time.Now()
	r.Status = entity.ReallocationStatusReturned
	r.ReturnedAt = &now
	r.ReturnReason = reason
	r.UpdatedAt = now

	if err := s.reallocRepo.Update(ctx, r); err != nil {
		return nil, err
	}

	s.restoreGageLocation(ctx, r, now)

	s.activityLogRepo.LogActivity(ctx, "reallocation", r.ID, r.Code,
		"return", entity.ReallocationStatusApproved, entity.ReallocationStatusReturned,
		fmt.Sprintf("量具归还: %s，原因: %s", r.GageSerialNo, reason),
		user.ID, user.Name)

	sse.PublishReallocationUpdate(r.ID, r.GageID, r.Status)

	return r, nil
}

// CompleteReallocation 归档已归还/已过期的调拨单（close-out）
// returned 与 completed 在"再次申请"资格上等价，completed仅表示库房已核实入库
func (s *ReallocationService) CompleteReallocation(ctx context.Context, id string, user *entity.User) (*entity.Reallocation, error) {
	r, err := s.reallocRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entity.CanTransition(r.Status, entity.ReallocationStatusCompleted) {
		return nil, fmt.Errorf("调拨单状态不正确: %s", r.Status)
	}

	fromStatus := r.Status
	now := time.Now()
	r.Status = entity.ReallocationStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now

	if err := s.reallocRepo.Update(ctx, r); err != nil {
		return nil, err
	}

	s.activityLogRepo.LogActivity(ctx, "reallocation", r.ID, r.Code,
		"complete", fromStatus, entity.ReallocationStatusCompleted,
		fmt.Sprintf("调拨归档: %s", r.GageSerialNo),
		user.ID, user.Name)

	sse.PublishReallocationUpdate(r.ID, r.GageID, r.Status)

	return r, nil
}

// RequestAgainRequest 再次申请
type RequestAgainRequest struct {
	CurrentDepartment string     `json:"current_department"`
	CurrentFunction   string     `json:"current_function"`
	CurrentOperation  string     `json:"current_operation"`
	TimeLimit         string     `json:"time_limit" binding:"required"`
	CustomExpiresAt   *time.Time `json:"custom_expires_at"`
	Reason            string     `json:"reason" binding:"required"`
	Notes             string     `json:"notes"`
	NotifyOperator    string     `json:"notify_operator"`
}

// RequestAgain 基于已完结调拨单再次申请
// 守卫：原单状态 ∈ {returned, completed}；量具当前可用
func (s *ReallocationService) RequestAgain(ctx context.Context, previousID string, user *entity.User, req *RequestAgainRequest) (*entity.Reallocation, error) {
	prev, err := s.reallocRepo.FindByID(ctx, previousID)
	if err != nil {
		return nil, err
	}
	if !prev.CanRequestAgain() {
		return nil, fmt.Errorf("该调拨单不可再次申请: %s", prev.Status)
	}

	notes := entity.RepeatedRequestPrefix(user.Username)
	if req.Notes != "" {
		notes = notes + " " + req.Notes
	}

	// 目标位置默认沿用上一次
	targetDept := req.CurrentDepartment
	targetFunc := req.CurrentFunction
	targetOp := req.CurrentOperation
	if targetDept == "" {
		targetDept = prev.CurrentDepartment
		targetFunc = prev.CurrentFunction
		targetOp = prev.CurrentOperation
	}

	return s.CreateReallocation(ctx, user, &CreateReallocationRequest{
		GageID:            prev.GageID,
		CurrentDepartment: targetDept,
		CurrentFunction:   targetFunc,
		CurrentOperation:  targetOp,
		TimeLimit:         req.TimeLimit,
		CustomExpiresAt:   req.CustomExpiresAt,
		Reason:            req.Reason,
		Notes:             notes,
		NotifyOperator:    req.NotifyOperator,
	})
}

// ProcessExpiredReallocation 处理单个到期调拨单（approved且expires_at已过 → expired）
func (s *ReallocationService) ProcessExpiredReallocation(ctx context.Context, id string, operator *entity.User) (*entity.Reallocation, error) {
	r, err := s.reallocRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != entity.ReallocationStatusApproved {
		return nil, fmt.Errorf("调拨单状态不正确: %s", r.Status)
	}
	now := time.Now()
	if !entity.IsExpired(r.ExpiresAt, now) {
		return nil, fmt.Errorf("调拨单尚未到期")
	}

	r.Status = entity.ReallocationStatusExpired
	r.UpdatedAt = now

	if err := s.reallocRepo.Update(ctx, r); err != nil {
		return nil, err
	}

	s.restoreGageLocation(ctx, r, now)

	s.activityLogRepo.LogActivity(ctx, "reallocation", r.ID, r.Code,
		"expire", entity.ReallocationStatusApproved, entity.ReallocationStatusExpired,
		fmt.Sprintf("调拨到期: %s", r.GageSerialNo),
		operator.ID, operator.Name)

	sse.PublishReallocationUpdate(r.ID, r.GageID, r.Status)

	return r, nil
}

// ProcessAllExpiredReallocations 批量处理到期调拨单，返回处理数量
func (s *ReallocationService) ProcessAllExpiredReallocations(ctx context.Context, operator *entity.User) (int, error) {
	now := time.Now()
	candidates, err := s.reallocRepo.FindExpiredCandidates(ctx, now)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range candidates {
		if _, err := s.ProcessExpiredReallocation(ctx, candidates[i].ID, operator); err != nil {
			log.Printf("[Realloc] 处理到期调拨单失败 id=%s: %v", candidates[i].ID, err)
			continue
		}
		processed++
	}
	return processed, nil
}

// restoreGageLocation 量具回到调拨前的原位置
func (s *ReallocationService) restoreGageLocation(ctx context.Context, r *entity.Reallocation, now time.Time) {
	gage, err := s.gageRepo.FindByID(ctx, r.GageID)
	if err != nil {
		log.Printf("[Realloc] 恢复量具位置失败，量具不存在 id=%s: %v", r.GageID, err)
		return
	}
	gage.Department = r.OriginalDepartment
	gage.Function = r.OriginalFunction
	gage.Operation = r.OriginalOperation
	gage.UpdatedAt = now
	if err := s.gageRepo.Update(ctx, gage); err != nil {
		log.Printf("[Realloc] 恢复量具位置失败 id=%s: %v", r.GageID, err)
	}
}

// sendMailAsync 尽力而为的邮件通知，失败仅记录；无收件人时不发送
func (s *ReallocationService) sendMailAsync(ctx context.Context, to []string, subject, body string) {
	if s.mailClient == nil || len(to) == 0 {
		return
	}
	if err := s.mailClient.Send(ctx, &mailer.Message{
		To:      to,
		Subject: subject,
		Body:    body,
	}); err != nil {
		log.Printf("[Realloc] 邮件通知发送失败: %v", err)
	}
}

// approverEmails 审批人（plant_head）邮箱列表
func (s *ReallocationService) approverEmails(ctx context.Context) []string {
	emails, err := s.userRepo.FindEmailsByRole(ctx, entity.RolePlantHead)
	if err != nil {
		log.Printf("[Realloc] 查询审批人邮箱失败: %v", err)
		return nil
	}
	return emails
}

// userEmail 根据用户名查邮箱，找不到或未填写时返回空
func (s *ReallocationService) userEmail(ctx context.Context, username string) string {
	if username == "" {
		return ""
	}
	u, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil || u.Email == "" {
		return ""
	}
	return u.Email
}

// === 查询 ===

// GetReallocation 调拨单详情
func (s *ReallocationService) GetReallocation(ctx context.Context, id string) (*entity.Reallocation, error) {
	return s.reallocRepo.FindByID(ctx, id)
}

// ListReallocations 调拨单列表
func (s *ReallocationService) ListReallocations(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Reallocation, int64, error) {
	return s.reallocRepo.FindAll(ctx, page, pageSize, filters)
}

// ListByStatus 按状态查询全量调拨单
func (s *ReallocationService) ListByStatus(ctx context.Context, status string) ([]entity.Reallocation, error) {
	if !entity.IsValidReallocationStatus(status) {
		return nil, fmt.Errorf("无效的状态: %s", status)
	}
	return s.reallocRepo.FindByStatus(ctx, status)
}

// ListByUser 查询用户相关的调拨单
func (s *ReallocationService) ListByUser(ctx context.Context, username string) ([]entity.Reallocation, error) {
	return s.reallocRepo.FindByUser(ctx, username)
}

// IsGageAvailable 量具是否可发起新调拨
func (s *ReallocationService) IsGageAvailable(ctx context.Context, gageID string) (bool, error) {
	active, err := s.reallocRepo.HasActiveForGage(ctx, gageID)
	if err != nil {
		return false, err
	}
	return !active, nil
}

// CompletedHistory 量具的已完结调拨历史
func (s *ReallocationService) CompletedHistory(ctx context.Context, gageID string) ([]entity.Reallocation, error) {
	return s.reallocRepo.FindCompletedHistoryByGage(ctx, gageID)
}

// TimeLimitOption 时限枚举项
type TimeLimitOption struct {
	Value       string `json:"value"`
	DisplayName string `json:"display_name"`
}

// TimeLimitOptions 时限枚举列表
func (s *ReallocationService) TimeLimitOptions() []TimeLimitOption {
	opts := make([]TimeLimitOption, 0, len(entity.TimeLimits))
	for _, limit := range entity.TimeLimits {
		opts = append(opts, TimeLimitOption{
			Value:       limit,
			DisplayName: entity.TimeLimitDisplayName(limit),
		})
	}
	return opts
}

// === 导出 ===

var reallocationExportHeaders = []string{
	"Code", "Gage Serial", "Model", "Type",
	"From Department", "To Department",
	"Requested By", "Approved By", "Time Limit",
	"Allocated At", "Expires At", "Status",
	"Returned At", "Return Reason",
}

// ExportReallocations 调拨记录导出为Excel
func (s *ReallocationService) ExportReallocations(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	items, _, err := s.reallocRepo.FindAll(ctx, 1, 10000, filters)
	if err != nil {
		return nil, "", fmt.Errorf("list reallocations: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Reallocations"
	f.SetSheetName("Sheet1", sheet)

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, h := range reallocationExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	fmtTime := func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	}

	for rowIdx, item := range items {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), item.Code)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), item.GageSerialNo)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), item.GageModelNo)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), item.GageTypeName)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), item.OriginalDepartment)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), item.CurrentDepartment)
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), item.RequestedBy)
		if item.ApprovedBy != nil {
			f.SetCellValue(sheet, fmt.Sprintf("H%d", row), *item.ApprovedBy)
		}
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), entity.TimeLimitDisplayName(item.TimeLimit))
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), fmtTime(item.AllocatedAt))
		f.SetCellValue(sheet, fmt.Sprintf("K%d", row), fmtTime(item.ExpiresAt))
		f.SetCellValue(sheet, fmt.Sprintf("L%d", row), item.Status)
		f.SetCellValue(sheet, fmt.Sprintf("M%d", row), fmtTime(item.ReturnedAt))
		f.SetCellValue(sheet, fmt.Sprintf("N%d", row), item.ReturnReason)
	}

	colWidths := []float64{14, 14, 12, 14, 16, 16, 12, 12, 10, 18, 18, 14, 18, 24}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("Reallocations_%s.xlsx", time.Now().Format("20060102"))
	return f, filename, nil
}
