package dto

import "time"

// CreateResultLockRequest 创建成绩窗口
// 日期接受 RFC3339 或 YYYY-MM-DD（按 locks.timezone 解释）
type CreateResultLockRequest struct {
	Title     string `json:"title"      binding:"required,max=100"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date"   binding:"required"`
}

// UpdateResultLockRequest 更新成绩窗口（字段均可选）
type UpdateResultLockRequest struct {
	Title     *string `json:"title"      binding:"omitempty,min=1,max=100"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// ResultLockResponse 成绩窗口响应
type ResultLockResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`

	// EffectiveAt 计入窗口边界后的有效修改时间，仅用于校验器
	EffectiveAt time.Time `json:"-"`
}

// LastModifiedAt 实现 condcache.Stamped
func (r ResultLockResponse) LastModifiedAt() time.Time { return r.EffectiveAt }
