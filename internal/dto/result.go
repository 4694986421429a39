package dto

import (
	"encoding/json"
	"time"
)

// CreateResultRequest 录入成绩
type CreateResultRequest struct {
	ResultLock  string   `json:"result_lock"  binding:"required,max=100"`
	StudentCode string   `json:"student_code" binding:"required,max=100"`
	Subject     string   `json:"subject"      binding:"required,max=255"`
	Marks       *float64 `json:"marks"        binding:"required,gte=0"`
	TotalMarks  *float64 `json:"total_marks"  binding:"omitempty,gte=0"`
}

// UpdateResultRequest 修改成绩；Version 非空时启用乐观锁
// total_marks 显式传 null 表示清空满分
type UpdateResultRequest struct {
	ResultLock *string       `json:"result_lock" binding:"omitempty,min=1,max=100"`
	Subject    *string       `json:"subject"     binding:"omitempty,min=1,max=255"`
	Marks      *float64      `json:"marks"       binding:"omitempty,gte=0"`
	TotalMarks NullableFloat `json:"total_marks"`
	Version    *int          `json:"version"     binding:"omitempty,min=1"`
}

// NullableFloat 区分字段缺省（Set=false）与显式 null（Set=true, Value=nil）
type NullableFloat struct {
	Set   bool
	Value *float64
}

// UnmarshalJSON 只有字段出现在请求体中才会被调用
func (n *NullableFloat) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Null 显式清空
func Null() NullableFloat { return NullableFloat{Set: true} }

// Float 设置为 v
func Float(v float64) NullableFloat { return NullableFloat{Set: true, Value: &v} }

// ResultListQuery GET /results 过滤参数
type ResultListQuery struct {
	PaginationRequest
	ResultLock  string `form:"result_lock"`
	StudentCode string `form:"student_code"`
	Subject     string `form:"subject"`
}

// ResultResponse 成绩响应
type ResultResponse struct {
	ID           string    `json:"id"`
	ResultLock   string    `json:"result_lock"`
	StudentCode  string    `json:"student_code"`
	Subject      string    `json:"subject"`
	Marks        float64   `json:"marks"`
	TotalMarks   *float64  `json:"total_marks,omitempty"`
	Percentage   float64   `json:"percentage"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// LastModifiedAt 实现 condcache.Stamped
func (r ResultResponse) LastModifiedAt() time.Time { return r.LastModified }
