package dto

import "time"

// AttendanceEntry 单条考勤记录（批量请求中的元素）
type AttendanceEntry struct {
	StudentCode string `json:"student_code" binding:"required,max=100"`
	Date        string `json:"date"         binding:"required,datetime=2006-01-02"`
	Status      string `json:"status"       binding:"required,oneof=present absent"`
}

// BatchAttendanceRequest 批量考勤请求，请求体为 JSON 数组
type BatchAttendanceRequest []AttendanceEntry

// MaxAttendanceBatch 单次批量写入上限
const MaxAttendanceBatch = 500

// AttendanceListQuery GET /attendance 过滤参数
// standard + section 按 student_code 后缀 "-{standard}-{section}" 过滤
type AttendanceListQuery struct {
	PaginationRequest
	Date        string `form:"date"         binding:"omitempty,datetime=2006-01-02"`
	StudentCode string `form:"student_code"`
	Standard    string `form:"standard"     binding:"required_with=Section"`
	Section     string `form:"section"      binding:"required_with=Standard"`
}

// AttendanceResponse 考勤响应
type AttendanceResponse struct {
	ID           string    `json:"id"`
	StudentCode  string    `json:"student_code"`
	Date         string    `json:"date"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// LastModifiedAt 实现 condcache.Stamped
func (r AttendanceResponse) LastModifiedAt() time.Time { return r.LastModified }

// BatchAttendanceResponse 批量写入结果
type BatchAttendanceResponse struct {
	Count   int                  `json:"count"`
	Records []AttendanceResponse `json:"records"`
}
