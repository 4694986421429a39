package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
)

// AttendanceFilter 考勤过滤条件，空字段不参与过滤
type AttendanceFilter struct {
	Date        *time.Time
	StudentCode string
	CodeSuffix  string // 按 student_code 后缀过滤（年级-班级）
}

func (f AttendanceFilter) apply(db *gorm.DB) *gorm.DB {
	if f.Date != nil {
		db = db.Where("date = ?", dateParam(*f.Date))
	}
	if f.StudentCode != "" {
		db = db.Where("student_code = ?", f.StudentCode)
	}
	if f.CodeSuffix != "" {
		db = db.Where("student_code LIKE ?", "%"+escapeLike(f.CodeSuffix))
	}
	return db
}

// AttendanceRepository 考勤数据访问接口
type AttendanceRepository interface {
	// CreateBatch 批量插入，任一 (student_code, date) 已存在则整体失败
	CreateBatch(ctx context.Context, records []model.Attendance) error
	// UpsertBatch 批量写入，已存在的记录更新 status
	UpsertBatch(ctx context.Context, records []model.Attendance) error
	List(ctx context.Context, filter AttendanceFilter, opts ListOptions) ([]model.Attendance, int64, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) CreateBatch(ctx context.Context, records []model.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(&records).Error)
}

func (r *attendanceRepo) UpsertBatch(ctx context.Context, records []model.Attendance) error {
	if len(records) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "student_code"}, {Name: "date"}},
				DoUpdates: clause.AssignmentColumns([]string{"status"}),
			},
			clause.Returning{},
		).
		Create(&records).Error)
}

func (r *attendanceRepo) List(ctx context.Context, filter AttendanceFilter, opts ListOptions) ([]model.Attendance, int64, error) {
	var records []model.Attendance
	var total int64

	db := filter.apply(r.db.WithContext(ctx).Model(&model.Attendance{}))
	if opts.Since != nil {
		db = db.Where("last_modified > ?", *opts.Since)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := opts.apply(db).
		Order("date DESC, student_code ASC").
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c == '%' || c == '_' || c == '\\' {
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
