package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KoushikCodesWebpages/SappBackend/internal/authz"
	"github.com/KoushikCodesWebpages/SappBackend/internal/dto"
	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
	"github.com/KoushikCodesWebpages/SappBackend/internal/repository"
	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"
)

// AttendanceService 考勤业务接口
//
// 写入规则：涉及日期的考勤锁已锁定时整批拒绝；没有考勤锁的日期允许写入。
type AttendanceService interface {
	// Create 批量新增，任一 (student_code, date) 已存在则整批失败
	Create(ctx context.Context, pr *authz.Principal, req dto.BatchAttendanceRequest) (*dto.BatchAttendanceResponse, error)
	// Upsert 批量写入，已存在的记录更新状态
	Upsert(ctx context.Context, pr *authz.Principal, req dto.BatchAttendanceRequest) (*dto.BatchAttendanceResponse, error)
	List(ctx context.Context, pr *authz.Principal, q *dto.AttendanceListQuery, since *time.Time) (*Listing[dto.AttendanceResponse], error)
}

type attendanceService struct {
	repo   *repository.Repository
	guard  *MutationGuard
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, guard *MutationGuard, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, guard: guard, logger: logger}
}

// ────────────────────── Create / Upsert ──────────────────────

func (s *attendanceService) Create(ctx context.Context, pr *authz.Principal, req dto.BatchAttendanceRequest) (*dto.BatchAttendanceResponse, error) {
	records, dates, err := s.prepare(ctx, req, false)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, pr, records, dates, func(tx *repository.Repository) error {
		return tx.Attendance.CreateBatch(ctx, records)
	})
}

func (s *attendanceService) Upsert(ctx context.Context, pr *authz.Principal, req dto.BatchAttendanceRequest) (*dto.BatchAttendanceResponse, error) {
	records, dates, err := s.prepare(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, pr, records, dates, func(tx *repository.Repository) error {
		return tx.Attendance.UpsertBatch(ctx, records)
	})
}

// write 在事务内锁定相关日期的考勤锁（FOR SHARE）并校验，随后写入
func (s *attendanceService) write(
	ctx context.Context,
	pr *authz.Principal,
	records []model.Attendance,
	dates []time.Time,
	apply func(tx *repository.Repository) error,
) (*dto.BatchAttendanceResponse, error) {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		latches, err := tx.AttendanceLock.GetByDatesForShare(ctx, dates)
		if err != nil {
			return err
		}
		if err := s.guard.AttendanceDatesOpen(latches); err != nil {
			return err
		}
		return apply(tx)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAttendanceDuplicate
		}
		if _, ok := pkgerrors.As(err); ok {
			return nil, err
		}
		s.logger.Error("写入考勤失败", zap.Int("count", len(records)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("考勤已写入", zap.Int("count", len(records)), zap.String("operator", pr.UserID))

	resp := &dto.BatchAttendanceResponse{Count: len(records), Records: make([]dto.AttendanceResponse, 0, len(records))}
	for i := range records {
		resp.Records = append(resp.Records, toAttendanceResponse(&records[i]))
	}
	return resp, nil
}

// prepare 校验批量请求并转换为模型
// upsert=false 时批内重复视为冲突；upsert=true 时后出现的记录覆盖先出现的
func (s *attendanceService) prepare(ctx context.Context, req dto.BatchAttendanceRequest, upsert bool) ([]model.Attendance, []time.Time, error) {
	if len(req) == 0 || len(req) > dto.MaxAttendanceBatch {
		return nil, nil, ErrAttendanceBatchSize.WithMessage("批量考勤记录数量应在 1 到 %d 之间", dto.MaxAttendanceBatch)
	}

	type key struct {
		code string
		date string
	}
	index := make(map[key]int, len(req))
	records := make([]model.Attendance, 0, len(req))
	dateSet := make(map[string]time.Time)
	codeSet := make(map[string]struct{})

	for i, entry := range req {
		date, err := parseDate(entry.Date)
		if err != nil {
			return nil, nil, ErrAttendanceDateInvalid.WithField(fmt.Sprintf("[%d].date", i))
		}
		if entry.Status != model.AttendancePresent && entry.Status != model.AttendanceAbsent {
			return nil, nil, pkgerrors.ErrInvalidParams.WithField(fmt.Sprintf("[%d].status", i))
		}

		k := key{code: entry.StudentCode, date: entry.Date}
		if pos, dup := index[k]; dup {
			if !upsert {
				return nil, nil, ErrAttendanceDuplicate.WithMessage("批内重复：%s 在 %s 的考勤出现多次", entry.StudentCode, entry.Date)
			}
			records[pos].Status = entry.Status
			continue
		}
		index[k] = len(records)
		records = append(records, model.Attendance{
			StudentCode: entry.StudentCode,
			Date:        date,
			Status:      entry.Status,
		})
		dateSet[entry.Date] = date
		codeSet[entry.StudentCode] = struct{}{}
	}

	if err := s.ensureStudents(ctx, codeSet); err != nil {
		return nil, nil, err
	}

	dates := make([]time.Time, 0, len(dateSet))
	for _, d := range dateSet {
		dates = append(dates, d)
	}
	return records, dates, nil
}

func (s *attendanceService) ensureStudents(ctx context.Context, codeSet map[string]struct{}) error {
	codes := make([]string, 0, len(codeSet))
	for c := range codeSet {
		codes = append(codes, c)
	}
	found, err := s.repo.User.ExistingStudentCodes(ctx, codes)
	if err != nil {
		s.logger.Error("校验学号失败", zap.Error(err))
		return err
	}
	known := make(map[string]struct{}, len(found))
	for _, c := range found {
		known[c] = struct{}{}
	}
	for _, c := range codes {
		if _, ok := known[c]; !ok {
			return ErrUnknownStudent.WithMessage("学生 %s 不存在", c)
		}
	}
	return nil
}

// ────────────────────── List ──────────────────────

func (s *attendanceService) List(ctx context.Context, pr *authz.Principal, q *dto.AttendanceListQuery, since *time.Time) (*Listing[dto.AttendanceResponse], error) {
	filter := repository.AttendanceFilter{StudentCode: q.StudentCode}
	if q.Date != "" {
		date, err := parseDate(q.Date)
		if err != nil {
			return nil, ErrAttendanceDateInvalid
		}
		filter.Date = &date
	}
	if q.Standard != "" && q.Section != "" {
		filter.CodeSuffix = fmt.Sprintf("-%s-%s", q.Standard, q.Section)
	}
	if pr.Role == authz.RoleStudent {
		if pr.StudentCode == "" {
			return &Listing[dto.AttendanceResponse]{Items: []dto.AttendanceResponse{}}, nil
		}
		filter.StudentCode = pr.StudentCode
	}
	opts := repository.ListOptions{
		Since:  since,
		Offset: q.GetOffset(),
		Limit:  q.GetPageSize(),
	}

	var records []model.Attendance
	var total int64
	var stamp *time.Time
	err := s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		at, ok, err := tx.Stamp.Get(ctx, model.CollectionAttendance)
		if err != nil {
			return err
		}
		if ok {
			stamp = &at
		}
		records, total, err = tx.Attendance.List(ctx, filter, opts)
		return err
	})
	if err != nil {
		s.logger.Error("查询考勤列表失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.AttendanceResponse, 0, len(records))
	for i := range records {
		items = append(items, toAttendanceResponse(&records[i]))
	}
	return &Listing[dto.AttendanceResponse]{Items: items, Total: total, Stamp: stamp}, nil
}

func toAttendanceResponse(a *model.Attendance) dto.AttendanceResponse {
	return dto.AttendanceResponse{
		ID:           a.AttendanceID,
		StudentCode:  a.StudentCode,
		Date:         a.Date.Format("2006-01-02"),
		Status:       a.Status,
		CreatedAt:    a.CreatedAt,
		LastModified: a.LastModified,
	}
}
