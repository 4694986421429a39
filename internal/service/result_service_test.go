package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/KoushikCodesWebpages/SappBackend/internal/authz"
	"github.com/KoushikCodesWebpages/SappBackend/internal/dto"
	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"
)

var (
	testFaculty = &authz.Principal{UserID: "u-faculty", Role: authz.RoleFaculty, Verified: true}
	testAdmin   = &authz.Principal{UserID: "u-admin", Role: authz.RoleOfficeAdmin, Verified: true}
	testStudent = &authz.Principal{UserID: "u-s1", Role: authz.RoleStudent, Verified: true, StudentCode: "S001-10-A"}
)

// setupTestResultService 成绩窗口 Term1 = [2025-01-01, 2025-01-31]，学生 S001-10-A / S002-10-A
func setupTestResultService(t *testing.T, now time.Time) (ResultService, *mockRepos) {
	t.Helper()
	repo, m := newMockRepos()
	m.users.addStudent("S001-10-A")
	m.users.addStudent("S002-10-A")

	ctx := context.Background()
	_ = m.resultLocks.Create(ctx, &model.ResultLock{
		Title:     "Term1",
		StartDate: mustTime("2025-01-01T00:00:00Z"),
		EndDate:   mustTime("2025-01-31T23:59:59.999999Z"),
	})
	_ = m.resultLocks.Create(ctx, &model.ResultLock{
		Title:     "Term2",
		StartDate: mustTime("2025-03-01T00:00:00Z"),
		EndDate:   mustTime("2025-03-31T23:59:59.999999Z"),
	})

	guard := NewMutationGuard(fixedClock(now), nopLogger())
	return NewResultService(repo, guard, nopLogger()), m
}

func newResultReq(marks float64, total *float64) *dto.CreateResultRequest {
	return &dto.CreateResultRequest{
		ResultLock:  "Term1",
		StudentCode: "S001-10-A",
		Subject:     "Math",
		Marks:       &marks,
		TotalMarks:  total,
	}
}

// ── Create ──

func TestResultService_Create_InsideWindow(t *testing.T) {
	svc, _ := setupTestResultService(t, mustTime("2025-01-15T10:00:00Z"))

	resp, err := svc.Create(context.Background(), testFaculty, newResultReq(72, ptr(80.0)))
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	if resp.Percentage != 90.0 {
		t.Errorf("期望百分比 90，实际 %v", resp.Percentage)
	}
	if resp.Version != 1 {
		t.Errorf("期望版本号 1，实际 %d", resp.Version)
	}
}

func TestResultService_Create_OutsideWindow(t *testing.T) {
	svc, m := setupTestResultService(t, mustTime("2025-02-01T00:00:00Z"))

	_, err := svc.Create(context.Background(), testFaculty, newResultReq(72, ptr(80.0)))
	if !errors.Is(err, ErrResultLockInactive) {
		t.Fatalf("期望 ErrResultLockInactive，实际 %v", err)
	}
	if !strings.Contains(err.Error(), "lock inactive") {
		t.Errorf("错误信息应包含 lock inactive，实际 %q", err.Error())
	}
	if len(m.results.results) != 0 {
		t.Error("被拒绝的写入不应落库")
	}
}

func TestResultService_Create_WindowBoundsInclusive(t *testing.T) {
	for _, now := range []string{"2025-01-01T00:00:00Z", "2025-01-31T23:59:59.999999Z"} {
		svc, _ := setupTestResultService(t, mustTime(now))
		if _, err := svc.Create(context.Background(), testFaculty, newResultReq(10, nil)); err != nil {
			t.Errorf("%s 处于窗口边界，应允许写入，实际 %v", now, err)
		}
	}

	svc, _ := setupTestResultService(t, mustTime("2025-02-01T00:00:00Z"))
	if _, err := svc.Create(context.Background(), testFaculty, newResultReq(10, nil)); !errors.Is(err, ErrResultLockInactive) {
		t.Errorf("窗口结束后一微秒应拒绝，实际 %v", err)
	}
}

func TestResultService_Create_MarksExceedTotal(t *testing.T) {
	svc, _ := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))

	_, err := svc.Create(context.Background(), testFaculty, newResultReq(85, ptr(80.0)))
	if !errors.Is(err, ErrResultMarksExceed) {
		t.Fatalf("期望 ErrResultMarksExceed，实际 %v", err)
	}
	if e, _ := pkgerrors.As(err); e.Field != "marks" {
		t.Errorf("期望字段 marks，实际 %s", e.Field)
	}
}

func TestResultService_Create_NegativeMarks(t *testing.T) {
	svc, _ := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))

	_, err := svc.Create(context.Background(), testFaculty, newResultReq(-1, nil))
	if !errors.Is(err, ErrResultMarksNegative) {
		t.Errorf("期望 ErrResultMarksNegative，实际 %v", err)
	}
}

func TestResultService_Create_UnknownLock(t *testing.T) {
	svc, _ := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))
	req := newResultReq(10, nil)
	req.ResultLock = "NoSuchTerm"

	if _, err := svc.Create(context.Background(), testFaculty, req); !errors.Is(err, ErrResultLockRefNotFound) {
		t.Errorf("期望 ErrResultLockRefNotFound，实际 %v", err)
	}
}

func TestResultService_Create_UnknownStudent(t *testing.T) {
	svc, _ := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))
	req := newResultReq(10, nil)
	req.StudentCode = "S999-10-A"

	if _, err := svc.Create(context.Background(), testFaculty, req); !errors.Is(err, ErrUnknownStudent) {
		t.Errorf("期望 ErrUnknownStudent，实际 %v", err)
	}
}

func TestResultService_Create_Duplicate(t *testing.T) {
	svc, _ := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))
	ctx := context.Background()

	if _, err := svc.Create(ctx, testFaculty, newResultReq(10, nil)); err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	if _, err := svc.Create(ctx, testFaculty, newResultReq(20, nil)); !errors.Is(err, ErrResultDuplicate) {
		t.Errorf("期望 ErrResultDuplicate，实际 %v", err)
	}
}

// ── GetByID / List ──

func TestResultService_GetByID_StudentScope(t *testing.T) {
	svc, _ := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))
	ctx := context.Background()
	own, _ := svc.Create(ctx, testFaculty, newResultReq(10, nil))
	otherReq := newResultReq(10, nil)
	otherReq.StudentCode = "S002-10-A"
	other, _ := svc.Create(ctx, testFaculty, otherReq)

	if _, err := svc.GetByID(ctx, testStudent, own.ID); err != nil {
		t.Errorf("学生应能读取自己的成绩，实际 %v", err)
	}
	if _, err := svc.GetByID(ctx, testStudent, other.ID); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("学生读取他人成绩应按不存在处理，实际 %v", err)
	}
}

func TestResultService_List_StudentScopeAndStamp(t *testing.T) {
	svc, m := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))
	ctx := context.Background()
	_, _ = svc.Create(ctx, testFaculty, newResultReq(10, nil))
	otherReq := newResultReq(10, nil)
	otherReq.StudentCode = "S002-10-A"
	_, _ = svc.Create(ctx, testFaculty, otherReq)

	// 学生试图通过过滤参数读取他人成绩
	listing, err := svc.List(ctx, testStudent, &dto.ResultListQuery{StudentCode: "S002-10-A"}, nil)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(listing.Items) != 1 || listing.Items[0].StudentCode != "S001-10-A" {
		t.Errorf("学生只能看到自己的成绩，实际 %+v", listing.Items)
	}
	if listing.Stamp == nil || !listing.Stamp.Equal(m.store.stamps[model.CollectionResults]) {
		t.Errorf("期望返回集合时间戳，实际 %v", listing.Stamp)
	}

	all, _ := svc.List(ctx, testFaculty, &dto.ResultListQuery{}, nil)
	if all.Total != 2 {
		t.Errorf("教师应看到全部 2 条，实际 %d", all.Total)
	}
}

func TestResultService_List_Since(t *testing.T) {
	svc, _ := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))
	ctx := context.Background()
	first, _ := svc.Create(ctx, testFaculty, newResultReq(10, nil))
	since := first.LastModified
	otherReq := newResultReq(10, nil)
	otherReq.StudentCode = "S002-10-A"
	_, _ = svc.Create(ctx, testFaculty, otherReq)

	listing, _ := svc.List(ctx, testFaculty, &dto.ResultListQuery{}, &since)
	if len(listing.Items) != 1 || listing.Items[0].StudentCode != "S002-10-A" {
		t.Errorf("增量查询只应返回 since 之后的记录，实际 %+v", listing.Items)
	}
}

// ── Update ──

func TestResultService_Update_Version(t *testing.T) {
	svc, _ := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))
	ctx := context.Background()
	created, _ := svc.Create(ctx, testFaculty, newResultReq(10, ptr(20.0)))

	updated, err := svc.Update(ctx, testFaculty, created.ID, &dto.UpdateResultRequest{Marks: ptr(15.0), Version: ptr(1)})
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if updated.Version != 2 || updated.Percentage != 75 {
		t.Errorf("期望版本 2、百分比 75，实际 %d / %v", updated.Version, updated.Percentage)
	}

	_, err = svc.Update(ctx, testFaculty, created.ID, &dto.UpdateResultRequest{Marks: ptr(16.0), Version: ptr(1)})
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("过期版本号应返回 ErrOptimisticLock，实际 %v", err)
	}
}

func TestResultService_Update_TotalMarks(t *testing.T) {
	svc, _ := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))
	ctx := context.Background()
	created, _ := svc.Create(ctx, testFaculty, newResultReq(10, ptr(20.0)))

	// 未传 total_marks 保持不变
	kept, err := svc.Update(ctx, testFaculty, created.ID, &dto.UpdateResultRequest{Marks: ptr(12.0)})
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if kept.TotalMarks == nil || *kept.TotalMarks != 20 {
		t.Fatalf("未传满分时应保持 20，实际 %v", kept.TotalMarks)
	}

	cleared, err := svc.Update(ctx, testFaculty, created.ID, &dto.UpdateResultRequest{TotalMarks: dto.Null()})
	if err != nil {
		t.Fatalf("清空满分失败: %v", err)
	}
	if cleared.TotalMarks != nil {
		t.Errorf("显式 null 应清空满分，实际 %v", *cleared.TotalMarks)
	}

	// 重新设置时仍校验分数不超过满分
	_, err = svc.Update(ctx, testFaculty, created.ID, &dto.UpdateResultRequest{TotalMarks: dto.Float(5)})
	if !errors.Is(err, ErrResultMarksExceed) {
		t.Errorf("期望 ErrResultMarksExceed，实际 %v", err)
	}
}

func TestResultService_Update_MoveIntoClosedLock(t *testing.T) {
	svc, m := setupTestResultService(t, mustTime("2025-01-15T00:00:00Z"))
	ctx := context.Background()
	created, _ := svc.Create(ctx, testFaculty, newResultReq(10, nil))

	_, err := svc.Update(ctx, testFaculty, created.ID, &dto.UpdateResultRequest{ResultLock: ptr("Term2")})
	if !errors.Is(err, ErrResultLockInactive) {
		t.Errorf("移入未开放窗口应拒绝，实际 %v", err)
	}
	if m.results.results[created.ID].ResultLock != "Term1" {
		t.Error("被拒绝的更新不应落库")
	}
}

func TestResultService_Update_AfterWindowCloses(t *testing.T) {
	repo, m := newMockRepos()
	m.users.addStudent("S001-10-A")
	ctx := context.Background()
	_ = m.resultLocks.Create(ctx, &model.ResultLock{
		Title:     "Term1",
		StartDate: mustTime("2025-01-01T00:00:00Z"),
		EndDate:   mustTime("2025-01-31T23:59:59.999999Z"),
	})
	now := mustTime("2025-01-15T00:00:00Z")
	svc := NewResultService(repo, NewMutationGuard(func() time.Time { return now }, nopLogger()), nopLogger())
	created, _ := svc.Create(ctx, testFaculty, newResultReq(10, nil))

	now = mustTime("2025-02-01T00:00:00Z")
	if _, err := svc.Update(ctx, testFaculty, created.ID, &dto.UpdateResultRequest{Marks: ptr(11.0)}); !errors.Is(err, ErrResultLockInactive) {
		t.Errorf("窗口关闭后修改应拒绝，实际 %v", err)
	}
}

// ── Delete ──

func TestResultService_Delete_AdminBypassesWindow(t *testing.T) {
	repo, m := newMockRepos()
	m.users.addStudent("S001-10-A")
	ctx := context.Background()
	_ = m.resultLocks.Create(ctx, &model.ResultLock{
		Title:     "Term1",
		StartDate: mustTime("2025-01-01T00:00:00Z"),
		EndDate:   mustTime("2025-01-31T23:59:59.999999Z"),
	})
	now := mustTime("2025-01-15T00:00:00Z")
	svc := NewResultService(repo, NewMutationGuard(func() time.Time { return now }, nopLogger()), nopLogger())
	created, _ := svc.Create(ctx, testFaculty, newResultReq(10, nil))

	now = mustTime("2025-02-01T00:00:00Z")
	if err := svc.Delete(ctx, testFaculty, created.ID); !errors.Is(err, ErrResultLockInactive) {
		t.Errorf("教师在窗口关闭后删除应拒绝，实际 %v", err)
	}
	if err := svc.Delete(ctx, testAdmin, created.ID); err != nil {
		t.Errorf("管理员删除不受窗口限制，实际 %v", err)
	}
	if err := svc.Delete(ctx, testAdmin, created.ID); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("重复删除期望 ErrResultNotFound，实际 %v", err)
	}
}
