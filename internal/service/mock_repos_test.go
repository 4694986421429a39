package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
	"github.com/KoushikCodesWebpages/SappBackend/internal/repository"
	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"
)

// ── 测试辅助 ──

// fixedClock 返回固定时刻的 Clock
func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func mustTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr[T any](v T) *T { return &v }

// mockStore 所有 Mock Repository 共享的时钟，模拟触发器分配 last_modified
// dbNow 模拟数据库 now()，与各实例的应用时钟相互独立
type mockStore struct {
	now    time.Time
	dbNow  time.Time
	stamps map[string]time.Time
}

func (s *mockStore) touch(collection string) time.Time {
	s.now = s.now.Add(time.Millisecond)
	s.stamps[collection] = s.now
	return s.now
}

type mockRepos struct {
	store          *mockStore
	users          *mockUserRepo
	resultLocks    *mockResultLockRepo
	attendanceLock *mockAttendanceLockRepo
	results        *mockResultRepo
	attendance     *mockAttendanceRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	store := &mockStore{now: mustTime("2025-01-01T00:00:00Z"), dbNow: mustTime("2025-01-01T00:00:00Z"), stamps: make(map[string]time.Time)}
	m := &mockRepos{
		store:          store,
		users:          &mockUserRepo{users: make(map[string]*model.User)},
		resultLocks:    &mockResultLockRepo{store: store, locks: make(map[string]*model.ResultLock)},
		attendanceLock: &mockAttendanceLockRepo{store: store, locks: make(map[string]*model.AttendanceLock)},
		results:        &mockResultRepo{store: store, results: make(map[string]*model.Result)},
		attendance:     &mockAttendanceRepo{store: store, records: make(map[string]*model.Attendance)},
	}
	m.results.locks = m.resultLocks
	m.resultLocks.inUse = func(title string) bool {
		for _, r := range m.results.results {
			if r.ResultLock == title {
				return true
			}
		}
		return false
	}
	repo := &repository.Repository{
		User:           m.users,
		ResultLock:     m.resultLocks,
		AttendanceLock: m.attendanceLock,
		Result:         m.results,
		Attendance:     m.attendance,
		Stamp:          &mockStampRepo{store: store},
	}
	return repo, m
}

func nopLogger() *zap.Logger { return zap.NewNop() }

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Username
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ExistingStudentCodes(_ context.Context, codes []string) ([]string, error) {
	var found []string
	for _, c := range codes {
		for _, u := range m.users {
			if u.Role == "student" && u.StudentCode != nil && *u.StudentCode == c {
				found = append(found, c)
				break
			}
		}
	}
	return found, nil
}

func (m *mockUserRepo) addStudent(code string) {
	_ = m.Create(context.Background(), &model.User{
		Username:    code,
		Role:        "student",
		IsVerified:  true,
		StudentCode: ptr(code),
	})
}

// ── Mock StampRepository ──

type mockStampRepo struct {
	store *mockStore
}

func (m *mockStampRepo) Get(_ context.Context, collection string) (time.Time, bool, error) {
	at, ok := m.store.stamps[collection]
	return at, ok, nil
}

func (m *mockStampRepo) Now(_ context.Context) (time.Time, error) {
	return m.store.dbNow, nil
}

// ── Mock ResultLockRepository ──

type mockResultLockRepo struct {
	store *mockStore
	locks map[string]*model.ResultLock
	seq   int
	// inUse 模拟 results.result_lock 外键
	inUse func(title string) bool
}

func (m *mockResultLockRepo) Create(_ context.Context, lock *model.ResultLock) error {
	for _, l := range m.locks {
		if l.Title == lock.Title {
			return repository.ErrDuplicate
		}
	}
	m.seq++
	lock.ResultLockID = fmt.Sprintf("rl-%d", m.seq)
	lock.CreatedAt = m.store.touch(model.CollectionResultLocks)
	lock.LastModified = lock.CreatedAt
	cp := *lock
	m.locks[lock.ResultLockID] = &cp
	return nil
}

func (m *mockResultLockRepo) GetByID(_ context.Context, id string) (*model.ResultLock, error) {
	if l, ok := m.locks[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockResultLockRepo) GetByTitleForShare(_ context.Context, title string) (*model.ResultLock, error) {
	for _, l := range m.locks {
		if l.Title == title {
			cp := *l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockResultLockRepo) List(_ context.Context, since *time.Time, now time.Time) ([]model.ResultLock, error) {
	var out []model.ResultLock
	for _, l := range m.locks {
		if since != nil && !l.EffectiveModifiedAt(now).After(*since) {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastModified.Before(out[j].LastModified) })
	return out, nil
}

func (m *mockResultLockRepo) Update(_ context.Context, lock *model.ResultLock) error {
	if _, ok := m.locks[lock.ResultLockID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for id, l := range m.locks {
		if id != lock.ResultLockID && l.Title == lock.Title {
			return repository.ErrDuplicate
		}
	}
	lock.LastModified = m.store.touch(model.CollectionResultLocks)
	cp := *lock
	m.locks[lock.ResultLockID] = &cp
	return nil
}

func (m *mockResultLockRepo) Delete(_ context.Context, id string) error {
	l, ok := m.locks[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if m.inUse != nil && m.inUse(l.Title) {
		return repository.ErrForeignKey
	}
	delete(m.locks, id)
	m.store.touch(model.CollectionResultLocks)
	return nil
}

// ── Mock AttendanceLockRepository ──

type mockAttendanceLockRepo struct {
	store *mockStore
	locks map[string]*model.AttendanceLock // key: YYYY-MM-DD
	seq   int
	// lockRace 为 true 时模拟并发：Lock 的条件更新命中 0 行
	lockRace bool
}

func (m *mockAttendanceLockRepo) Create(_ context.Context, lock *model.AttendanceLock) error {
	key := lock.Date.Format("2006-01-02")
	if _, ok := m.locks[key]; ok {
		return repository.ErrDuplicate
	}
	m.seq++
	lock.AttendanceLockID = fmt.Sprintf("al-%d", m.seq)
	lock.CreatedAt = m.store.touch(model.CollectionAttendanceLocks)
	lock.LastModified = lock.CreatedAt
	cp := *lock
	m.locks[key] = &cp
	return nil
}

func (m *mockAttendanceLockRepo) GetByDate(_ context.Context, date time.Time) (*model.AttendanceLock, error) {
	if l, ok := m.locks[date.Format("2006-01-02")]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceLockRepo) GetByDatesForShare(_ context.Context, dates []time.Time) ([]model.AttendanceLock, error) {
	var out []model.AttendanceLock
	for _, d := range dates {
		if l, ok := m.locks[d.Format("2006-01-02")]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *mockAttendanceLockRepo) GetByDateForUpdate(ctx context.Context, date time.Time) (*model.AttendanceLock, error) {
	return m.GetByDate(ctx, date)
}

func (m *mockAttendanceLockRepo) Lock(_ context.Context, lock *model.AttendanceLock) (bool, error) {
	if m.lockRace {
		return false, nil
	}
	stored, ok := m.locks[lock.Date.Format("2006-01-02")]
	if !ok || stored.IsLocked {
		return false, nil
	}
	stored.IsLocked = true
	stored.LastModified = m.store.touch(model.CollectionAttendanceLocks)
	*lock = *stored
	return true, nil
}

func (m *mockAttendanceLockRepo) List(_ context.Context, since *time.Time) ([]model.AttendanceLock, error) {
	var out []model.AttendanceLock
	for _, l := range m.locks {
		if since != nil && !l.LastModified.After(*since) {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ── Mock ResultRepository ──

type mockResultRepo struct {
	store   *mockStore
	locks   *mockResultLockRepo
	results map[string]*model.Result
	seq     int
}

func (m *mockResultRepo) lockExists(title string) bool {
	for _, l := range m.locks.locks {
		if l.Title == title {
			return true
		}
	}
	return false
}

func (m *mockResultRepo) Create(_ context.Context, result *model.Result) error {
	if !m.lockExists(result.ResultLock) {
		return repository.ErrForeignKey
	}
	for _, r := range m.results {
		if r.ResultLock == result.ResultLock && r.StudentCode == result.StudentCode && r.Subject == result.Subject {
			return repository.ErrDuplicate
		}
	}
	m.seq++
	result.ResultID = fmt.Sprintf("res-%d", m.seq)
	result.Version = 1
	result.CreatedAt = m.store.touch(model.CollectionResults)
	result.LastModified = result.CreatedAt
	cp := *result
	m.results[result.ResultID] = &cp
	return nil
}

func (m *mockResultRepo) GetByID(_ context.Context, id string) (*model.Result, error) {
	if r, ok := m.results[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockResultRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Result, error) {
	return m.GetByID(ctx, id)
}

func (m *mockResultRepo) List(_ context.Context, filter repository.ResultFilter, opts repository.ListOptions) ([]model.Result, int64, error) {
	var out []model.Result
	for _, r := range m.results {
		if filter.ResultLock != "" && r.ResultLock != filter.ResultLock {
			continue
		}
		if filter.StudentCode != "" && r.StudentCode != filter.StudentCode {
			continue
		}
		if filter.Subject != "" && r.Subject != filter.Subject {
			continue
		}
		if opts.Since != nil && !r.LastModified.After(*opts.Since) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResultID < out[j].ResultID })
	total := int64(len(out))
	if opts.Offset > 0 && opts.Offset < len(out) {
		out = out[opts.Offset:]
	} else if opts.Offset >= len(out) {
		out = nil
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, total, nil
}

func (m *mockResultRepo) Update(_ context.Context, result *model.Result, expectedVersion *int) error {
	stored, ok := m.results[result.ResultID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if expectedVersion != nil && stored.Version != *expectedVersion {
		return pkgerrors.ErrOptimisticLock
	}
	if !m.lockExists(result.ResultLock) {
		return repository.ErrForeignKey
	}
	result.Version = stored.Version + 1
	result.LastModified = m.store.touch(model.CollectionResults)
	cp := *result
	m.results[result.ResultID] = &cp
	return nil
}

func (m *mockResultRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.results[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.results, id)
	m.store.touch(model.CollectionResults)
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	store   *mockStore
	records map[string]*model.Attendance // key: student_code|date
	seq     int
}

func attendanceKey(a *model.Attendance) string {
	return a.StudentCode + "|" + a.Date.Format("2006-01-02")
}

func (m *mockAttendanceRepo) CreateBatch(_ context.Context, records []model.Attendance) error {
	for i := range records {
		if _, ok := m.records[attendanceKey(&records[i])]; ok {
			return repository.ErrDuplicate
		}
	}
	return m.put(records)
}

func (m *mockAttendanceRepo) UpsertBatch(_ context.Context, records []model.Attendance) error {
	return m.put(records)
}

func (m *mockAttendanceRepo) put(records []model.Attendance) error {
	now := m.store.touch(model.CollectionAttendance)
	for i := range records {
		key := attendanceKey(&records[i])
		if existing, ok := m.records[key]; ok {
			existing.Status = records[i].Status
			existing.LastModified = now
			records[i] = *existing
			continue
		}
		m.seq++
		records[i].AttendanceID = fmt.Sprintf("att-%d", m.seq)
		records[i].CreatedAt = now
		records[i].LastModified = now
		cp := records[i]
		m.records[key] = &cp
	}
	return nil
}

func (m *mockAttendanceRepo) List(_ context.Context, filter repository.AttendanceFilter, opts repository.ListOptions) ([]model.Attendance, int64, error) {
	var out []model.Attendance
	for _, a := range m.records {
		if filter.Date != nil && !a.Date.Equal(*filter.Date) {
			continue
		}
		if filter.StudentCode != "" && a.StudentCode != filter.StudentCode {
			continue
		}
		if filter.CodeSuffix != "" && !strings.HasSuffix(a.StudentCode, filter.CodeSuffix) {
			continue
		}
		if opts.Since != nil && !a.LastModified.After(*opts.Since) {
			continue
		}
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttendanceID < out[j].AttendanceID })
	return out, int64(len(out)), nil
}
