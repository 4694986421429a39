package service

import pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"

// 业务错误码按模块分段：11xxx 认证，15xxx 成绩窗口，16xxx 考勤日锁，17xxx 成绩，18xxx 考勤，19xxx 导出

// ── 认证 ──

var (
	ErrInvalidCredentials = pkgerrors.Unauthenticated(11001, "用户名或密码错误")
	ErrTokenExpired       = pkgerrors.Unauthenticated(11002, "Token 已过期")
	ErrTokenInvalid       = pkgerrors.Unauthenticated(11003, "Token 无效")
	ErrUserNotFound       = pkgerrors.Unauthenticated(11004, "用户不存在")
)

// ── 成绩窗口 ──

var (
	ErrResultLockNotFound      = pkgerrors.NotFound(15001, "成绩窗口不存在")
	ErrResultLockWindowInvalid = pkgerrors.Validation(15002, "开始时间不能晚于结束时间").WithField("end_date")
	ErrResultLockDateInvalid   = pkgerrors.Validation(15003, "日期格式无效，应为 RFC3339 或 YYYY-MM-DD")
	ErrResultLockTitleTaken    = pkgerrors.Conflict(15004, "成绩窗口标题已存在").WithField("title")
	ErrResultLockInUse         = pkgerrors.Conflict(15005, "仍有成绩引用该窗口，无法删除")
	ErrResultLockInactive      = pkgerrors.Validation(15006, "lock inactive: 当前不在成绩录入时间窗口内").WithField("result_lock")
)

// ── 考勤日锁 ──

var (
	ErrAttendanceLockNotFound   = pkgerrors.NotFound(16001, "该日期没有考勤锁")
	ErrAttendanceLockExists     = pkgerrors.Conflict(16002, "该日期的考勤锁已存在").WithField("date")
	ErrAttendanceLockAlreadySet = pkgerrors.Validation(16003, "already locked: 考勤锁已锁定，不允许再修改").WithField("is_locked")
	ErrAttendanceLockDate       = pkgerrors.Validation(16004, "日期格式无效，应为 YYYY-MM-DD").WithField("date")
)

// ── 成绩 ──

var (
	ErrResultNotFound        = pkgerrors.NotFound(17001, "成绩不存在")
	ErrResultMarksExceed     = pkgerrors.Validation(17002, "分数不能超过满分").WithField("marks")
	ErrResultMarksNegative   = pkgerrors.Validation(17003, "分数不能为负").WithField("marks")
	ErrResultDuplicate       = pkgerrors.Conflict(17004, "该学生此科目在该窗口下已有成绩")
	ErrResultLockRefNotFound = pkgerrors.NotFound(17005, "引用的成绩窗口不存在").WithField("result_lock")
	ErrResultTotalNegative   = pkgerrors.Validation(17006, "满分不能为负").WithField("total_marks")
)

// ── 考勤 ──

var (
	ErrAttendanceDuplicate   = pkgerrors.Conflict(18001, "考勤记录已存在")
	ErrAttendanceDateLocked  = pkgerrors.Validation(18002, "该日期考勤已锁定，不允许修改").WithField("date")
	ErrUnknownStudent        = pkgerrors.Validation(18003, "学生不存在").WithField("student_code")
	ErrAttendanceBatchSize   = pkgerrors.Validation(18004, "批量考勤记录数量无效")
	ErrAttendanceDateInvalid = pkgerrors.Validation(18005, "日期格式无效，应为 YYYY-MM-DD").WithField("date")
)

// ── 导出 ──

var (
	ErrExportNoResults    = pkgerrors.NotFound(19001, "没有符合条件的成绩")
	ErrExportGenerateFail = &pkgerrors.Error{Kind: pkgerrors.KindUnknown, Code: 19002, Message: "生成 Excel 文件失败"}
)
