package router

import (
	"net/http"

	"github.com/KoushikCodesWebpages/SappBackend/internal/authz"
)

// 策略表中的资源名
const (
	ResourceSession         = "session"
	ResourceResultLocks     = "result_locks"
	ResourceAttendanceLocks = "attendance_locks"
	ResourceResults         = "results"
	ResourceResultsExport   = "results_export"
	ResourceAttendance      = "attendance"
)

// DefaultPolicy 各资源按 HTTP 动词的访问谓词；未列出的组合一律拒绝
func DefaultPolicy() *authz.Policy {
	student := authz.HasRole(authz.RoleStudent)
	faculty := authz.HasRole(authz.RoleFaculty)
	admin := authz.HasRole(authz.RoleOfficeAdmin)
	anyone := authz.Or(student, faculty, admin)
	staff := authz.Or(faculty, admin)
	verifiedFaculty := authz.VerifiedRole(authz.RoleFaculty)

	return authz.NewPolicy().
		Allow(ResourceSession, anyone, http.MethodGet, http.MethodPost).
		// 成绩窗口：所有人可读，仅教务管理员可维护
		Allow(ResourceResultLocks, anyone, http.MethodGet).
		Allow(ResourceResultLocks, admin, http.MethodPost, http.MethodPut, http.MethodDelete).
		// 考勤日锁
		Allow(ResourceAttendanceLocks, staff, http.MethodGet).
		Allow(ResourceAttendanceLocks, admin, http.MethodPost, http.MethodPut).
		// 成绩：录入与修改限已验证教师，删除额外放行教务管理员
		Allow(ResourceResults, anyone, http.MethodGet).
		Allow(ResourceResults, verifiedFaculty, http.MethodPost, http.MethodPut).
		Allow(ResourceResults, authz.Or(verifiedFaculty, admin), http.MethodDelete).
		Allow(ResourceResultsExport, staff, http.MethodGet).
		// 考勤
		Allow(ResourceAttendance, anyone, http.MethodGet).
		Allow(ResourceAttendance, verifiedFaculty, http.MethodPost, http.MethodPut)
}
