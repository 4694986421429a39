package router

import (
	"net/http"
	"testing"

	"github.com/KoushikCodesWebpages/SappBackend/internal/authz"
)

var (
	student         = &authz.Principal{UserID: "s", Role: authz.RoleStudent, StudentCode: "S001-10-A"}
	faculty         = &authz.Principal{UserID: "f", Role: authz.RoleFaculty, Verified: true}
	facultyUnver    = &authz.Principal{UserID: "f2", Role: authz.RoleFaculty}
	officeAdmin     = &authz.Principal{UserID: "a", Role: authz.RoleOfficeAdmin, Verified: true}
	adminUnverified = &authz.Principal{UserID: "a2", Role: authz.RoleOfficeAdmin}
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		resource string
		verb     string
		pr       *authz.Principal
		want     bool
	}{
		// 成绩窗口
		{ResourceResultLocks, http.MethodGet, student, true},
		{ResourceResultLocks, http.MethodPost, faculty, false},
		{ResourceResultLocks, http.MethodPost, adminUnverified, true},
		{ResourceResultLocks, http.MethodDelete, officeAdmin, true},
		// 考勤日锁
		{ResourceAttendanceLocks, http.MethodGet, student, false},
		{ResourceAttendanceLocks, http.MethodGet, facultyUnver, true},
		{ResourceAttendanceLocks, http.MethodPut, officeAdmin, true},
		{ResourceAttendanceLocks, http.MethodPut, faculty, false},
		{ResourceAttendanceLocks, http.MethodDelete, officeAdmin, false},
		// 成绩
		{ResourceResults, http.MethodGet, student, true},
		{ResourceResults, http.MethodHead, student, true},
		{ResourceResults, http.MethodPost, faculty, true},
		{ResourceResults, http.MethodPost, facultyUnver, false},
		{ResourceResults, http.MethodPost, officeAdmin, false},
		{ResourceResults, http.MethodPut, student, false},
		{ResourceResults, http.MethodDelete, officeAdmin, true},
		{ResourceResults, http.MethodDelete, facultyUnver, false},
		{ResourceResultsExport, http.MethodGet, student, false},
		{ResourceResultsExport, http.MethodGet, faculty, true},
		// 考勤
		{ResourceAttendance, http.MethodGet, student, true},
		{ResourceAttendance, http.MethodPut, faculty, true},
		{ResourceAttendance, http.MethodPost, officeAdmin, false},
		// 会话
		{ResourceSession, http.MethodGet, student, true},
		{ResourceSession, http.MethodPost, facultyUnver, true},
		// 未认证
		{ResourceResults, http.MethodGet, nil, false},
	}
	for _, tt := range tests {
		err := p.Authorize(tt.pr, tt.resource, tt.verb)
		if got := err == nil; got != tt.want {
			role := "匿名"
			if tt.pr != nil {
				role = string(tt.pr.Role)
			}
			t.Errorf("%s %s (%s): 期望放行=%v，实际 %v", tt.verb, tt.resource, role, tt.want, err)
		}
	}
}
