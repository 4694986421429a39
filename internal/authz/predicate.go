// Package authz 提供可组合的鉴权谓词与按 (资源, 动词) 配置的策略表。
//
// 谓词是一个小型标签联合：HasRole / Verified / And / Or。
// 每个请求只求值一次，结果不跨请求缓存（角色与验证状态随时可能变化）。
package authz

import (
	"fmt"
	"sort"
	"strings"
)

// Role 用户角色（封闭集合）
type Role string

const (
	RoleStudent     Role = "student"
	RoleFaculty     Role = "faculty"
	RoleOfficeAdmin Role = "office_admin"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleOfficeAdmin:
		return true
	}
	return false
}

// Label 角色的中文名称，用于拒绝提示
func (r Role) Label() string {
	switch r {
	case RoleStudent:
		return "学生"
	case RoleFaculty:
		return "教师"
	case RoleOfficeAdmin:
		return "教务管理员"
	default:
		return string(r)
	}
}

// Principal 当前调用方
type Principal struct {
	UserID      string
	Role        Role
	Verified    bool
	StudentCode string // 仅学生角色有值
}

// Reason 拒绝原因
type Reason int

const (
	ReasonUnauthenticated Reason = iota + 1
	ReasonRole
	ReasonUnverified
)

func (r Reason) String() string {
	switch r {
	case ReasonUnauthenticated:
		return "unauthenticated"
	case ReasonRole:
		return "role"
	case ReasonUnverified:
		return "unverified"
	default:
		return "unknown"
	}
}

// Denial 谓词拒绝的详细信息
type Denial struct {
	Reason  Reason
	Role    Role   // 调用方角色
	Allowed []Role // ReasonRole 时，满足要求的角色
}

func (d *Denial) Error() string { return d.Message() }

// Message 区分“角色不符”与“未验证”的可读提示
func (d *Denial) Message() string {
	switch d.Reason {
	case ReasonUnauthenticated:
		return "未认证"
	case ReasonUnverified:
		return fmt.Sprintf("%s账号尚未通过验证，暂不能执行此操作", d.Role.Label())
	default:
		if len(d.Allowed) == 0 {
			return fmt.Sprintf("%s角色无权执行此操作", d.Role.Label())
		}
		labels := make([]string, 0, len(d.Allowed))
		for _, r := range d.Allowed {
			labels = append(labels, r.Label())
		}
		return fmt.Sprintf("%s角色无权执行此操作（仅限%s）", d.Role.Label(), strings.Join(labels, "、"))
	}
}

type op int

const (
	opRole op = iota + 1
	opVerified
	opAnd
	opOr
)

// Predicate 鉴权谓词表达式
type Predicate struct {
	op       op
	role     Role
	operands []Predicate
}

// HasRole 要求调用方角色为 r
func HasRole(r Role) Predicate { return Predicate{op: opRole, role: r} }

// Verified 要求调用方账号已验证
func Verified() Predicate { return Predicate{op: opVerified} }

// And 所有谓词均通过才放行；空列表放行
func And(ps ...Predicate) Predicate { return Predicate{op: opAnd, operands: ps} }

// Or 任一谓词通过即放行；空列表拒绝
func Or(ps ...Predicate) Predicate { return Predicate{op: opOr, operands: ps} }

// VerifiedRole 角色为 r 且账号已验证
func VerifiedRole(r Role) Predicate { return And(HasRole(r), Verified()) }

// Evaluate 对调用方求值，返回 nil 表示放行
func (p Predicate) Evaluate(pr *Principal) *Denial {
	if pr == nil {
		return &Denial{Reason: ReasonUnauthenticated}
	}

	switch p.op {
	case opRole:
		if pr.Role == p.role {
			return nil
		}
		return &Denial{Reason: ReasonRole, Role: pr.Role, Allowed: []Role{p.role}}

	case opVerified:
		if pr.Verified {
			return nil
		}
		return &Denial{Reason: ReasonUnverified, Role: pr.Role}

	case opAnd:
		for _, operand := range p.operands {
			if d := operand.Evaluate(pr); d != nil {
				return d
			}
		}
		return nil

	case opOr:
		return p.evaluateOr(pr)
	}

	// 零值谓词不放行任何人
	return &Denial{Reason: ReasonRole, Role: pr.Role}
}

// evaluateOr 全部拒绝时合并原因：角色已匹配但未验证的提示优先于角色不符
func (p Predicate) evaluateOr(pr *Principal) *Denial {
	var unverified *Denial
	allowed := make(map[Role]struct{})

	for _, operand := range p.operands {
		d := operand.Evaluate(pr)
		if d == nil {
			return nil
		}
		switch d.Reason {
		case ReasonUnverified:
			if unverified == nil {
				unverified = d
			}
		case ReasonRole:
			for _, r := range d.Allowed {
				allowed[r] = struct{}{}
			}
		}
	}

	if unverified != nil {
		return unverified
	}

	roles := make([]Role, 0, len(allowed))
	for r := range allowed {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })

	return &Denial{Reason: ReasonRole, Role: pr.Role, Allowed: roles}
}

// String 谓词的可读形式，用于日志
func (p Predicate) String() string {
	switch p.op {
	case opRole:
		return "role(" + string(p.role) + ")"
	case opVerified:
		return "verified"
	case opAnd, opOr:
		parts := make([]string, 0, len(p.operands))
		for _, operand := range p.operands {
			parts = append(parts, operand.String())
		}
		name := "and"
		if p.op == opOr {
			name = "or"
		}
		return name + "(" + strings.Join(parts, ", ") + ")"
	}
	return "deny"
}
