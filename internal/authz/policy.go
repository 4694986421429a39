package authz

import (
	"net/http"
	"strings"

	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"
)

type routeKey struct {
	resource string
	verb     string
}

// Policy (资源, HTTP 动词) → 谓词
// 未配置的组合一律拒绝
type Policy struct {
	rules map[routeKey]Predicate
}

// NewPolicy 创建空策略表
func NewPolicy() *Policy {
	return &Policy{rules: make(map[routeKey]Predicate)}
}

// Allow 为资源的若干动词配置谓词，返回自身便于链式调用
func (p *Policy) Allow(resource string, pred Predicate, verbs ...string) *Policy {
	for _, verb := range verbs {
		p.rules[routeKey{resource: resource, verb: normalizeVerb(verb)}] = pred
	}
	return p
}

// Rule 查询配置的谓词
func (p *Policy) Rule(resource, verb string) (Predicate, bool) {
	pred, ok := p.rules[routeKey{resource: resource, verb: normalizeVerb(verb)}]
	return pred, ok
}

// Check 求值并返回原始拒绝信息；未配置的组合视为角色不符
func (p *Policy) Check(pr *Principal, resource, verb string) *Denial {
	pred, ok := p.Rule(resource, verb)
	if !ok {
		if pr == nil {
			return &Denial{Reason: ReasonUnauthenticated}
		}
		return &Denial{Reason: ReasonRole, Role: pr.Role}
	}
	return pred.Evaluate(pr)
}

// Authorize 求值并翻译为业务错误：未认证 401，角色不符 / 未验证 403
func (p *Policy) Authorize(pr *Principal, resource, verb string) error {
	d := p.Check(pr, resource, verb)
	if d == nil {
		return nil
	}
	return DenialError(d)
}

// DenialError 将拒绝信息转换为 pkg/errors 错误
func DenialError(d *Denial) error {
	switch d.Reason {
	case ReasonUnauthenticated:
		return pkgerrors.ErrUnauthenticated
	case ReasonUnverified:
		return pkgerrors.ErrForbiddenUnverified.WithMessage("%s", d.Message())
	default:
		return pkgerrors.ErrForbiddenRole.WithMessage("%s", d.Message())
	}
}

// HEAD 与 GET 共用规则
func normalizeVerb(verb string) string {
	v := strings.ToUpper(verb)
	if v == http.MethodHead {
		return http.MethodGet
	}
	return v
}
