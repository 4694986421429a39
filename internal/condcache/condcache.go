// Package condcache 实现条件 GET：由结果集的最大 last_modified 推导校验器，
// 对未变化的轮询返回 304，并把调用方水位线显式传给查询层。
//
// 本包不持有任何进程内状态，多实例仅依赖数据库分配的 last_modified 即可得到一致的校验器。
package condcache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Stamped 带数据库分配修改时间的资源
type Stamped interface {
	LastModifiedAt() time.Time
}

// Snapshot 结果集的有效修改时间
// 零值表示结果集为空、无法推导校验器
type Snapshot struct {
	at    time.Time
	known bool
}

// Of 计算一组资源的快照
func Of[T Stamped](items ...T) Snapshot {
	var s Snapshot
	for _, item := range items {
		s.Include(item.LastModifiedAt())
	}
	return s
}

// At 以单个时间点构造快照，零值时间视为未知
func At(t time.Time) Snapshot {
	var s Snapshot
	s.Include(t)
	return s
}

// Include 并入一个时间点，零值忽略
func (s *Snapshot) Include(t time.Time) {
	if t.IsZero() {
		return
	}
	if !s.known || t.After(s.at) {
		s.at = t
		s.known = true
	}
}

// IncludePtr 并入可空时间点
func (s *Snapshot) IncludePtr(t *time.Time) {
	if t != nil {
		s.Include(*t)
	}
}

// Merge 返回两个快照的最大值
func (s Snapshot) Merge(o Snapshot) Snapshot {
	if o.known {
		s.Include(o.at)
	}
	return s
}

// LastModified 有效修改时间；结果集为空时 ok=false
func (s Snapshot) LastModified() (time.Time, bool) {
	return s.at, s.known
}

// ── 校验器 ──

// Validator 响应携带的校验器
type Validator struct {
	LastModified time.Time
	Token        string
}

// NewValidator 由有效修改时间生成校验器（微秒精度，与数据库时间戳精度一致）
func NewValidator(t time.Time) Validator {
	t = t.UTC().Truncate(time.Microsecond)
	return Validator{LastModified: t, Token: FormatToken(t)}
}

// FormatToken 时间戳 → 令牌：Unix 微秒的十进制表示
// 相同时间得到相同令牌，更晚的时间得到数值更大的令牌
func FormatToken(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}

// ParseToken 令牌 → 时间戳，兼容带引号与弱校验前缀的写法
func ParseToken(token string) (time.Time, bool) {
	us, err := strconv.ParseInt(unquote(token), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMicro(us).UTC(), true
}

// ETag 响应头取值（强校验器，带引号）
func (v Validator) ETag() string {
	return `"` + v.Token + `"`
}

// LastModifiedHeader 响应头取值（HTTP-date，秒精度，仅供展示与兼容）
func (v Validator) LastModifiedHeader() string {
	return v.LastModified.UTC().Format(http.TimeFormat)
}

// ── 请求侧 ──

// Request 调用方携带的条件
type Request struct {
	Watermark *time.Time // If-Modified-Since
	Tokens    []string   // If-None-Match，已去除引号与 W/ 前缀
	Any       bool       // If-None-Match: *
}

// ParseRequest 解析条件请求头；无法解析的取值按未携带处理
func ParseRequest(ifModifiedSince, ifNoneMatch string) Request {
	var req Request

	if wm, ok := parseWatermark(ifModifiedSince); ok {
		req.Watermark = &wm
	}

	for _, part := range strings.Split(ifNoneMatch, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case part == "*":
			req.Any = true
		default:
			req.Tokens = append(req.Tokens, unquote(part))
		}
	}
	return req
}

// Since 供查询层使用的水位线；nil 表示不收窄
func (r Request) Since() *time.Time {
	return r.Watermark
}

// Conditional 是否携带任何条件
func (r Request) Conditional() bool {
	return r.Watermark != nil || len(r.Tokens) > 0 || r.Any
}

func (r Request) matches(token string) bool {
	if r.Any {
		return true
	}
	for _, t := range r.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// 接受 HTTP-date 与 RFC3339（含纳秒）两种写法
func parseWatermark(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := http.ParseTime(raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "W/")
	return strings.Trim(s, `"`)
}

// ── 判定 ──

// Outcome 条件请求的处理结果
type Outcome int

const (
	// OutcomeUnvalidated 结果集为空，返回完整响应且不带校验器
	OutcomeUnvalidated Outcome = iota + 1
	// OutcomeFull 返回完整响应并附带校验器
	OutcomeFull
	// OutcomeNotModified 返回 304，无响应体
	OutcomeNotModified
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnvalidated:
		return "unvalidated"
	case OutcomeFull:
		return "full"
	case OutcomeNotModified:
		return "not_modified"
	default:
		return "unknown"
	}
}

// Decision 判定结果；Outcome 为 OutcomeUnvalidated 时 Validator 为零值
type Decision struct {
	Outcome   Outcome
	Validator Validator
}

// Decide 按以下顺序判定：
//  1. 快照未知 → 完整响应，不带校验器
//  2. 水位线存在且快照不晚于水位线 → 304
//  3. 令牌匹配 → 304
//  4. 其余 → 完整响应 + 新校验器
func Decide(req Request, snap Snapshot) Decision {
	at, ok := snap.LastModified()
	if !ok {
		return Decision{Outcome: OutcomeUnvalidated}
	}

	v := NewValidator(at)
	if req.Watermark != nil && !v.LastModified.After(*req.Watermark) {
		return Decision{Outcome: OutcomeNotModified, Validator: v}
	}
	if req.matches(v.Token) {
		return Decision{Outcome: OutcomeNotModified, Validator: v}
	}
	return Decision{Outcome: OutcomeFull, Validator: v}
}
