package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sapp"

var (
	// HTTPRequestDuration 请求耗时（按路由模板与状态码）
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// ConditionalResponses 条件请求结果：not_modified / full / unvalidated
	ConditionalResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conditional_responses_total",
		Help:      "Conditional GET outcomes per resource.",
	}, []string{"resource", "outcome"})

	// AuthzDecisions 鉴权结果：granted / role / unverified / unauthenticated
	AuthzDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_decisions_total",
		Help:      "Authorization predicate decisions per resource.",
	}, []string{"resource", "decision"})

	// GuardRejections 锁校验拒绝次数：result_lock_inactive / attendance_locked / latch_already_set
	GuardRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutation_guard_rejections_total",
		Help:      "Mutations rejected by time-window or latch guards.",
	}, []string{"reason"})
)
