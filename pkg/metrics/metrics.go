package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 API 注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		InvocationDuration, InvocationTotal, OutcomeTotal,
		GatewayErrorTotal, UsageCostTotal,
	)
}

// InvocationDuration 工具调用耗时（秒，含远端往返）
var InvocationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "console_invocation_duration_seconds",
		Help:    "工具调用耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"tool"},
)

// InvocationTotal 工具调用总数（按账本状态）
var InvocationTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_invocation_total",
		Help: "工具调用总数（按状态）",
	},
	[]string{"tool", "status"}, // success | error
)

// OutcomeTotal 结果分类总数（execution/payment 两个维度的合成结论）
var OutcomeTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_outcome_total",
		Help: "调用结果分类总数",
	},
	[]string{"outcome"}, // success | payment_failed | error
)

// GatewayErrorTotal 远端网关传输层错误总数
var GatewayErrorTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_gateway_error_total",
		Help: "远端工具服务传输层错误总数",
	},
	[]string{"tool"},
)

// UsageCostTotal 累计记账成本（以最小计价单位 0.0001 计）
var UsageCostTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "console_usage_cost_total",
		Help: "累计记账成本",
	},
	[]string{"tool"},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
