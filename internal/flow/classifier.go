// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// failureMarkers 远端响应文本中的失败特征子串（统一小写比较）。
// 远端报文形状多次变化，这里把响应当作不可信自由文本做启发式匹配。
// 已知限制：Agent 自身生成的文本若包含这些词会被误判为失败；
// 启发式集中在 ClassifyOutcome 一处，替换策略时不需要动编排层。
var failureMarkers = []string{
	"error:",
	"failed:",
	"insufficient funds",
	"payment declined",
	"authentication failed",
	"unauthorized",
	"401",
	"403",
	"500",
	"501",
	"502",
	"503",
	"504",
	"/charge endpoint",
}

// paymentFailedMarker 操作成功但扣费失败的专用标记，优先于其它判定
const paymentFailedMarker = "[payment_failed]"

// Outcome 对响应文本的启发式判定
type Outcome struct {
	// FailureMarker 命中任一失败特征子串
	FailureMarker bool
	// PaymentFailed 命中扣费失败标记
	PaymentFailed bool
}

// ClassifyOutcome 对响应文本做大小写不敏感的子串扫描
func ClassifyOutcome(responseText string) Outcome {
	lower := strings.ToLower(responseText)
	out := Outcome{
		PaymentFailed: strings.Contains(lower, paymentFailedMarker),
	}
	for _, marker := range failureMarkers {
		if strings.Contains(lower, marker) {
			out.FailureMarker = true
			break
		}
	}
	return out
}

// Input 分类器的输入：对远端响应的统一视图
type Input struct {
	// HasResponse 响应为非空对象
	HasResponse bool
	// Text 尽力提取的响应文本
	Text string
	// ExplicitSuccess 顶层 success 字段（缺失为 nil）
	ExplicitSuccess *bool
	// PositiveSignal 明确的成功信号（success==true、agents.success==true 或非空 content）
	PositiveSignal bool
}

// BuildTrace 构造五段流程并给出底层操作是否成功的结论。
// 判定为三态：成功 / 操作成功但扣费失败（warning）/ 失败。
func BuildTrace(in Input, expectedCost decimal.Decimal) (Trace, bool) {
	now := time.Now()
	outcome := ClassifyOutcome(in.Text)

	// 前两段仅作展示：本服务不做独立鉴权与额度预检，信任远端已校验
	trace := Trace{
		{
			ID: "authentication", Label: "身份验证", Status: StatusSuccess,
			Timestamp: now, Details: "凭证已随调用传递", Cost: decimal.Zero,
		},
		{
			ID: "pre-authorization", Label: "扣费预授权", Status: StatusSuccess,
			Timestamp: now, Details: "由远端服务校验支付能力", Cost: decimal.Zero,
		},
	}

	mcpSuccess := in.HasResponse &&
		(in.PositiveSignal ||
			(!outcome.FailureMarker && !(in.ExplicitSuccess != nil && !*in.ExplicitSuccess)))

	execStep := Step{
		ID: "execution", Label: "执行与扣费", Timestamp: now,
		// 展示用成本：无论成败都显示本次调用的预期单价
		Cost: expectedCost,
	}
	if mcpSuccess {
		execStep.Status = StatusSuccess
		execStep.Details = "远端工具执行成功"
	} else {
		execStep.Status = StatusError
		execStep.Details = fmt.Sprintf("远端工具执行失败: %s", truncate(in.Text, 200))
	}
	trace = append(trace, execStep)

	// 扣费确认：专用标记优先于其它判定
	payStep := Step{ID: "payment-confirmation", Label: "扣费确认", Timestamp: now}
	switch {
	case outcome.PaymentFailed:
		payStep.Status = StatusWarning
		payStep.Details = "操作已完成，但扣费未成功"
		payStep.Cost = decimal.Zero
	case !mcpSuccess:
		payStep.Status = StatusError
		payStep.Details = "执行失败，未扣费"
		payStep.Cost = decimal.Zero
	default:
		payStep.Status = StatusSuccess
		payStep.Details = "扣费已确认"
		payStep.Cost = expectedCost
	}
	trace = append(trace, payStep)

	doneStep := Step{
		ID: "completion", Label: "完成", Timestamp: now, Cost: decimal.Zero,
	}
	if mcpSuccess {
		doneStep.Status = StatusSuccess
		doneStep.Details = "调用完成"
	} else {
		doneStep.Status = StatusError
		doneStep.Details = "调用失败"
	}
	if payStep.Status != StatusSuccess {
		doneStep.Details += "（扣费状态异常）"
	}
	trace = append(trace, doneStep)

	return trace, mcpSuccess
}

// ErrorStep 传输层失败时的单段失败标记：网关没有任何响应，
// 不合成完整五段流程，只向流程监控推送一条执行失败
func ErrorStep(errMsg string) Step {
	return Step{
		ID: "execution", Label: "执行与扣费", Status: StatusError,
		Timestamp: time.Now(), Details: truncate(errMsg, 200), Cost: decimal.Zero,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
