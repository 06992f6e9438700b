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

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"agent-console/internal/flow"
	"agent-console/internal/gateway"
	"agent-console/internal/ledger"
	"agent-console/internal/tools"
	"agent-console/pkg/log"
	"agent-console/pkg/metrics"
	"agent-console/pkg/tracing"
)

// GatewayClient 远端工具服务客户端（internal/gateway.Client 实现）
type GatewayClient interface {
	Call(ctx context.Context, toolName string, args map[string]any, apiKey string) (map[string]any, error)
}

// ValidationError 参数校验失败：缺失必填参数。此类请求从未离开本服务，
// 不产生账本行，HTTP 层映射为 400
type ValidationError struct {
	ToolName string
	Missing  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tool %s: missing required arguments: %s", e.ToolName, strings.Join(e.Missing, ", "))
}

// InvokeRequest 一次工具调用请求
type InvokeRequest struct {
	UserID    string
	AgentID   *int64
	ToolName  string
	Arguments map[string]any
	// PaymentMode 支付方式标识，随调用显式下发给远端，不读全局状态
	PaymentMode string
}

// InvokeResult 一次调用的最终结果。Success 表示传输层成功（HTTP 200 路径），
// 底层操作是否成功由 Flow 中的分类结论表达
type InvokeResult struct {
	Success         bool            `json:"success"`
	Response        map[string]any  `json:"response,omitempty"`
	Cost            decimal.Decimal `json:"cost"`
	ExecutionTimeMs int             `json:"executionTimeMs"`
	Flow            flow.Trace      `json:"atxpFlow"`
}

// Orchestrator 调用编排：校验 → 定价 → 网关调用 → 结果分类 → 记账。
// 记账先于返回：响应未写回前账本行必须已持久化，进程崩溃时宁可多记不可漏记
type Orchestrator struct {
	registry *tools.Registry
	gateway  GatewayClient
	pricing  *PricingService
	ledger   ledger.Store
	sink     flow.Sink
	logger   *log.Logger
	apiKey   string
}

// Options 编排器依赖
type Options struct {
	Registry *tools.Registry
	Gateway  GatewayClient
	Pricing  *PricingService
	Ledger   ledger.Store
	Sink     flow.Sink
	Logger   *log.Logger
	// APIKey 调用远端服务的凭证（经 pkg/secrets 解析后传入）
	APIKey string
}

// New 创建编排器；Sink 为 nil 时使用 NopSink
func New(opts Options) *Orchestrator {
	sink := opts.Sink
	if sink == nil {
		sink = flow.NopSink{}
	}
	return &Orchestrator{
		registry: opts.Registry,
		gateway:  opts.Gateway,
		pricing:  opts.Pricing,
		ledger:   opts.Ledger,
		sink:     sink,
		logger:   opts.Logger,
		apiKey:   opts.APIKey,
	}
}

// Invoke 执行一次完整的工具调用。每次调用恰好产生一条账本行
// （校验失败除外：请求未离开本服务，不记账）。
func (o *Orchestrator) Invoke(ctx context.Context, req InvokeRequest) (InvokeResult, error) {
	if missing := o.registry.Validate(req.ToolName, req.Arguments); len(missing) > 0 {
		return InvokeResult{}, &ValidationError{ToolName: req.ToolName, Missing: missing}
	}

	invocationID := uuid.NewString()
	ctx, span := tracing.StartInvocationSpan(ctx, invocationID, req.ToolName, req.UserID)
	defer span.End()

	expectedCost := o.pricing.ExpectedCost(ctx, req.ToolName, req.UserID, o.apiKey)

	args := req.Arguments
	if req.PaymentMode != "" {
		args = make(map[string]any, len(req.Arguments)+1)
		for k, v := range req.Arguments {
			args[k] = v
		}
		args["paymentMode"] = req.PaymentMode
	}

	gwCtx, gwSpan := tracing.StartGatewaySpan(ctx, req.ToolName)
	start := time.Now()
	resp, err := o.gateway.Call(gwCtx, req.ToolName, args, o.apiKey)
	elapsedMs := int(time.Since(start).Milliseconds())
	gwSpan.End()

	metrics.InvocationDuration.WithLabelValues(req.ToolName).Observe(time.Since(start).Seconds())

	if err != nil {
		return o.finishTransportError(ctx, req, invocationID, elapsedMs, err)
	}
	return o.finishClassified(ctx, req, invocationID, elapsedMs, expectedCost, resp)
}

// finishTransportError 网关传输层失败：不走分类器，账本记 error、响应为空，
// 原始错误文本入账，HTTP 层据此返回 500
func (o *Orchestrator) finishTransportError(ctx context.Context, req InvokeRequest, invocationID string, elapsedMs int, callErr error) (InvokeResult, error) {
	errMsg := callErr.Error()
	step := flow.ErrorStep(errMsg)
	o.sink.Publish(invocationID, step)

	rec := &ledger.UsageRecord{
		UserID:          req.UserID,
		ToolName:        req.ToolName,
		AgentID:         req.AgentID,
		Cost:            decimal.Zero,
		ExecutionTimeMs: &elapsedMs,
		Status:          ledger.StatusError,
		ErrorMessage:    &errMsg,
		Request:         o.requestSnapshot(req),
	}
	if err := o.ledger.Append(ctx, rec); err != nil {
		o.logger.Error("账本写入失败", "invocation", invocationID, "tool", req.ToolName, "error", err)
		return InvokeResult{}, fmt.Errorf("append usage record: %w", err)
	}

	metrics.InvocationTotal.WithLabelValues(req.ToolName, string(ledger.StatusError)).Inc()
	metrics.OutcomeTotal.WithLabelValues("error").Inc()
	metrics.GatewayErrorTotal.WithLabelValues(req.ToolName).Inc()
	o.logger.Error("工具调用传输失败", "invocation", invocationID, "tool", req.ToolName, "error", callErr)

	return InvokeResult{
		ExecutionTimeMs: elapsedMs,
		Flow:            flow.Trace{step},
	}, callErr
}

// finishClassified 传输成功：解析响应、构造五段流程、定成本、记账
func (o *Orchestrator) finishClassified(ctx context.Context, req InvokeRequest, invocationID string, elapsedMs int, expectedCost decimal.Decimal, resp map[string]any) (InvokeResult, error) {
	view := gateway.ParseResponse(resp)
	trace, mcpSuccess := flow.BuildTrace(flow.Input{
		HasResponse:     len(resp) > 0,
		Text:            view.Text,
		ExplicitSuccess: view.ExplicitSuccess,
		PositiveSignal:  view.PositiveSignal,
	}, expectedCost)
	for _, step := range trace {
		o.sink.Publish(invocationID, step)
	}

	outcome := flow.ClassifyOutcome(view.Text)

	// 实际成本：响应自带 cost 优先，否则按定价表的预期单价；扣费失败记 0
	actualCost := expectedCost
	if view.Cost != nil {
		actualCost = *view.Cost
	}
	if outcome.PaymentFailed {
		actualCost = decimal.Zero
	}

	status := ledger.StatusSuccess
	if !mcpSuccess {
		status = ledger.StatusError
		actualCost = decimal.Zero
	}

	rec := &ledger.UsageRecord{
		UserID:          req.UserID,
		ToolName:        req.ToolName,
		AgentID:         req.AgentID,
		Cost:            actualCost,
		TokensUsed:      tokensUsed(resp),
		ExecutionTimeMs: &elapsedMs,
		Status:          status,
		Request:         o.requestSnapshot(req),
		Response:        snapshot(resp),
	}
	if !mcpSuccess {
		errMsg := view.Text
		rec.ErrorMessage = &errMsg
	}
	if err := o.ledger.Append(ctx, rec); err != nil {
		o.logger.Error("账本写入失败", "invocation", invocationID, "tool", req.ToolName, "error", err)
		return InvokeResult{}, fmt.Errorf("append usage record: %w", err)
	}

	metrics.InvocationTotal.WithLabelValues(req.ToolName, string(status)).Inc()
	switch {
	case outcome.PaymentFailed:
		metrics.OutcomeTotal.WithLabelValues("payment_failed").Inc()
	case mcpSuccess:
		metrics.OutcomeTotal.WithLabelValues("success").Inc()
	default:
		metrics.OutcomeTotal.WithLabelValues("error").Inc()
	}
	if cost, _ := actualCost.Float64(); cost > 0 {
		metrics.UsageCostTotal.WithLabelValues(req.ToolName).Add(cost)
	}
	o.logger.Info("工具调用完成",
		"invocation", invocationID, "tool", req.ToolName, "user", req.UserID,
		"mcpSuccess", mcpSuccess, "cost", actualCost.String(), "elapsedMs", elapsedMs)

	return InvokeResult{
		Success:         true,
		Response:        resp,
		Cost:            actualCost,
		ExecutionTimeMs: elapsedMs,
		Flow:            trace,
	}, nil
}

// requestSnapshot 入账的请求快照：不含凭证（凭证由网关在出站时注入）
func (o *Orchestrator) requestSnapshot(req InvokeRequest) json.RawMessage {
	return snapshot(map[string]any{
		"toolName":  req.ToolName,
		"agentId":   req.AgentID,
		"arguments": req.Arguments,
	})
}

func snapshot(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// tokensUsed 尽力提取响应中的 token 用量
func tokensUsed(resp map[string]any) *int {
	for _, key := range []string{"tokensUsed", "tokens"} {
		if f, ok := resp[key].(float64); ok {
			n := int(f)
			return &n
		}
	}
	return nil
}
