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

package http

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"agent-console/internal/agents"
	"agent-console/internal/gateway"
	"agent-console/internal/ledger"
	"agent-console/internal/orchestrator"
	"agent-console/internal/tools"
	"agent-console/pkg/log"
	"agent-console/pkg/metrics"
)

// Handler HTTP 处理器
type Handler struct {
	orch        *orchestrator.Orchestrator
	pricing     *orchestrator.PricingService
	ledger      ledger.Store
	agents      agents.Store
	registry    *tools.Registry
	logger      *log.Logger
	demoUserID  string
	apiKey      string
	paymentMode string
}

// Options Handler 依赖
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Pricing      *orchestrator.PricingService
	Ledger       ledger.Store
	Agents       agents.Store
	Registry     *tools.Registry
	Logger       *log.Logger
	// DemoUserID 未带 userId 的请求回退到演示用户
	DemoUserID string
	// APIKey 透传定价查询用的远端凭证
	APIKey string
	// PaymentMode 随每次调用显式下发的计费通道标识
	PaymentMode string
}

// NewHandler 创建 HTTP 处理器
func NewHandler(opts Options) *Handler {
	return &Handler{
		orch:        opts.Orchestrator,
		pricing:     opts.Pricing,
		ledger:      opts.Ledger,
		agents:      opts.Agents,
		registry:    opts.Registry,
		logger:      opts.Logger,
		demoUserID:  opts.DemoUserID,
		apiKey:      opts.APIKey,
		paymentMode: opts.PaymentMode,
	}
}

// userID 取请求中的 userId，缺失时回退到演示用户
func (h *Handler) userID(v string) string {
	if v != "" {
		return v
	}
	return h.demoUserID
}

// HealthCheck 健康检查
// GET /api/health
func (h *Handler) HealthCheck(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"service":   "agent-console",
	})
}

// SystemMetrics Prometheus 文本格式指标
// GET /api/system/metrics
func (h *Handler) SystemMetrics(_ context.Context, ctx *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "采集指标失败"})
		return
	}
	ctx.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}

// ListTools 列出已注册工具及参数形状（供 UI 渲染表单）
// GET /api/tools
func (h *Handler) ListTools(_ context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, map[string]any{"tools": h.registry.List()})
}

// invokeRequest POST /api/tools/:toolName 请求体
type invokeRequest struct {
	UserID    string         `json:"userId"`
	AgentID   *int64         `json:"agentId"`
	Arguments map[string]any `json:"arguments"`
}

// InvokeTool 调用远端工具
// POST /api/tools/:toolName
//
// 传输成功时固定返回 200，底层操作成败由 atxpFlow 表达；
// 传输失败（网关错误）返回 500 与错误文本。
func (h *Handler) InvokeTool(c context.Context, ctx *app.RequestContext) {
	toolName := ctx.Param("toolName")
	if toolName == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "toolName is required"})
		return
	}

	var req invokeRequest
	if len(ctx.Request.Body()) > 0 {
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体不是合法 JSON"})
			return
		}
	}
	if req.Arguments == nil {
		req.Arguments = map[string]any{}
	}

	result, err := h.orch.Invoke(c, orchestrator.InvokeRequest{
		UserID:      h.userID(req.UserID),
		AgentID:     req.AgentID,
		ToolName:    toolName,
		Arguments:   req.Arguments,
		PaymentMode: h.paymentMode,
	})
	if err != nil {
		var vErr *orchestrator.ValidationError
		if errors.As(err, &vErr) {
			ctx.JSON(consts.StatusBadRequest, map[string]any{
				"error":   vErr.Error(),
				"missing": vErr.Missing,
			})
			return
		}
		var gwErr *gateway.GatewayError
		if errors.As(err, &gwErr) {
			ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": gwErr.Error()})
			return
		}
		hlog.CtxErrorf(c, "invoke %s failed: %v", toolName, err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(consts.StatusOK, result)
}

// GetUsage 用量查询与汇总
// GET /api/usage?userId=&startDate=&endDate=
func (h *Handler) GetUsage(c context.Context, ctx *app.RequestContext) {
	userID := h.userID(ctx.Query("userId"))

	start, err := parseDateBound(ctx.Query("startDate"), false)
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "startDate 格式无效"})
		return
	}
	end, err := parseDateBound(ctx.Query("endDate"), true)
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "endDate 格式无效"})
		return
	}

	records, err := h.ledger.ListByUser(c, userID, start, end)
	if err != nil {
		h.logger.Error("用量查询失败", "user", userID, "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "用量查询失败"})
		return
	}
	ctx.JSON(consts.StatusOK, ledger.BuildReport(records))
}

// GetPricing 透传远端定价
// GET /api/pricing?userId=
func (h *Handler) GetPricing(c context.Context, ctx *app.RequestContext) {
	userID := h.userID(ctx.Query("userId"))
	resp, err := h.pricing.Fetch(c, userID, h.apiKey)
	if err != nil {
		h.logger.Error("定价查询失败", "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "定价查询失败"})
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

// parseDateBound 解析日期参数：支持 2006-01-02 与 RFC3339。
// endOfDay 为 true 且仅给出日期时取当天末尾，保证闭区间语义
func parseDateBound(v string, endOfDay bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
