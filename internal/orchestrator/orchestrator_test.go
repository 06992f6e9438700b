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
	"errors"
	"testing"
	"time"

	"agent-console/internal/flow"
	"agent-console/internal/gateway"
	"agent-console/internal/ledger"
	"agent-console/internal/storage/cache"
	"agent-console/internal/tools"
	"agent-console/pkg/log"
)

// fakeGateway 按工具名返回预置响应
type fakeGateway struct {
	responses map[string]map[string]any
	err       error
	calls     []string
	lastArgs  map[string]any
}

func (f *fakeGateway) Call(_ context.Context, toolName string, args map[string]any, _ string) (map[string]any, error) {
	f.calls = append(f.calls, toolName)
	f.lastArgs = args
	if toolName != "get_pricing" && f.err != nil {
		return nil, f.err
	}
	resp, ok := f.responses[toolName]
	if !ok {
		return nil, &gateway.GatewayError{StatusCode: 404, Body: "unknown tool"}
	}
	return resp, nil
}

// recordSink 收集推送的流程步骤
type recordSink struct {
	steps []flow.Step
}

func (s *recordSink) Publish(_ string, step flow.Step) {
	s.steps = append(s.steps, step)
}

func newTestOrchestrator(t *testing.T, gw *fakeGateway, sink flow.Sink) (*Orchestrator, *ledger.MemStore) {
	t.Helper()
	logger, err := log.NewLogger(nil)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	registry := tools.NewRegistry()
	tools.RegisterBuiltin(registry)
	store := ledger.NewMemStore()
	pricing := NewPricingService(gw, cache.NewMemoryStore(), time.Minute, logger)
	return New(Options{
		Registry: registry,
		Gateway:  gw,
		Pricing:  pricing,
		Ledger:   store,
		Sink:     sink,
		Logger:   logger,
		APIKey:   "test-key",
	}), store
}

func TestInvokeSuccessAppendsOneRecord(t *testing.T) {
	gw := &fakeGateway{responses: map[string]map[string]any{
		"get_pricing": {"pricing": map[string]any{"chat_with_agent": 0.05}},
		"chat_with_agent": {
			"success": true,
			"message": "agent replied",
			"cost":    0.05,
		},
	}}
	sink := &recordSink{}
	o, store := newTestOrchestrator(t, gw, sink)

	res, err := o.Invoke(context.Background(), InvokeRequest{
		UserID:   "demo-user",
		ToolName: "chat_with_agent",
		Arguments: map[string]any{
			"agentId": 1,
			"message": "hello",
		},
	})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected transport success")
	}
	if res.Cost.String() != "0.05" {
		t.Fatalf("cost = %s, want 0.05", res.Cost.String())
	}
	if len(res.Flow) != 5 {
		t.Fatalf("flow steps = %d, want 5", len(res.Flow))
	}
	for _, step := range res.Flow {
		if step.Status != flow.StatusSuccess {
			t.Fatalf("step %s status = %s, want success", step.ID, step.Status)
		}
	}
	if len(sink.steps) != 5 {
		t.Fatalf("published steps = %d, want 5", len(sink.steps))
	}

	records, err := store.ListByUser(context.Background(), "demo-user", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want exactly 1", len(records))
	}
	rec := records[0]
	if rec.Status != ledger.StatusSuccess {
		t.Fatalf("record status = %s, want success", rec.Status)
	}
	if rec.Cost.String() != "0.05" {
		t.Fatalf("record cost = %s, want 0.05", rec.Cost.String())
	}
	if rec.ExecutionTimeMs == nil {
		t.Fatalf("record should carry execution time")
	}
	if rec.Response == nil {
		t.Fatalf("record should carry the response snapshot")
	}
}

func TestInvokePaymentFailedWarning(t *testing.T) {
	gw := &fakeGateway{responses: map[string]map[string]any{
		"get_pricing": {"pricing": map[string]any{"chat_with_agent": 0.05}},
		"chat_with_agent": {
			"content": []any{
				map[string]any{"type": "text", "text": "reply sent [PAYMENT_FAILED] settlement declined"},
			},
		},
	}}
	o, store := newTestOrchestrator(t, gw, nil)

	res, err := o.Invoke(context.Background(), InvokeRequest{
		UserID:    "demo-user",
		ToolName:  "chat_with_agent",
		Arguments: map[string]any{"agentId": 1, "message": "hi"},
	})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("transport should succeed")
	}
	if !res.Cost.IsZero() {
		t.Fatalf("cost = %s, want 0 when payment failed", res.Cost.String())
	}
	if res.Flow[3].Status != flow.StatusWarning {
		t.Fatalf("payment step status = %s, want warning", res.Flow[3].Status)
	}
	if res.Flow[4].Status != flow.StatusSuccess {
		t.Fatalf("completion step status = %s, want success", res.Flow[4].Status)
	}

	records, _ := store.ListByUser(context.Background(), "demo-user", time.Time{}, time.Time{})
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Status != ledger.StatusSuccess {
		t.Fatalf("operation succeeded, record status = %s, want success", records[0].Status)
	}
	if !records[0].Cost.IsZero() {
		t.Fatalf("record cost = %s, want 0", records[0].Cost.String())
	}
}

func TestInvokeTransportErrorRecordsAndReturns500Path(t *testing.T) {
	gw := &fakeGateway{
		responses: map[string]map[string]any{
			"get_pricing": {"pricing": map[string]any{"chat_with_agent": 0.05}},
		},
		err: &gateway.GatewayError{StatusCode: 503, Body: "upstream down"},
	}
	sink := &recordSink{}
	o, store := newTestOrchestrator(t, gw, sink)

	res, err := o.Invoke(context.Background(), InvokeRequest{
		UserID:    "demo-user",
		ToolName:  "chat_with_agent",
		Arguments: map[string]any{"agentId": 1, "message": "hi"},
	})
	if err == nil {
		t.Fatalf("expected transport error")
	}
	var gwErr *gateway.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("error type = %T, want *gateway.GatewayError", err)
	}
	if res.Success {
		t.Fatalf("transport failure must not report success")
	}
	if len(res.Flow) != 1 || res.Flow[0].Status != flow.StatusError {
		t.Fatalf("expected a single error flow step, got %+v", res.Flow)
	}
	if len(sink.steps) != 1 {
		t.Fatalf("published steps = %d, want 1", len(sink.steps))
	}

	records, _ := store.ListByUser(context.Background(), "demo-user", time.Time{}, time.Time{})
	if len(records) != 1 {
		t.Fatalf("records = %d, want exactly 1", len(records))
	}
	rec := records[0]
	if rec.Status != ledger.StatusError {
		t.Fatalf("record status = %s, want error", rec.Status)
	}
	if rec.Response != nil {
		t.Fatalf("transport failure must record a null response")
	}
	if rec.ErrorMessage == nil || *rec.ErrorMessage == "" {
		t.Fatalf("raw error message must be recorded")
	}
	if !rec.Cost.IsZero() {
		t.Fatalf("record cost = %s, want 0", rec.Cost.String())
	}
}

func TestInvokeValidationErrorSkipsLedger(t *testing.T) {
	gw := &fakeGateway{responses: map[string]map[string]any{}}
	o, store := newTestOrchestrator(t, gw, nil)

	_, err := o.Invoke(context.Background(), InvokeRequest{
		UserID:    "demo-user",
		ToolName:  "chat_with_agent",
		Arguments: map[string]any{"agentId": 1}, // message 缺失
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if len(vErr.Missing) != 1 || vErr.Missing[0] != "message" {
		t.Fatalf("missing = %v, want [message]", vErr.Missing)
	}
	if store.Len() != 0 {
		t.Fatalf("validation failure must not write to the ledger")
	}
	if len(gw.calls) != 0 {
		t.Fatalf("validation failure must not reach the gateway")
	}
}

func TestInvokeSemanticFailureZeroCost(t *testing.T) {
	gw := &fakeGateway{responses: map[string]map[string]any{
		"get_pricing": {"pricing": map[string]any{"get_agent": 0.01}},
		"get_agent": {
			"success": false,
			"error":   "unauthorized",
		},
	}}
	o, store := newTestOrchestrator(t, gw, nil)

	res, err := o.Invoke(context.Background(), InvokeRequest{
		UserID:    "demo-user",
		ToolName:  "get_agent",
		Arguments: map[string]any{"agentId": 7},
	})
	if err != nil {
		t.Fatalf("semantic failure still returns transport success: %v", err)
	}
	if !res.Success {
		t.Fatalf("transport succeeded, Success should be true")
	}
	if res.Flow[2].Status != flow.StatusError {
		t.Fatalf("execution step status = %s, want error", res.Flow[2].Status)
	}

	records, _ := store.ListByUser(context.Background(), "demo-user", time.Time{}, time.Time{})
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Status != ledger.StatusError {
		t.Fatalf("record status = %s, want error", records[0].Status)
	}
	if records[0].ErrorMessage == nil {
		t.Fatalf("error message should be recorded")
	}
}

func TestInvokePaymentModePassedThrough(t *testing.T) {
	gw := &fakeGateway{responses: map[string]map[string]any{
		"get_pricing": {"pricing": map[string]any{"list_agents": 0.0}},
		"list_agents": {"success": true, "message": "ok"},
	}}
	o, _ := newTestOrchestrator(t, gw, nil)

	_, err := o.Invoke(context.Background(), InvokeRequest{
		UserID:      "demo-user",
		ToolName:    "list_agents",
		PaymentMode: "atxp",
	})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if gw.lastArgs["paymentMode"] != "atxp" {
		t.Fatalf("paymentMode not passed to gateway: %v", gw.lastArgs)
	}
}
