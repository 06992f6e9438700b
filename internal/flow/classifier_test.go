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
	"testing"

	"github.com/shopspring/decimal"
)

func boolPtr(b bool) *bool { return &b }

func TestClassifyOutcome_FailureMarkers(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Error: something broke", true},
		{"request FAILED: timeout", true},
		{"insufficient funds in wallet", true},
		{"payment declined by issuer", true},
		{"authentication failed for key", true},
		{"Unauthorized", true},
		{"upstream returned 503", true},
		{"POST to /charge endpoint rejected", true},
		{"Agent created successfully", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := ClassifyOutcome(tc.text).FailureMarker; got != tc.want {
			t.Errorf("ClassifyOutcome(%q).FailureMarker = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestClassifyOutcome_PaymentMarkerCaseInsensitive(t *testing.T) {
	if !ClassifyOutcome("done [payment_failed] later").PaymentFailed {
		t.Error("lowercase marker should match")
	}
	if !ClassifyOutcome("done [PAYMENT_FAILED] later").PaymentFailed {
		t.Error("uppercase marker should match")
	}
	if ClassifyOutcome("payment failed").PaymentFailed {
		t.Error("marker requires bracket form")
	}
}

func TestBuildTrace_AlwaysFiveSteps(t *testing.T) {
	trace, _ := BuildTrace(Input{HasResponse: true, Text: "ok", PositiveSignal: true}, decimal.Zero)
	if len(trace) != 5 {
		t.Fatalf("trace length: got %d, want 5", len(trace))
	}
	wantIDs := []string{"authentication", "pre-authorization", "execution", "payment-confirmation", "completion"}
	for i, id := range wantIDs {
		if trace[i].ID != id {
			t.Errorf("trace[%d].ID = %q, want %q", i, trace[i].ID, id)
		}
	}
	// 前两段永远是展示性的成功
	if trace[0].Status != StatusSuccess || trace[1].Status != StatusSuccess {
		t.Errorf("informational steps must be success: %s %s", trace[0].Status, trace[1].Status)
	}
}

func TestBuildTrace_PaymentFailedMarker(t *testing.T) {
	// 操作成功但扣费失败：step 4 warning、step 5 success、扣费清零
	cost := decimal.RequireFromString("0.05")
	trace, mcpSuccess := BuildTrace(Input{
		HasResponse:    true,
		Text:           "Agent created. [PAYMENT_FAILED] insufficient balance",
		PositiveSignal: true,
	}, cost)
	if !mcpSuccess {
		t.Fatal("operation should count as succeeded")
	}
	if trace[3].Status != StatusWarning {
		t.Errorf("trace[3].Status = %s, want warning", trace[3].Status)
	}
	if !trace[3].Cost.IsZero() {
		t.Errorf("warning step cost must be zeroed, got %s", trace[3].Cost)
	}
	if trace[4].Status != StatusSuccess {
		t.Errorf("trace[4].Status = %s, want success", trace[4].Status)
	}
}

func TestBuildTrace_ExplicitFailure(t *testing.T) {
	trace, mcpSuccess := BuildTrace(Input{
		HasResponse:     true,
		Text:            "unauthorized",
		ExplicitSuccess: boolPtr(false),
	}, decimal.RequireFromString("0.01"))
	if mcpSuccess {
		t.Fatal("success=false must classify as failed")
	}
	if trace[2].Status != StatusError || trace[4].Status != StatusError {
		t.Errorf("steps 3 and 5 must be error: %s %s", trace[2].Status, trace[4].Status)
	}
	if trace[3].Status != StatusError {
		t.Errorf("payment step after failed execution must be error: %s", trace[3].Status)
	}
}

func TestBuildTrace_PositiveSignalOverridesMarker(t *testing.T) {
	// 显式成功信号优先于文本中的失败子串
	_, mcpSuccess := BuildTrace(Input{
		HasResponse:     true,
		Text:            "processed 401 records",
		ExplicitSuccess: boolPtr(true),
		PositiveSignal:  true,
	}, decimal.Zero)
	if !mcpSuccess {
		t.Error("explicit positive signal should win over marker scan")
	}
}

func TestBuildTrace_MarkerFailsNeutralResponse(t *testing.T) {
	// 无显式信号时命中失败子串即判失败（启发式的既定行为）
	_, mcpSuccess := BuildTrace(Input{HasResponse: true, Text: "error: boom"}, decimal.Zero)
	if mcpSuccess {
		t.Error("failure marker without positive signal should classify as failed")
	}
}

func TestBuildTrace_NeutralTextSucceeds(t *testing.T) {
	// 有响应、无失败子串、success 未显式为 false：视为成功
	_, mcpSuccess := BuildTrace(Input{HasResponse: true, Text: "all good"}, decimal.Zero)
	if !mcpSuccess {
		t.Error("neutral response should classify as succeeded")
	}
}

func TestBuildTrace_NoResponseFails(t *testing.T) {
	_, mcpSuccess := BuildTrace(Input{HasResponse: false}, decimal.Zero)
	if mcpSuccess {
		t.Error("missing response must never classify as succeeded")
	}
}

func TestBuildTrace_ExecutionCostAlwaysExpected(t *testing.T) {
	cost := decimal.RequireFromString("0.1")
	trace, _ := BuildTrace(Input{HasResponse: true, Text: "error: no"}, cost)
	if !trace[2].Cost.Equal(cost) {
		t.Errorf("execution step shows expected cost regardless of outcome: %s", trace[2].Cost)
	}
	if trace[4].Cost.IsZero() == false {
		t.Errorf("completion step cost is always zero: %s", trace[4].Cost)
	}
}

func TestErrorStep(t *testing.T) {
	step := ErrorStep("dial tcp: connection refused")
	if step.ID != "execution" || step.Status != StatusError {
		t.Errorf("ErrorStep: %+v", step)
	}
	if !step.Cost.IsZero() {
		t.Errorf("transport failure has zero cost, got %s", step.Cost)
	}
}
