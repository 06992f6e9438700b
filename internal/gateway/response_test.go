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

package gateway

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func mustParse(t *testing.T, raw string) View {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("bad test payload: %v", err)
	}
	return ParseResponse(m)
}

func TestParseResponse_ContentEnvelope(t *testing.T) {
	v := mustParse(t, `{"content": [{"type": "text", "text": "Agent created"}]}`)
	if v.Shape != ShapeContent {
		t.Fatalf("Shape: %s", v.Shape)
	}
	if v.Text != "Agent created" {
		t.Errorf("Text: %q", v.Text)
	}
	if !v.PositiveSignal {
		t.Error("non-empty content array should be a positive signal")
	}
}

func TestParseResponse_EmptyContentArray(t *testing.T) {
	v := mustParse(t, `{"content": []}`)
	if v.Shape != ShapeContent {
		t.Fatalf("Shape: %s", v.Shape)
	}
	if v.PositiveSignal {
		t.Error("empty content array is not a positive signal")
	}
	if v.Text == "" {
		t.Error("Text should fall back to stringified object")
	}
}

func TestParseResponse_Flat(t *testing.T) {
	v := mustParse(t, `{"success": true, "cost": 0.05, "agent": {"id": 42}}`)
	if v.Shape != ShapeFlat {
		t.Fatalf("Shape: %s", v.Shape)
	}
	if v.ExplicitSuccess == nil || !*v.ExplicitSuccess || !v.PositiveSignal {
		t.Errorf("success=true should be explicit + positive: %+v", v)
	}
	if v.Cost == nil || !v.Cost.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("Cost: %v", v.Cost)
	}
}

func TestParseResponse_FlatError(t *testing.T) {
	v := mustParse(t, `{"success": false, "error": "unauthorized"}`)
	if v.ExplicitSuccess == nil || *v.ExplicitSuccess {
		t.Errorf("ExplicitSuccess: %v", v.ExplicitSuccess)
	}
	if v.Text != "unauthorized" {
		t.Errorf("Text should fall back to error field: %q", v.Text)
	}
	if v.PositiveSignal {
		t.Error("success=false must not be positive")
	}
}

func TestParseResponse_MessageBeatsError(t *testing.T) {
	v := mustParse(t, `{"message": "done", "error": "ignored"}`)
	if v.Text != "done" {
		t.Errorf("message should win over error: %q", v.Text)
	}
}

func TestParseResponse_NestedAgentsSuccess(t *testing.T) {
	v := mustParse(t, `{"success": false, "agents": {"success": true}}`)
	if !v.PositiveSignal {
		t.Error("agents.success=true should be a positive signal")
	}
}

func TestParseResponse_JSONRPCUnwrap(t *testing.T) {
	v := mustParse(t, `{"jsonrpc": "2.0", "id": 1, "result": {"content": [{"type": "text", "text": "ok"}]}}`)
	if v.Shape != ShapeJSONRPC {
		t.Fatalf("Shape: %s", v.Shape)
	}
	if v.Text != "ok" || !v.PositiveSignal {
		t.Errorf("inner envelope should be parsed: %+v", v)
	}
}

func TestParseResponse_Opaque(t *testing.T) {
	v := mustParse(t, `{"foo": "bar"}`)
	if v.Shape != ShapeOpaque {
		t.Fatalf("Shape: %s", v.Shape)
	}
	if v.Text == "" {
		t.Error("opaque shape should stringify the whole object")
	}
	if v.PositiveSignal || v.ExplicitSuccess != nil || v.Cost != nil {
		t.Errorf("opaque shape should carry no signals: %+v", v)
	}
}
