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

	"github.com/shopspring/decimal"
)

// Shape 远端响应的已知形状。远端服务在多次集成迭代中返回过不同报文，
// 这里按固定优先级逐个尝试，而不是在编排层散落 if 判断。
type Shape string

const (
	// ShapeJSONRPC {jsonrpc, result: ...} 包裹
	ShapeJSONRPC Shape = "jsonrpc"
	// ShapeContent MCP 内容信封 {content: [{type, text}]}
	ShapeContent Shape = "content"
	// ShapeFlat 扁平对象 {success, cost, message/error, ...}
	ShapeFlat Shape = "flat"
	// ShapeOpaque 未识别形状，整体字符串化
	ShapeOpaque Shape = "opaque"
)

// View 对任意形状响应的统一只读视图，供结果分类与成本提取使用
type View struct {
	Shape Shape
	// Text 尽力提取的响应文本：content[0].text > message > error > 整体字符串化
	Text string
	// ExplicitSuccess 显式 success 字段（缺失为 nil）
	ExplicitSuccess *bool
	// PositiveSignal 明确的成功信号：success==true、agents.success==true 或非空 content 数组
	PositiveSignal bool
	// Cost 响应携带的数值 cost 字段（缺失为 nil）
	Cost *decimal.Decimal
}

// ParseResponse 按优先级解析：JSON-RPC 包裹 > 内容信封 > 扁平对象 > 整体字符串化
func ParseResponse(resp map[string]any) View {
	if v, ok := parseJSONRPC(resp); ok {
		return v
	}
	if v, ok := parseContentEnvelope(resp); ok {
		return v
	}
	if v, ok := parseFlat(resp); ok {
		return v
	}
	return View{Shape: ShapeOpaque, Text: stringify(resp)}
}

// parseJSONRPC 解开 {result: ...} 包裹并递归解析内层对象
func parseJSONRPC(resp map[string]any) (View, bool) {
	if _, ok := resp["jsonrpc"]; !ok {
		return View{}, false
	}
	inner, ok := resp["result"].(map[string]any)
	if !ok {
		return View{}, false
	}
	v := ParseResponse(inner)
	v.Shape = ShapeJSONRPC
	return v, true
}

// parseContentEnvelope MCP 内容信封：文本取 content[0].text，非空 content 即为正向信号
func parseContentEnvelope(resp map[string]any) (View, bool) {
	raw, ok := resp["content"].([]any)
	if !ok {
		return View{}, false
	}
	v := View{Shape: ShapeContent, PositiveSignal: len(raw) > 0}
	if len(raw) > 0 {
		if item, ok := raw[0].(map[string]any); ok {
			if text, ok := item["text"].(string); ok {
				v.Text = text
			}
		}
	}
	if v.Text == "" {
		v.Text = stringify(resp)
	}
	v.ExplicitSuccess = boolField(resp, "success")
	if v.ExplicitSuccess != nil && *v.ExplicitSuccess {
		v.PositiveSignal = true
	}
	v.Cost = costField(resp)
	return v, true
}

// parseFlat 扁平对象：success/cost/message/error 等顶层字段
func parseFlat(resp map[string]any) (View, bool) {
	_, hasSuccess := resp["success"]
	_, hasMessage := resp["message"]
	_, hasError := resp["error"]
	_, hasCost := resp["cost"]
	if !hasSuccess && !hasMessage && !hasError && !hasCost {
		return View{}, false
	}
	v := View{Shape: ShapeFlat}
	if msg, ok := resp["message"].(string); ok && msg != "" {
		v.Text = msg
	} else if errText, ok := resp["error"].(string); ok && errText != "" {
		v.Text = errText
	} else {
		v.Text = stringify(resp)
	}
	v.ExplicitSuccess = boolField(resp, "success")
	if v.ExplicitSuccess != nil && *v.ExplicitSuccess {
		v.PositiveSignal = true
	}
	// 嵌套的 agents.success==true 也算正向信号
	if agents, ok := resp["agents"].(map[string]any); ok {
		if b := boolField(agents, "success"); b != nil && *b {
			v.PositiveSignal = true
		}
	}
	v.Cost = costField(resp)
	return v, true
}

func boolField(m map[string]any, key string) *bool {
	if b, ok := m[key].(bool); ok {
		return &b
	}
	return nil
}

func costField(m map[string]any) *decimal.Decimal {
	f, ok := m["cost"].(float64)
	if !ok {
		return nil
	}
	d := decimal.NewFromFloat(f).Round(4)
	return &d
}

func stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
