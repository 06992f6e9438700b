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
	"time"

	"github.com/shopspring/decimal"
)

// Status 流程步骤状态
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusSuccess    Status = "success"
	StatusWarning    Status = "warning"
	StatusError      Status = "error"
)

// Step 单条流程状态。临时值：每次调用新建，发给 UI 后即丢弃，不落库。
type Step struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Status    Status          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Details   string          `json:"details"`
	Cost      decimal.Decimal `json:"cost"`
}

// Trace 一次完整调用的五段流程。按请求显式构造与传递，
// 不使用任何进程级共享累加器，并发请求之间互不污染。
type Trace []Step

// Sink 接收流程步骤事件（如 WebSocket 推送）。实现必须对并发调用安全。
type Sink interface {
	Publish(invocationID string, step Step)
}

// NopSink 丢弃事件
type NopSink struct{}

func (NopSink) Publish(string, Step) {}
