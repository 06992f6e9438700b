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

package ledger

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Status 账本记录状态
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	// StatusPending 保留给未来的异步调用；当前没有任何写入方会产生该状态
	StatusPending Status = "pending"
)

// UsageRecord 一次工具调用的账本行。写入后不可变（审计轨迹，无更新/删除操作）。
// 成本使用定点小数（4 位小数），避免大量小额累加时的二进制浮点漂移。
type UsageRecord struct {
	ID              int64           `json:"id"`
	UserID          string          `json:"userId"`
	ToolName        string          `json:"toolName"`
	AgentID         *int64          `json:"agentId,omitempty"`
	Cost            decimal.Decimal `json:"cost"`
	TokensUsed      *int            `json:"tokensUsed,omitempty"`
	ExecutionTimeMs *int            `json:"executionTimeMs,omitempty"`
	Status          Status          `json:"status"`
	ErrorMessage    *string         `json:"errorMessage,omitempty"`
	Request         json.RawMessage `json:"request,omitempty"`
	Response        json.RawMessage `json:"response,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// CostScale 成本的定点小数位数
const CostScale = 4
