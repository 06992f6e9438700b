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
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store 用量账本存储。只追加、只读取：接口上不存在更新或删除。
type Store interface {
	// Append 写入一条记录，分配 ID 与 CreatedAt（未设置时）
	Append(ctx context.Context, rec *UsageRecord) error

	// ListByUser 返回 userID 在 [start, end] 闭区间内的记录（按 CreatedAt 升序）。
	// start/end 为零值时对应边界不限。
	ListByUser(ctx context.Context, userID string, start, end time.Time) ([]UsageRecord, error)
}

// Report 用量汇总
type Report struct {
	TotalCost         decimal.Decimal `json:"totalCost"`
	TotalActions      int             `json:"totalActions"`
	SuccessfulActions int             `json:"successfulActions"`
	FailedActions     int             `json:"failedActions"`
	Usage             []UsageRecord   `json:"usage"`
}

// BuildReport 汇总记录：总成本按定点小数求和
func BuildReport(records []UsageRecord) Report {
	r := Report{
		TotalCost: decimal.Zero,
		Usage:     records,
	}
	if records == nil {
		r.Usage = []UsageRecord{}
	}
	for _, rec := range records {
		r.TotalActions++
		r.TotalCost = r.TotalCost.Add(rec.Cost)
		switch rec.Status {
		case StatusSuccess:
			r.SuccessfulActions++
		case StatusError:
			r.FailedActions++
		}
	}
	return r
}

// inRange CreatedAt 是否落在 [start, end] 闭区间内
func inRange(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}
