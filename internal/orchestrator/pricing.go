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
	"time"

	"github.com/shopspring/decimal"

	"agent-console/internal/storage/cache"
	"agent-console/pkg/log"
)

const pricingCacheKey = "pricing:table"

// PricingService 定价来源：通过网关调用 get_pricing 拉取各工具单价，
// 短 TTL 缓存避免每次调用都多打一次远端
type PricingService struct {
	gateway GatewayClient
	cache   cache.Store
	ttl     time.Duration
	logger  *log.Logger
}

// NewPricingService 创建定价服务；ttl<=0 时默认 30s
func NewPricingService(gw GatewayClient, store cache.Store, ttl time.Duration, logger *log.Logger) *PricingService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PricingService{gateway: gw, cache: store, ttl: ttl, logger: logger}
}

// Fetch 拉取原始定价响应（GET /api/pricing 直接透传给 UI）
func (p *PricingService) Fetch(ctx context.Context, userID, apiKey string) (map[string]any, error) {
	return p.gateway.Call(ctx, "get_pricing", map[string]any{"userId": userID}, apiKey)
}

// ExpectedCost 查询工具预期单价。拿不到定价时返回 0 并继续：
// 定价缺失不应阻塞调用本身，实际成本仍可从响应的 cost 字段取到
func (p *PricingService) ExpectedCost(ctx context.Context, toolName, userID, apiKey string) decimal.Decimal {
	table := p.table(ctx, userID, apiKey)
	raw, ok := table[toolName]
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		p.logger.Warn("定价表中的单价无法解析", "tool", toolName, "value", raw)
		return decimal.Zero
	}
	return d.Round(4)
}

// table 返回 tool -> 单价（字符串形式，保持定点精度）的映射，带缓存
func (p *PricingService) table(ctx context.Context, userID, apiKey string) map[string]string {
	var cached map[string]string
	if err := p.cache.Get(ctx, pricingCacheKey, &cached); err == nil {
		return cached
	}

	resp, err := p.gateway.Call(ctx, "get_pricing", map[string]any{"userId": userID}, apiKey)
	if err != nil {
		p.logger.Warn("拉取定价失败", "error", err)
		return nil
	}
	table := parsePricing(resp)
	if len(table) > 0 {
		if err := p.cache.Set(ctx, pricingCacheKey, table, p.ttl); err != nil {
			p.logger.Warn("写入定价缓存失败", "error", err)
		}
	}
	return table
}

// parsePricing 兼容 {pricing: {tool: cost}} 与顶层 {tool: cost} 两种形状
func parsePricing(resp map[string]any) map[string]string {
	source := resp
	if nested, ok := resp["pricing"].(map[string]any); ok {
		source = nested
	}
	table := make(map[string]string)
	for tool, v := range source {
		f, ok := v.(float64)
		if !ok {
			continue
		}
		table[tool] = decimal.NewFromFloat(f).Round(4).String()
	}
	return table
}
