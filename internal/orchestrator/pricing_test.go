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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-console/internal/storage/cache"
	"agent-console/pkg/log"
)

func newPricingService(t *testing.T, gw *fakeGateway) *PricingService {
	t.Helper()
	logger, err := log.NewLogger(nil)
	require.NoError(t, err)
	return NewPricingService(gw, cache.NewMemoryStore(), time.Minute, logger)
}

func TestParsePricingShapes(t *testing.T) {
	nested := parsePricing(map[string]any{
		"pricing": map[string]any{"chat_with_agent": 0.05, "get_agent": 0.01},
	})
	assert.Equal(t, "0.05", nested["chat_with_agent"])
	assert.Equal(t, "0.01", nested["get_agent"])

	flat := parsePricing(map[string]any{"list_agents": 0.02, "note": "ignored"})
	assert.Equal(t, "0.02", flat["list_agents"])
	assert.NotContains(t, flat, "note")
}

func TestExpectedCostUsesCache(t *testing.T) {
	gw := &fakeGateway{responses: map[string]map[string]any{
		"get_pricing": {"pricing": map[string]any{"chat_with_agent": 0.05}},
	}}
	p := newPricingService(t, gw)
	ctx := context.Background()

	cost := p.ExpectedCost(ctx, "chat_with_agent", "demo-user", "key")
	assert.Equal(t, "0.05", cost.String())
	require.Len(t, gw.calls, 1)

	// 第二次命中缓存，不再打远端
	cost = p.ExpectedCost(ctx, "chat_with_agent", "demo-user", "key")
	assert.Equal(t, "0.05", cost.String())
	assert.Len(t, gw.calls, 1)
}

func TestExpectedCostUnknownToolIsZero(t *testing.T) {
	gw := &fakeGateway{responses: map[string]map[string]any{
		"get_pricing": {"pricing": map[string]any{"chat_with_agent": 0.05}},
	}}
	p := newPricingService(t, gw)

	cost := p.ExpectedCost(context.Background(), "unknown_tool", "demo-user", "key")
	assert.True(t, cost.IsZero())
}

func TestExpectedCostGatewayFailureIsZero(t *testing.T) {
	gw := &fakeGateway{responses: map[string]map[string]any{}}
	p := newPricingService(t, gw)

	// get_pricing 本身失败时不阻塞调用路径，返回零成本
	cost := p.ExpectedCost(context.Background(), "chat_with_agent", "demo-user", "key")
	assert.True(t, cost.IsZero())
}
