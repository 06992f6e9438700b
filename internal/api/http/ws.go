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
	"context"
	"encoding/json"
	"sync"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/websocket"

	"agent-console/internal/flow"
)

// flowEvent 推送给 UI 的流程事件
type flowEvent struct {
	InvocationID string    `json:"invocationId"`
	Step         flow.Step `json:"step"`
}

// FlowHub 流程监控推送中心：实现 flow.Sink，把步骤事件广播给所有
// WebSocket 连接。单向通道，只推不收；慢消费者直接丢弃事件而不是
// 阻塞调用路径。
type FlowHub struct {
	mu      sync.RWMutex
	clients map[string]chan []byte
}

// NewFlowHub 创建推送中心
func NewFlowHub() *FlowHub {
	return &FlowHub{clients: make(map[string]chan []byte)}
}

var _ flow.Sink = (*FlowHub)(nil)

// Publish 广播一条流程步骤事件
func (h *FlowHub) Publish(invocationID string, step flow.Step) {
	payload, err := json.Marshal(flowEvent{InvocationID: invocationID, Step: step})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.clients {
		select {
		case ch <- payload:
		default: // 消费不过来就丢，不能拖住调用协程
		}
	}
}

func (h *FlowHub) register() (string, chan []byte) {
	id := uuid.NewString()
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *FlowHub) unregister(id string) {
	h.mu.Lock()
	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
	}
	h.mu.Unlock()
}

var upgrader = websocket.HertzUpgrader{
	// 面板与 API 不同源，放开握手来源检查（与 CORS 策略一致）
	CheckOrigin: func(ctx *app.RequestContext) bool { return true },
}

// ServeFlow WebSocket 端点：连接后持续收到 flowEvent，不接受入站指令
// GET /api/ws/flow
func (h *Handler) ServeFlow(hub *FlowHub) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		err := upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			id, ch := hub.register()
			defer hub.unregister(id)

			// 读协程只用于感知对端关闭，收到的任何内容都被忽略
			done := make(chan struct{})
			go func() {
				defer close(done)
				for {
					if _, _, err := conn.ReadMessage(); err != nil {
						return
					}
				}
			}()

			for {
				select {
				case payload, ok := <-ch:
					if !ok {
						return
					}
					if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		})
		if err != nil {
			hlog.CtxWarnf(c, "websocket upgrade failed: %v", err)
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "websocket upgrade failed"})
		}
	}
}
