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
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"

	"agent-console/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	hub        *FlowHub
}

// NewRouter 创建路由器
func NewRouter(handler *Handler, mw *middleware.Middleware, hub *FlowHub) *Router {
	return &Router{handler: handler, middleware: mw, hub: hub}
}

// Build 创建 Hertz server 并注册全部路由，addr 如 ":3001"
func (r *Router) Build(addr string, opts ...hertzconfig.Option) *server.Hertz {
	options := append([]hertzconfig.Option{server.WithHostPorts(addr)}, opts...)
	h := server.New(options...)

	h.Use(r.middleware.Recovery())
	h.Use(r.middleware.AccessLog())
	h.Use(r.middleware.CORS())
	if limiter := r.middleware.RateLimit(); limiter != nil {
		h.Use(limiter)
	}

	api := h.Group("/api")

	api.GET("/health", r.handler.HealthCheck)
	api.GET("/system/metrics", r.handler.SystemMetrics)

	// 工具调用中转（核心路径）
	api.GET("/tools", r.handler.ListTools)
	api.POST("/tools/:toolName", r.handler.InvokeTool)

	// 用量与定价
	api.GET("/usage", r.handler.GetUsage)
	api.GET("/pricing", r.handler.GetPricing)

	// Agent 面板管理
	api.GET("/agents", r.handler.ListAgents)
	api.POST("/agents", r.handler.CreateAgent)
	api.GET("/agents/:id", r.handler.GetAgent)
	api.PUT("/agents/:id", r.handler.UpdateAgent)
	api.DELETE("/agents/:id", r.handler.DeleteAgent)
	api.POST("/agents/:id/access", r.handler.GrantAccess)
	api.DELETE("/agents/:id/access", r.handler.RevokeAccess)

	// 流程监控推送
	if r.hub != nil {
		api.GET("/ws/flow", r.handler.ServeFlow(r.hub))
	}

	return h
}
