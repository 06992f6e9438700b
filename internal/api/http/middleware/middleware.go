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

package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"

	"agent-console/pkg/config"
)

// Middleware HTTP 中间件集合
type Middleware struct {
	cfg config.APIConfig

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewMiddleware 创建中间件集合
func NewMiddleware(cfg config.APIConfig) *Middleware {
	return &Middleware{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}
}

// CORS 跨域响应头；OPTIONS 预检直接返回 204
func (m *Middleware) CORS() app.HandlerFunc {
	origins := "*"
	if len(m.cfg.CORS.AllowOrigins) > 0 {
		origins = strings.Join(m.cfg.CORS.AllowOrigins, ", ")
	}
	return func(ctx context.Context, c *app.RequestContext) {
		c.Header("Access-Control-Allow-Origin", origins)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if string(c.Method()) == "OPTIONS" {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

// AccessLog 访问日志
func (m *Middleware) AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		hlog.CtxInfof(ctx, "%s %s %d %s",
			c.Method(), c.Path(), c.Response.StatusCode(), time.Since(start))
	}
}

// Recovery panic 兜底：任何处理器 panic 都转换为 500 错误响应
func (m *Middleware) Recovery() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if r := recover(); r != nil {
				hlog.CtxErrorf(ctx, "panic recovered: %v", r)
				c.JSON(consts.StatusInternalServerError, map[string]string{
					"error": "internal server error",
				})
			}
		}()
		c.Next(ctx)
	}
}

// RateLimit 按客户端 IP 的令牌桶限流；未启用时返回 nil
func (m *Middleware) RateLimit() app.HandlerFunc {
	if !m.cfg.Middleware.RateLimit {
		return nil
	}
	rps := m.cfg.Middleware.RateLimitRPS
	if rps <= 0 {
		rps = 20
	}
	return func(ctx context.Context, c *app.RequestContext) {
		if !m.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(consts.StatusTooManyRequests, map[string]string{
				"error": "请求过于频繁",
			})
			return
		}
		c.Next(ctx)
	}
}

func (m *Middleware) limiterFor(ip string) *rate.Limiter {
	m.limiterMu.Lock()
	defer m.limiterMu.Unlock()
	l, ok := m.limiters[ip]
	if !ok {
		rps := m.cfg.Middleware.RateLimitRPS
		if rps <= 0 {
			rps = 20
		}
		l = rate.NewLimiter(rate.Limit(rps), rps*2)
		m.limiters[ip] = l
	}
	return l
}
