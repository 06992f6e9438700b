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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"

	"agent-console/internal/api/http"
	"agent-console/internal/api/http/middleware"
	"agent-console/internal/app"
	"agent-console/internal/orchestrator"
	"agent-console/internal/tools"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用：装配 Router、Handler、Middleware 与调用编排
type App struct {
	bootstrap    *app.Bootstrap
	router       *http.Router
	hub          *http.FlowHub
	hertz        *server.Hertz
	otelProvider otelProviderShutdown
}

// NewApp 创建 API 应用（由 cmd/api 调用）
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config

	registry := tools.NewRegistry()
	tools.RegisterBuiltin(registry)

	hub := http.NewFlowHub()

	pricingTTL := parseDuration(cfg.Cache.TTL, 30*time.Second)
	pricing := orchestrator.NewPricingService(bootstrap.Gateway, bootstrap.Cache, pricingTTL, bootstrap.Logger)

	orch := orchestrator.New(orchestrator.Options{
		Registry: registry,
		Gateway:  bootstrap.Gateway,
		Pricing:  pricing,
		Ledger:   bootstrap.LedgerStore,
		Sink:     hub,
		Logger:   bootstrap.Logger,
		APIKey:   bootstrap.APIKey,
	})

	handler := http.NewHandler(http.Options{
		Orchestrator: orch,
		Pricing:      pricing,
		Ledger:       bootstrap.LedgerStore,
		Agents:       bootstrap.AgentStore,
		Registry:     registry,
		Logger:       bootstrap.Logger,
		DemoUserID:   cfg.API.DemoUserID,
		APIKey:       bootstrap.APIKey,
		PaymentMode:  cfg.Payment.Mode,
	})

	mw := middleware.NewMiddleware(cfg.API)
	router := http.NewRouter(handler, mw, hub)

	return &App{
		bootstrap: bootstrap,
		router:    router,
		hub:       hub,
	}, nil
}

// Run 启动 HTTP 服务，addr 如 ":3001"
func (a *App) Run(addr string) error {
	cfg := a.bootstrap.Config
	a.bootstrap.Logger.Info("API 服务启动", "addr", addr)

	// Hertz 日志走 slog 扩展，与 bootstrap 的日志配置对齐
	output := os.Stdout
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("打开日志文件失败: %w", err)
		}
		output = f
	}
	levelVar := &slog.LevelVar{}
	switch cfg.Log.Level {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	// 可选：启用链路追踪（OpenTelemetry）
	if cfg.Monitoring.Tracing.Enable {
		serviceName := cfg.Monitoring.Tracing.ServiceName
		if serviceName == "" {
			serviceName = "agent-console"
		}
		exportEndpoint := cfg.Monitoring.Tracing.ExportEndpoint
		if exportEndpoint == "" {
			exportEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		}
		if exportEndpoint != "" {
			opts := []provider.Option{
				provider.WithServiceName(serviceName),
				provider.WithExportEndpoint(exportEndpoint),
			}
			if cfg.Monitoring.Tracing.Insecure {
				opts = append(opts, provider.WithInsecure())
			}
			a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
			tracerOpt, tracerCfg := hertztracing.NewServerTracer()
			a.hertz = a.router.Build(addr, tracerOpt)
			a.hertz.Use(hertztracing.ServerMiddleware(tracerCfg))
			a.bootstrap.Logger.Info("链路追踪已启用", "service_name", serviceName, "endpoint", exportEndpoint)
		} else {
			a.hertz = a.router.Build(addr)
		}
	} else {
		a.hertz = a.router.Build(addr)
	}

	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if a.bootstrap.Cache != nil {
		_ = a.bootstrap.Cache.Close()
	}
	if a.hertz != nil {
		return a.hertz.Shutdown(ctx)
	}
	return nil
}

func parseDuration(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
