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

package app

import (
	"context"
	"fmt"
	"time"

	"agent-console/internal/agents"
	"agent-console/internal/gateway"
	"agent-console/internal/ledger"
	"agent-console/internal/storage/cache"
	"agent-console/pkg/config"
	"agent-console/pkg/log"
	"agent-console/pkg/secrets"
)

// Bootstrap 统一初始化：配置驱动地装配存储与外部客户端，避免在 cmd 内写业务
type Bootstrap struct {
	Config      *config.Config
	Logger      *log.Logger
	LedgerStore ledger.Store
	AgentStore  agents.Store
	Cache       cache.Store
	Gateway     *gateway.Client
	// APIKey 调用远端工具服务的凭证（已经过 secrets provider 解析）
	APIKey string
}

// NewBootstrap 根据配置创建 Bootstrap
func NewBootstrap(cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置为空")
	}

	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	ctx := context.Background()

	var ledgerStore ledger.Store
	switch cfg.Ledger.Type {
	case "", "memory":
		ledgerStore = ledger.NewMemStore()
	case "postgres":
		ledgerStore, err = ledger.NewPgStore(ctx, cfg.Ledger.DSN)
		if err != nil {
			return nil, fmt.Errorf("初始化账本存储(postgres)失败: %w", err)
		}
		logger.Info("账本使用 PostgreSQL 后端")
	default:
		return nil, fmt.Errorf("未知的账本存储类型: %s", cfg.Ledger.Type)
	}

	var agentStore agents.Store
	switch cfg.Agents.Type {
	case "", "memory":
		agentStore = agents.NewMemStore()
	case "postgres":
		agentStore, err = agents.NewPgStore(ctx, cfg.Agents.DSN)
		if err != nil {
			return nil, fmt.Errorf("初始化 Agent 存储(postgres)失败: %w", err)
		}
		logger.Info("Agent 存储使用 PostgreSQL 后端")
	default:
		return nil, fmt.Errorf("未知的 Agent 存储类型: %s", cfg.Agents.Type)
	}

	cacheStore, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("初始化缓存失败: %w", err)
	}

	apiKey, err := resolveAPIKey(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gw := gateway.NewClient(gateway.Config{
		Endpoint:       cfg.MCP.Endpoint,
		Timeout:        parseDuration(cfg.MCP.Timeout, 0),
		UseLegacyShape: cfg.MCP.UseLegacyShape,
	})

	return &Bootstrap{
		Config:      cfg,
		Logger:      logger,
		LedgerStore: ledgerStore,
		AgentStore:  agentStore,
		Cache:       cacheStore,
		Gateway:     gw,
		APIKey:      apiKey,
	}, nil
}

// resolveAPIKey 远端凭证解析：配置了 api_key_secret 时从 secrets provider 取，
// 否则直接使用 api_key（已做 ${ENV} 展开）
func resolveAPIKey(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.MCP.APIKeySecret == "" {
		return cfg.MCP.APIKey, nil
	}
	store, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
		},
	})
	if err != nil {
		return "", fmt.Errorf("初始化 secret store 失败: %w", err)
	}
	key, err := store.Get(ctx, cfg.MCP.APIKeySecret)
	if err != nil {
		return "", fmt.Errorf("读取远端凭证失败: %w", err)
	}
	return key, nil
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
