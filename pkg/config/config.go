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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	MCP        MCPConfig        `mapstructure:"mcp"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Agents     AgentsConfig     `mapstructure:"agents"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	DemoUserID string           `mapstructure:"demo_user_id"` // 未带 userId 的请求回退到演示用户（无认证体系）
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	RateLimit    bool `mapstructure:"rate_limit"`
	RateLimitRPS int  `mapstructure:"rate_limit_rps"`
}

// MCPConfig 远端工具服务（MCP Server）配置
type MCPConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`          // 支持 ${ENV_VAR}；也可经 secrets provider 解析
	APIKeySecret   string `mapstructure:"api_key_secret"`   // secrets store 中的 key 名，优先于 api_key
	Timeout        string `mapstructure:"timeout"`          // 如 "30s"，空则默认 30s
	UseLegacyShape bool   `mapstructure:"use_legacy_shape"` // true 时发送 {tool, arguments} 旧报文
}

// PaymentConfig 计费通道配置（按调用显式传入，不做全局可变状态）
type PaymentConfig struct {
	Mode string `mapstructure:"mode"` // atxp | direct
}

// LedgerConfig 用量账本存储配置
type LedgerConfig struct {
	Type string `mapstructure:"type"` // memory | postgres
	DSN  string `mapstructure:"dsn"`  // Postgres 连接串，type=postgres 时必填
}

// AgentsConfig Agent 元数据存储配置
type AgentsConfig struct {
	Type string `mapstructure:"type"` // memory | postgres
	DSN  string `mapstructure:"dsn"`
}

// CacheConfig 缓存配置（定价表等短 TTL 数据）
type CacheConfig struct {
	Type     string `mapstructure:"type"` // memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	TTL      string `mapstructure:"ttl"` // 如 "30s"，空则默认 30s
}

// SecretsConfig Secret Store 配置
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | memory | vault
	Vault    VaultConfig `mapstructure:"vault"`
}

// VaultConfig Vault 配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadAPIConfig 按默认搜索路径加载 API 配置（CONFIG_PATH 优先）
func LoadAPIConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	return LoadConfig(path)
}

// replaceEnvVars 将 ${ENV_VAR} 形式的敏感字段替换为环境变量值
func replaceEnvVars(config *Config) {
	config.MCP.APIKey = expandEnv(config.MCP.APIKey)
	config.Cache.Password = expandEnv(config.Cache.Password)
	config.Secrets.Vault.Token = expandEnv(config.Secrets.Vault.Token)
	config.Ledger.DSN = expandEnv(config.Ledger.DSN)
	config.Agents.DSN = expandEnv(config.Agents.DSN)
}

// expandEnv 替换 ${VAR}；非该形式原样返回，未设置时保留原值
func expandEnv(v string) string {
	if !strings.HasPrefix(v, "${") || !strings.HasSuffix(v, "}") {
		return v
	}
	envVar := strings.TrimSuffix(strings.TrimPrefix(v, "${"), "}")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return v
}

// validate 启动期校验：缺失远端地址直接失败，避免运行期才暴露
func validate(config *Config) error {
	if config.MCP.Endpoint == "" {
		return fmt.Errorf("mcp.endpoint 未配置")
	}
	if config.Ledger.Type == "postgres" && config.Ledger.DSN == "" {
		return fmt.Errorf("ledger.type=postgres 时 ledger.dsn 必填")
	}
	if config.Agents.Type == "postgres" && config.Agents.DSN == "" {
		return fmt.Errorf("agents.type=postgres 时 agents.dsn 必填")
	}
	return nil
}
