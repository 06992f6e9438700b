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

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// GatewayError 传输层失败：非 2xx、网络错误或非 JSON 响应体。
// 携带原始状态码与响应体文本，供账本与日志记录，绝不静默替换为占位值。
type GatewayError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway: %v", e.Err)
	}
	return fmt.Sprintf("gateway: status %d: %s", e.StatusCode, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Config 网关客户端配置
type Config struct {
	Endpoint string
	// Timeout 单次调用上限；远端按约定是同步快速返回的，这里仍设兜底超时，
	// 避免远端挂起拖住请求协程（相对早期集成行为的已知增强）
	Timeout time.Duration
	// UseLegacyShape true 时发送 {tool, arguments}，兼容远端服务早期接受的报文形状
	UseLegacyShape bool
}

// Client 远端工具服务（MCP Server）客户端。单次请求、不重试：
// 重试策略留给上游显式触发，避免用不同方式掩盖远端错误（已知限制，按原行为保留）。
type Client struct {
	endpoint    string
	legacyShape bool
	http        *resty.Client
}

// NewClient 创建网关客户端
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := resty.New()
	client.SetTimeout(timeout)
	return &Client{
		endpoint:    cfg.Endpoint,
		legacyShape: cfg.UseLegacyShape,
		http:        client,
	}
}

// Call 调用远端工具。凭证按远端服务的约定注入到参数表内（in-band 字段而非 Header），
// 这是外部接口事实，必须原样复现以保证兼容。
// 传输成功（2xx + 合法 JSON）时原样返回解析后的响应对象，不解释其语义。
func (c *Client) Call(ctx context.Context, toolName string, args map[string]any, apiKey string) (map[string]any, error) {
	merged := make(map[string]any, len(args)+1)
	for k, v := range args {
		merged[k] = v
	}
	if apiKey != "" {
		merged["apiKey"] = apiKey
	}

	body := map[string]any{"name": toolName, "arguments": merged}
	if c.legacyShape {
		body = map[string]any{"tool": toolName, "arguments": merged}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.endpoint)
	if err != nil {
		return nil, &GatewayError{Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &GatewayError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var parsed map[string]any
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, &GatewayError{
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
			Err:        fmt.Errorf("malformed response body: %w", err),
		}
	}
	return parsed, nil
}
