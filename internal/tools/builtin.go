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

package tools

// RegisterBuiltin 注册远端服务公开的工具集。参数形状与远端服务的声明保持一致；
// 远端新增工具时在此补登记即可，Orchestrator 与 UI 不需要逐工具分支。
func RegisterBuiltin(r *Registry) {
	r.Register(Definition{
		Name:        "create_agent",
		Description: "创建一个新的 Agent",
		Fields: []Field{
			{Name: "name", Type: "string", Required: true},
			{Name: "description", Type: "string"},
			{Name: "instructions", Type: "string"},
			{Name: "type", Type: "string"},
		},
	})
	r.Register(Definition{
		Name:        "list_agents",
		Description: "列出当前用户可见的 Agent",
	})
	r.Register(Definition{
		Name:        "get_agent",
		Description: "按 ID 获取 Agent",
		Fields: []Field{
			{Name: "agentId", Type: "number", Required: true},
		},
	})
	r.Register(Definition{
		Name:        "update_agent",
		Description: "更新 Agent 元数据",
		Fields: []Field{
			{Name: "agentId", Type: "number", Required: true},
			{Name: "name", Type: "string"},
			{Name: "description", Type: "string"},
			{Name: "instructions", Type: "string"},
		},
	})
	r.Register(Definition{
		Name:        "delete_agent",
		Description: "删除 Agent",
		Fields: []Field{
			{Name: "agentId", Type: "number", Required: true},
		},
	})
	r.Register(Definition{
		Name:        "chat_with_agent",
		Description: "与 Agent 对话",
		Fields: []Field{
			{Name: "agentId", Type: "number", Required: true},
			{Name: "message", Type: "string", Required: true},
		},
	})
	r.Register(Definition{
		Name:        "get_pricing",
		Description: "获取各工具的计费单价",
	})
}
