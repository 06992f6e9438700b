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

package agents

import "time"

// AgentType Agent 形态
type AgentType string

const (
	TypeFileBased AgentType = "file-based"
	TypeTeam      AgentType = "team"
	TypeHybrid    AgentType = "hybrid"
	TypeChatBased AgentType = "chat-based"
)

// ValidType 是否为已知 Agent 形态
func ValidType(t AgentType) bool {
	switch t {
	case TypeFileBased, TypeTeam, TypeHybrid, TypeChatBased:
		return true
	}
	return false
}

// Agent 用户名下的远端资源。对调用中转而言只是寻址令牌（agentId 透传给远端服务），
// 这里保存的是面板展示所需的元数据。
type Agent struct {
	ID           int64          `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Type         AgentType      `json:"type"`
	IsPublic     bool           `json:"isPublic"`
	OwnerID      string         `json:"ownerId"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Access 授权关系：agentId + userId，只增删不更新
type Access struct {
	AgentID   int64     `json:"agentId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
