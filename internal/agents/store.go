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

import "context"

// Store Agent 元数据存储
type Store interface {
	Create(ctx context.Context, a *Agent) error
	Get(ctx context.Context, id int64) (*Agent, error)
	// ListVisible 返回 userID 可见的 Agent：自己拥有的、被授权的、公开的
	ListVisible(ctx context.Context, userID string) ([]Agent, error)
	Update(ctx context.Context, a *Agent) error
	Delete(ctx context.Context, id int64) error

	Grant(ctx context.Context, agentID int64, userID string) error
	Revoke(ctx context.Context, agentID int64, userID string) error
	// CanAccess owner、被授权者或公开 Agent 返回 true
	CanAccess(ctx context.Context, agentID int64, userID string) (bool, error)
}
