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

import (
	"context"
	"sort"
	"sync"
	"time"

	"agent-console/pkg/errors"
)

// MemStore 内存 Agent 存储
type MemStore struct {
	mu     sync.RWMutex
	nextID int64
	agents map[int64]*Agent
	grants map[int64]map[string]time.Time // agentID -> userID -> granted at
}

// NewMemStore 创建内存 Agent 存储
func NewMemStore() *MemStore {
	return &MemStore{
		nextID: 1,
		agents: make(map[int64]*Agent),
		grants: make(map[int64]map[string]time.Time),
	}
}

func (s *MemStore) Create(ctx context.Context, a *Agent) error {
	if a.Name == "" || a.OwnerID == "" {
		return errors.ErrInvalidArg
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID
	s.nextID++
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s *MemStore) Get(ctx context.Context, id int64) (*Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemStore) ListVisible(ctx context.Context, userID string) ([]Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Agent
	for _, a := range s.agents {
		if a.OwnerID == userID || a.IsPublic || s.hasGrant(a.ID, userID) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Update(ctx context.Context, a *Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.agents[a.ID]
	if !ok {
		return errors.ErrNotFound
	}
	a.CreatedAt = old.CreatedAt
	a.UpdatedAt = time.Now()
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s *MemStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[id]; !ok {
		return errors.ErrNotFound
	}
	delete(s.agents, id)
	delete(s.grants, id)
	return nil
}

func (s *MemStore) Grant(ctx context.Context, agentID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[agentID]; !ok {
		return errors.ErrNotFound
	}
	if s.grants[agentID] == nil {
		s.grants[agentID] = make(map[string]time.Time)
	}
	s.grants[agentID][userID] = time.Now()
	return nil
}

func (s *MemStore) Revoke(ctx context.Context, agentID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grants[agentID] == nil {
		return errors.ErrNotFound
	}
	if _, ok := s.grants[agentID][userID]; !ok {
		return errors.ErrNotFound
	}
	delete(s.grants[agentID], userID)
	return nil
}

func (s *MemStore) CanAccess(ctx context.Context, agentID int64, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[agentID]
	if !ok {
		return false, errors.ErrNotFound
	}
	if a.OwnerID == userID || a.IsPublic {
		return true, nil
	}
	return s.hasGrant(agentID, userID), nil
}

// hasGrant 调用方需持有读锁
func (s *MemStore) hasGrant(agentID int64, userID string) bool {
	g, ok := s.grants[agentID]
	if !ok {
		return false
	}
	_, ok = g[userID]
	return ok
}
