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

package ledger

import (
	"context"
	"sync"
	"time"
)

// MemStore 内存账本实现（进程内，非持久；单测与本地开发用）
type MemStore struct {
	mu      sync.Mutex
	nextID  int64
	records []UsageRecord
}

// NewMemStore 创建内存账本
func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

func (s *MemStore) Append(ctx context.Context, rec *UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	s.records = append(s.records, *rec)
	return nil
}

func (s *MemStore) ListByUser(ctx context.Context, userID string, start, end time.Time) ([]UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []UsageRecord
	for _, rec := range s.records {
		if rec.UserID != userID {
			continue
		}
		if !inRange(rec.CreatedAt, start, end) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Len 当前记录数（测试用）
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
