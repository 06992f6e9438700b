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
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgerrors "agent-console/pkg/errors"
)

// pgStore PostgreSQL Agent 存储
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore 创建基于 PostgreSQL 的 Agent 存储
func NewPgStore(ctx context.Context, dsn string) (Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s := &pgStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *pgStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS agents (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    instructions TEXT NOT NULL DEFAULT '',
    type TEXT NOT NULL,
    is_public BOOLEAN NOT NULL DEFAULT FALSE,
    owner_id TEXT NOT NULL,
    metadata JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS agent_access (
    agent_id BIGINT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (agent_id, user_id)
)`)
	return err
}

// Close 关闭连接池
func (s *pgStore) Close() {
	s.pool.Close()
}

func (s *pgStore) Create(ctx context.Context, a *Agent) error {
	if a.Name == "" || a.OwnerID == "" {
		return pkgerrors.ErrInvalidArg
	}
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now
	return s.pool.QueryRow(ctx, `
INSERT INTO agents (name, description, instructions, type, is_public, owner_id, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`,
		a.Name, a.Description, a.Instructions, string(a.Type), a.IsPublic, a.OwnerID, meta, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
}

func (s *pgStore) Get(ctx context.Context, id int64) (*Agent, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, name, description, instructions, type, is_public, owner_id, metadata, created_at, updated_at
FROM agents WHERE id = $1`, id)
	a, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pkgerrors.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (s *pgStore) ListVisible(ctx context.Context, userID string) ([]Agent, error) {
	rows, err := s.pool.Query(ctx, `
SELECT DISTINCT a.id, a.name, a.description, a.instructions, a.type, a.is_public, a.owner_id, a.metadata, a.created_at, a.updated_at
FROM agents a
LEFT JOIN agent_access acc ON acc.agent_id = a.id AND acc.user_id = $1
WHERE a.owner_id = $1 OR a.is_public OR acc.user_id IS NOT NULL
ORDER BY a.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *pgStore) Update(ctx context.Context, a *Agent) error {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}
	a.UpdatedAt = time.Now()
	tag, err := s.pool.Exec(ctx, `
UPDATE agents SET name=$2, description=$3, instructions=$4, type=$5, is_public=$6, metadata=$7, updated_at=$8
WHERE id=$1`,
		a.ID, a.Name, a.Description, a.Instructions, string(a.Type), a.IsPublic, meta, a.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (s *pgStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (s *pgStore) Grant(ctx context.Context, agentID int64, userID string) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO agent_access (agent_id, user_id) VALUES ($1, $2)
ON CONFLICT (agent_id, user_id) DO NOTHING`, agentID, userID)
	return err
}

func (s *pgStore) Revoke(ctx context.Context, agentID int64, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agent_access WHERE agent_id = $1 AND user_id = $2`, agentID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.ErrNotFound
	}
	return nil
}

func (s *pgStore) CanAccess(ctx context.Context, agentID int64, userID string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `
SELECT EXISTS (
    SELECT 1 FROM agents a
    LEFT JOIN agent_access acc ON acc.agent_id = a.id AND acc.user_id = $2
    WHERE a.id = $1 AND (a.owner_id = $2 OR a.is_public OR acc.user_id IS NOT NULL)
)`, agentID, userID).Scan(&ok)
	if err != nil {
		return false, err
	}
	if !ok {
		// 与内存实现保持一致：不存在的 Agent 返回 ErrNotFound 而非单纯拒绝
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM agents WHERE id = $1)`, agentID).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, pkgerrors.ErrNotFound
		}
	}
	return ok, nil
}

// scanAgent 从单行构建 Agent（QueryRow 与 Query 共用）
func scanAgent(row pgx.Row) (*Agent, error) {
	var a Agent
	var typ string
	var meta []byte
	if err := row.Scan(&a.ID, &a.Name, &a.Description, &a.Instructions, &typ, &a.IsPublic,
		&a.OwnerID, &meta, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Type = AgentType(typ)
	if len(meta) > 0 && string(meta) != "null" {
		if err := json.Unmarshal(meta, &a.Metadata); err != nil {
			return nil, err
		}
	}
	return &a, nil
}
