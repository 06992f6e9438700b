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
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore PostgreSQL 账本实现。表结构：
//
//	CREATE TABLE IF NOT EXISTS usage_records (
//	    id BIGSERIAL PRIMARY KEY,
//	    user_id TEXT NOT NULL,
//	    tool_name TEXT NOT NULL,
//	    agent_id BIGINT,
//	    cost NUMERIC(12,4) NOT NULL DEFAULT 0,
//	    tokens_used INT,
//	    execution_time_ms INT,
//	    status TEXT NOT NULL,
//	    error_message TEXT,
//	    request JSONB,
//	    response JSONB,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX IF NOT EXISTS idx_usage_records_user_created ON usage_records (user_id, created_at);
type pgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore 创建基于 PostgreSQL 的账本存储
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
CREATE TABLE IF NOT EXISTS usage_records (
    id BIGSERIAL PRIMARY KEY,
    user_id TEXT NOT NULL,
    tool_name TEXT NOT NULL,
    agent_id BIGINT,
    cost NUMERIC(12,4) NOT NULL DEFAULT 0,
    tokens_used INT,
    execution_time_ms INT,
    status TEXT NOT NULL,
    error_message TEXT,
    request JSONB,
    response JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_usage_records_user_created ON usage_records (user_id, created_at)`)
	return err
}

// Close 关闭连接池（可选，用于优雅退出）
func (s *pgStore) Close() {
	s.pool.Close()
}

func (s *pgStore) Append(ctx context.Context, rec *UsageRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	request := rec.Request
	if request == nil {
		request = []byte("null")
	}
	// response 为 NULL 表示传输层失败、没有任何响应体
	var response any
	if rec.Response != nil {
		response = rec.Response
	}
	return s.pool.QueryRow(ctx, `
INSERT INTO usage_records (user_id, tool_name, agent_id, cost, tokens_used, execution_time_ms, status, error_message, request, response, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`,
		rec.UserID, rec.ToolName, rec.AgentID, rec.Cost, rec.TokensUsed, rec.ExecutionTimeMs,
		string(rec.Status), rec.ErrorMessage, request, response, rec.CreatedAt,
	).Scan(&rec.ID)
}

func (s *pgStore) ListByUser(ctx context.Context, userID string, start, end time.Time) ([]UsageRecord, error) {
	query := `
SELECT id, user_id, tool_name, agent_id, cost, tokens_used, execution_time_ms, status, error_message, request, response, created_at
FROM usage_records
WHERE user_id = $1`
	args := []any{userID}
	if !start.IsZero() {
		args = append(args, start)
		query += ` AND created_at >= $2`
	}
	if !end.IsZero() {
		args = append(args, end)
		if len(args) == 3 {
			query += ` AND created_at <= $3`
		} else {
			query += ` AND created_at <= $2`
		}
	}
	query += ` ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageRecord
	for rows.Next() {
		var rec UsageRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ToolName, &rec.AgentID, &rec.Cost,
			&rec.TokensUsed, &rec.ExecutionTimeMs, &status, &rec.ErrorMessage,
			&rec.Request, &rec.Response, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Status = Status(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}
