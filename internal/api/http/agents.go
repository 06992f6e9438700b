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

package http

import (
	"context"
	"errors"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"agent-console/internal/agents"
	pkgerrors "agent-console/pkg/errors"
)

// agentRequest 创建/更新 Agent 的请求体
type agentRequest struct {
	UserID       string           `json:"userId"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Instructions string           `json:"instructions"`
	Type         agents.AgentType `json:"type"`
	IsPublic     bool             `json:"isPublic"`
	Metadata     map[string]any   `json:"metadata"`
}

// ListAgents 列出当前用户可见的 Agent
// GET /api/agents?userId=
func (h *Handler) ListAgents(c context.Context, ctx *app.RequestContext) {
	userID := h.userID(ctx.Query("userId"))
	list, err := h.agents.ListVisible(c, userID)
	if err != nil {
		h.logger.Error("列出 Agent 失败", "user", userID, "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "列出 Agent 失败"})
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"agents": list, "total": len(list)})
}

// CreateAgent 创建 Agent 元数据
// POST /api/agents
func (h *Handler) CreateAgent(c context.Context, ctx *app.RequestContext) {
	var req agentRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体不是合法 JSON"})
		return
	}
	if req.Name == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Type == "" {
		req.Type = agents.TypeChatBased
	}
	if !agents.ValidType(req.Type) {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "未知的 agent type"})
		return
	}

	a := &agents.Agent{
		Name:         req.Name,
		Description:  req.Description,
		Instructions: req.Instructions,
		Type:         req.Type,
		IsPublic:     req.IsPublic,
		OwnerID:      h.userID(req.UserID),
		Metadata:     req.Metadata,
	}
	if err := h.agents.Create(c, a); err != nil {
		h.logger.Error("创建 Agent 失败", "error", err)
		ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "创建 Agent 失败"})
		return
	}
	ctx.JSON(consts.StatusCreated, a)
}

// GetAgent 获取 Agent 详情（需可见）
// GET /api/agents/:id?userId=
func (h *Handler) GetAgent(c context.Context, ctx *app.RequestContext) {
	id, ok := h.agentID(ctx)
	if !ok {
		return
	}
	userID := h.userID(ctx.Query("userId"))

	allowed, err := h.agents.CanAccess(c, id, userID)
	if err != nil {
		h.agentStoreError(ctx, err)
		return
	}
	if !allowed {
		ctx.JSON(consts.StatusForbidden, map[string]string{"error": "无权访问该 Agent"})
		return
	}

	a, err := h.agents.Get(c, id)
	if err != nil {
		h.agentStoreError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, a)
}

// UpdateAgent 更新 Agent 元数据（仅 owner）
// PUT /api/agents/:id
func (h *Handler) UpdateAgent(c context.Context, ctx *app.RequestContext) {
	id, ok := h.agentID(ctx)
	if !ok {
		return
	}
	var req agentRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体不是合法 JSON"})
		return
	}

	a, err := h.agents.Get(c, id)
	if err != nil {
		h.agentStoreError(ctx, err)
		return
	}
	if a.OwnerID != h.userID(req.UserID) {
		ctx.JSON(consts.StatusForbidden, map[string]string{"error": "仅 owner 可修改"})
		return
	}

	if req.Name != "" {
		a.Name = req.Name
	}
	if req.Description != "" {
		a.Description = req.Description
	}
	if req.Instructions != "" {
		a.Instructions = req.Instructions
	}
	if req.Type != "" {
		if !agents.ValidType(req.Type) {
			ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "未知的 agent type"})
			return
		}
		a.Type = req.Type
	}
	if req.Metadata != nil {
		a.Metadata = req.Metadata
	}
	a.IsPublic = req.IsPublic

	if err := h.agents.Update(c, a); err != nil {
		h.agentStoreError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, a)
}

// DeleteAgent 删除 Agent（仅 owner）
// DELETE /api/agents/:id?userId=
func (h *Handler) DeleteAgent(c context.Context, ctx *app.RequestContext) {
	id, ok := h.agentID(ctx)
	if !ok {
		return
	}
	userID := h.userID(ctx.Query("userId"))

	a, err := h.agents.Get(c, id)
	if err != nil {
		h.agentStoreError(ctx, err)
		return
	}
	if a.OwnerID != userID {
		ctx.JSON(consts.StatusForbidden, map[string]string{"error": "仅 owner 可删除"})
		return
	}
	if err := h.agents.Delete(c, id); err != nil {
		h.agentStoreError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"status": "deleted"})
}

// accessRequest 授权请求体
type accessRequest struct {
	UserID      string `json:"userId"`      // 操作者（须为 owner）
	GrantUserID string `json:"grantUserId"` // 被授权/被撤销的用户
}

// GrantAccess 给其他用户授权
// POST /api/agents/:id/access
func (h *Handler) GrantAccess(c context.Context, ctx *app.RequestContext) {
	h.changeAccess(c, ctx, true)
}

// RevokeAccess 撤销授权
// DELETE /api/agents/:id/access
func (h *Handler) RevokeAccess(c context.Context, ctx *app.RequestContext) {
	h.changeAccess(c, ctx, false)
}

func (h *Handler) changeAccess(c context.Context, ctx *app.RequestContext, grant bool) {
	id, ok := h.agentID(ctx)
	if !ok {
		return
	}
	var req accessRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "请求体不是合法 JSON"})
		return
	}
	if req.GrantUserID == "" {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "grantUserId is required"})
		return
	}

	a, err := h.agents.Get(c, id)
	if err != nil {
		h.agentStoreError(ctx, err)
		return
	}
	if a.OwnerID != h.userID(req.UserID) {
		ctx.JSON(consts.StatusForbidden, map[string]string{"error": "仅 owner 可管理授权"})
		return
	}

	if grant {
		err = h.agents.Grant(c, id, req.GrantUserID)
	} else {
		err = h.agents.Revoke(c, id, req.GrantUserID)
	}
	if err != nil {
		h.agentStoreError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]string{"status": "ok"})
}

// agentID 解析路径参数 :id；失败时写响应并返回 false
func (h *Handler) agentID(ctx *app.RequestContext) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(consts.StatusBadRequest, map[string]string{"error": "agent id 必须为数字"})
		return 0, false
	}
	return id, true
}

// agentStoreError 存储层错误到 HTTP 状态码的映射
func (h *Handler) agentStoreError(ctx *app.RequestContext, err error) {
	if errors.Is(err, pkgerrors.ErrNotFound) {
		ctx.JSON(consts.StatusNotFound, map[string]string{"error": "Agent 不存在"})
		return
	}
	h.logger.Error("Agent 存储操作失败", "error", err)
	ctx.JSON(consts.StatusInternalServerError, map[string]string{"error": "存储操作失败"})
}
