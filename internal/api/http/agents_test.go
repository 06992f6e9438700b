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
	"encoding/json"
	"fmt"
	"testing"
)

func TestAgentCRUDAndAccess(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeGateway{responses: map[string]map[string]any{}})

	// 创建（未带 userId，回退到演示用户作为 owner）
	w := performJSON(s, "POST", "/api/agents",
		[]byte(`{"name":"研究助理","type":"chat-based","instructions":"做文献调研"}`))
	if got := w.Result().StatusCode(); got != 201 {
		t.Fatalf("create status = %d, want 201; body %s", got, w.Result().Body())
	}
	var created struct {
		ID      int64  `json:"id"`
		OwnerID string `json:"ownerId"`
	}
	if err := json.Unmarshal(w.Result().Body(), &created); err != nil {
		t.Fatalf("unmarshal created agent: %v", err)
	}
	if created.ID == 0 || created.OwnerID != "demo-user" {
		t.Fatalf("created = %+v, want assigned id and demo-user owner", created)
	}
	path := fmt.Sprintf("/api/agents/%d", created.ID)

	// 其他用户不可见
	w = performJSON(s, "GET", path+"?userId=intruder", nil)
	if got := w.Result().StatusCode(); got != 403 {
		t.Fatalf("get as stranger status = %d, want 403", got)
	}

	// owner 授权后可见
	w = performJSON(s, "POST", path+"/access", []byte(`{"grantUserId":"intruder"}`))
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("grant status = %d, want 200; body %s", got, w.Result().Body())
	}
	w = performJSON(s, "GET", path+"?userId=intruder", nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("get after grant status = %d, want 200", got)
	}

	// 非 owner 不能改
	w = performJSON(s, "PUT", path, []byte(`{"userId":"intruder","name":"改名"}`))
	if got := w.Result().StatusCode(); got != 403 {
		t.Fatalf("update as grantee status = %d, want 403", got)
	}

	// 撤销授权后恢复不可见
	w = performJSON(s, "DELETE", path+"/access", []byte(`{"grantUserId":"intruder"}`))
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("revoke status = %d, want 200", got)
	}
	w = performJSON(s, "GET", path+"?userId=intruder", nil)
	if got := w.Result().StatusCode(); got != 403 {
		t.Fatalf("get after revoke status = %d, want 403", got)
	}

	// owner 删除，随后 404
	w = performJSON(s, "DELETE", path, nil)
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("delete status = %d, want 200; body %s", got, w.Result().Body())
	}
	w = performJSON(s, "GET", path, nil)
	if got := w.Result().StatusCode(); got != 404 {
		t.Fatalf("get after delete status = %d, want 404", got)
	}
}

func TestCreateAgentValidation(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeGateway{responses: map[string]map[string]any{}})

	w := performJSON(s, "POST", "/api/agents", []byte(`{"description":"无名"}`))
	if got := w.Result().StatusCode(); got != 400 {
		t.Fatalf("create without name status = %d, want 400", got)
	}

	w = performJSON(s, "POST", "/api/agents", []byte(`{"name":"x","type":"quantum"}`))
	if got := w.Result().StatusCode(); got != 400 {
		t.Fatalf("create with unknown type status = %d, want 400", got)
	}
}

func TestGetAgentBadID(t *testing.T) {
	s, _, _ := newTestServer(t, &fakeGateway{responses: map[string]map[string]any{}})
	w := performJSON(s, "GET", "/api/agents/not-a-number", nil)
	if got := w.Result().StatusCode(); got != 400 {
		t.Fatalf("status = %d, want 400", got)
	}
}
