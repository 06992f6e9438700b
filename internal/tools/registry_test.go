package tools

import "testing"

func TestRegistry_FieldsUnknownTool(t *testing.T) {
	r := NewRegistry()
	if fields := r.Fields("nope"); len(fields) != 0 {
		t.Errorf("unknown tool should yield empty field set, got %v", fields)
	}
}

func TestRegistry_RegisterGetList(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltin(r)
	d, ok := r.Get("create_agent")
	if !ok {
		t.Fatal("create_agent should be registered")
	}
	if len(d.Fields) == 0 || d.Fields[0].Name != "name" || !d.Fields[0].Required {
		t.Errorf("create_agent fields: %+v", d.Fields)
	}
	if len(r.List()) < 7 {
		t.Errorf("builtin set size: got %d", len(r.List()))
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltin(r)

	missing := r.Validate("chat_with_agent", map[string]any{"agentId": 1})
	if len(missing) != 1 || missing[0] != "message" {
		t.Errorf("missing: %v", missing)
	}
	missing = r.Validate("chat_with_agent", map[string]any{"agentId": 1, "message": "hi"})
	if len(missing) != 0 {
		t.Errorf("complete args should pass, got %v", missing)
	}
	// 空字符串视为缺失
	missing = r.Validate("chat_with_agent", map[string]any{"agentId": 1, "message": ""})
	if len(missing) != 1 {
		t.Errorf("empty string should count as missing, got %v", missing)
	}
	// 未知工具没有必填参数
	if missing = r.Validate("nope", nil); len(missing) != 0 {
		t.Errorf("unknown tool: %v", missing)
	}
}
