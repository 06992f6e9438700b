package tools

import "sync"

// Field 工具参数描述：UI 据此收集参数，后端据此校验
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // string | number | boolean | object
	Required bool   `json:"required"`
}

// Definition 一个可调用工具的静态描述
type Definition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

// Registry 工具注册表：toolName -> 参数形状。纯查表，无失败分支
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Definition
}

// NewRegistry 创建新 Registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Definition)}
}

// Register 注册工具
func (r *Registry) Register(d Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[d.Name] = d
}

// Get 按名称获取工具定义
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.tools[name]
	return d, ok
}

// Fields 返回工具的参数形状；未知工具返回空集
func (r *Registry) Fields(name string) []Field {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name].Fields
}

// List 返回所有已注册工具（供 UI 渲染表单）
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Definition, 0, len(r.tools))
	for _, d := range r.tools {
		list = append(list, d)
	}
	return list
}

// Validate 返回缺失的必填参数名；未知工具视为无必填参数
func (r *Registry) Validate(name string, args map[string]any) []string {
	var missing []string
	for _, f := range r.Fields(name) {
		if !f.Required {
			continue
		}
		v, ok := args[f.Name]
		if !ok || v == nil || v == "" {
			missing = append(missing, f.Name)
		}
	}
	return missing
}
