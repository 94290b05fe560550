package toolkit

import (
	"context"
	"fmt"
	"strconv"
)

// Spec is a tool's self-description: identity, localized texts and
// parameter schema. It is what /api/tools and the MCP listing serve.
type Spec struct {
	Name        string     `json:"name"`
	Label       I18nString `json:"label"`
	Description I18nString `json:"description"`
	Params      []Param    `json:"parameters"`
}

// Request carries one invocation's inputs: the uploaded PDF and the
// primitive parameters keyed by name.
type Request struct {
	FileName string
	FileData []byte
	Params   map[string]any
}

// StringParam returns a string parameter. Only genuine strings count;
// a missing key or another type reports false.
func (r *Request) StringParam(name string) (string, bool) {
	value, ok := r.Params[name]
	if !ok {
		return "", false
	}
	s, ok := value.(string)
	return s, ok
}

// NumberParam returns a numeric parameter, coercing the shapes hosts
// deliver: JSON numbers, Go ints, and numeric strings from form posts.
func (r *Request) NumberParam(name string) (float64, bool) {
	value, ok := r.Params[name]
	if !ok {
		return 0, false
	}
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Tool is one PDF operation. Invoke streams results through emit; on
// error the host discards anything already emitted.
type Tool interface {
	Spec() Spec
	Invoke(ctx context.Context, req *Request, emit EmitFunc) error
}

// Registry holds the tool set in registration order. Register during
// startup; lookups after that are read-only and safe to share.
type Registry struct {
	names []string
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool; a duplicate name is a wiring bug and errors.
func (r *Registry) Register(tool Tool) error {
	name := tool.Spec().Name
	if name == "" {
		return fmt.Errorf("tool has no name")
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.names = append(r.names, name)
	r.tools[name] = tool
	return nil
}

// Get looks a tool up by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Specs returns every tool's spec in registration order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.tools[name].Spec())
	}
	return out
}
