package bridge

import (
	"context"
	"encoding/json"
)

// Result is what a tool hands back: Output is serialized into the
// function_call_output item, Reply (optional) becomes the instructions for
// the follow-up response turn.
type Result struct {
	Output any
	Reply  string
}

// Tool defines the interface for an executable tool. Handle never returns
// an error: failures are expressed as structured Output so the caller
// always receives exactly one correlated result.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Handle(ctx context.Context, args json.RawMessage) Result
}

// Registry holds registered tools and provides lookup.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t Tool) {
	if _, ok := r.tools[t.Name()]; !ok {
		r.order = append(r.order, t.Name())
	}
	r.tools[t.Name()] = t
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// All returns all registered tools in registration order.
func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// sessionTool is the function-tool shape the realtime session expects.
type sessionTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// AsSessionTools converts registered tools to the realtime session format.
func (r *Registry) AsSessionTools() []sessionTool {
	out := make([]sessionTool, 0, len(r.order))
	for _, t := range r.All() {
		out = append(out, sessionTool{
			Type:        "function",
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}
