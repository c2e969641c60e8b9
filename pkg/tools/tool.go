// Package tools holds the function-calling registry exposed to the model.
// Tools are declared once in an internal format and translated per provider
// by the realtime session layer.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/junolabs/go-juno/internal/log"
	"github.com/junolabs/go-juno/pkg/realtime"
)

// ErrUnknownTool is returned when the model requests a tool that was never
// registered.
var ErrUnknownTool = errors.New("tools: unknown tool")

// Tool is one callable function. Parameters is a JSON-schema object; build
// it by hand or with ParamsFor.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any

	// NonBlocking marks tools whose result should not trigger an immediate
	// follow-up response on providers that support it.
	NonBlocking bool

	// Handler runs the tool. It may block; the realtime layer calls it off
	// the transport goroutine.
	Handler func(args map[string]any) (string, error)
}

// Registry maps tool names to handlers. It implements realtime.ToolExecutor.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering the same name twice is an error.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Handler == nil {
		return errors.New("tools: tool needs a name and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tools: %q already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// RegisterAll adds a batch of tools, stopping at the first error.
func (r *Registry) RegisterAll(ts []Tool) error {
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Definitions returns the declarations for session configuration, in
// registration order.
func (r *Registry) Definitions() []realtime.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]realtime.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, realtime.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
			NonBlocking: t.NonBlocking,
		})
	}
	return defs
}

// Execute runs a tool by name with raw JSON arguments. Implements
// realtime.ToolExecutor.
func (r *Registry) Execute(name, argsJSON string) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	args := map[string]any{}
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("tools: bad arguments for %q: %w", name, err)
		}
	}

	log.Debug("tools: executing", "tool", name)
	return t.Handler(args)
}
