package tool

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/toolgraph/log"
	"github.com/tmc/langchaingo/llms"
)

// Registry holds the tools exposed to the model. Tools are registered at
// startup; afterwards the registry is read-only and safe to share between
// concurrent executions.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry with the given tools in order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. It fails with *DuplicateToolError if the name is taken.
func (r *Registry) Register(t Tool) error {
	if err := t.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tools == nil {
		r.tools = make(map[string]Tool)
	}
	if _, ok := r.tools[t.Name]; ok {
		return &DuplicateToolError{Name: t.Name}
	}
	t.Params = append([]Param(nil), t.Params...)
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	log.Debug("registered tool %s with %d parameters", t.Name, len(t.Params))
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// DescribeAll returns the schema of every tool in registration order.
func (r *Registry) DescribeAll() []Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]Schema, 0, len(r.order))
	for _, name := range r.order {
		schemas = append(schemas, r.tools[name].Schema())
	}
	return schemas
}

// Invoke validates args against the named tool and runs its handler. Handler
// errors and panics are returned as *ToolExecutionError.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (result any, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}

	bound, err := bindArguments(t, args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			result = nil
			err = &ToolExecutionError{Tool: name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()

	log.Debug("invoking tool %s", name)
	res, err := t.Handler(ctx, bound)
	if err != nil {
		return nil, &ToolExecutionError{Tool: name, Err: err}
	}
	return res, nil
}

// LangchainTools returns the registered tools as langchaingo function
// definitions, in registration order.
func (r *Registry) LangchainTools() []llms.Tool {
	return LangchainTools(r.DescribeAll())
}

// LangchainTools converts schemas into langchaingo function definitions.
func LangchainTools(schemas []Schema) []llms.Tool {
	out := make([]llms.Tool, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return out
}
