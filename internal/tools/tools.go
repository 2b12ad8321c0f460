// Package tools provides the external-information tools the Solver can
// draw on when a subtask needs more than the model's own knowledge.
package tools

import (
	"context"
	"sort"
)

// Tool fetches or derives external information for the pipeline.
type Tool interface {
	Name() string
	Execute(ctx context.Context, inputs map[string]any) (output any, logs string, err error)
}

// Registry holds the tools available to a run. Built once at wiring time,
// read-only afterwards.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}}
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in stable order. The Solver
// advertises these to the model as candidates for suggested_tools.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
