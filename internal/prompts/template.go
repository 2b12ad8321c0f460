// Package prompts holds the parameterized prompt templates for each
// pipeline stage and the registry that maps stages to them.
package prompts

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/example/deepthink/internal/models"
)

// placeholderPattern matches {{name}} placeholders in template text.
var placeholderPattern = regexp.MustCompile(`\{\{([a-z_]+)\}\}`)

// MissingParameterError reports an unfilled required placeholder.
type MissingParameterError struct {
	Template string
	Param    string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("template %s: missing parameter %q", e.Template, e.Param)
}

// Template is a parameterized prompt for one stage. Read-only after
// construction.
type Template struct {
	name  string
	stage models.Stage
	text  string
}

// Name returns the template identifier.
func (t *Template) Name() string { return t.name }

// Stage returns the pipeline stage this template serves.
func (t *Template) Stage() models.Stage { return t.stage }

// RequiredParams returns the distinct placeholder names in the template.
func (t *Template) RequiredParams() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(t.text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// Render substitutes params into the template, failing with a
// *MissingParameterError naming the first absent key.
func (t *Template) Render(params map[string]string) (string, error) {
	var missing string
	rendered := placeholderPattern.ReplaceAllStringFunc(t.text, func(m string) string {
		key := strings.Trim(m, "{}")
		v, ok := params[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return m
		}
		return v
	})
	if missing != "" {
		return "", &MissingParameterError{Template: t.name, Param: missing}
	}
	return rendered, nil
}

// Registry maps stages to their templates. Templates are registered once at
// construction; lookup is the only operation afterwards.
type Registry struct {
	byStage map[models.Stage]*Template
}

// NewRegistry returns a registry preloaded with the default template for
// every stage.
func NewRegistry() *Registry {
	r := &Registry{byStage: map[models.Stage]*Template{}}
	for _, t := range defaultTemplates() {
		r.byStage[t.stage] = t
	}
	return r
}

// ForStage returns the template registered for stage, if any.
func (r *Registry) ForStage(stage models.Stage) (*Template, bool) {
	t, ok := r.byStage[stage]
	return t, ok
}
