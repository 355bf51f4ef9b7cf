package prompts

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// ErrUnknownTemplate is returned when a stage names a template the registry does not hold.
var ErrUnknownTemplate = errors.New("unknown prompt template")

// Substitution is either a present value or an explicit absence.
// A failed stage yields Missing so later prompts never see stale or fabricated text.
type Substitution struct {
	value   string
	present bool
}

// Present wraps an available value.
func Present(value string) Substitution {
	return Substitution{value: value, present: true}
}

// Missing marks a value that was expected but is not available.
func Missing() Substitution {
	return Substitution{}
}

// Value returns the wrapped value and whether it is present.
func (s Substitution) Value() (string, bool) {
	return s.value, s.present
}

var placeholder = regexp.MustCompile(`\{([a-z][a-z0-9_]*)\}`)

// Registry holds named prompt templates and the shared system prompt.
type Registry struct {
	system    string
	templates map[string]string
}

// NewRegistry starts from the built-in templates and applies overrides on top.
// Empty override values are ignored.
func NewRegistry(system string, overrides map[string]string) *Registry {
	templates := maps.Clone(defaultTemplates)
	for name, body := range overrides {
		if strings.TrimSpace(body) == "" {
			continue
		}
		templates[name] = body
	}

	if strings.TrimSpace(system) == "" {
		system = DefaultSystemPrompt
	}

	return &Registry{system: system, templates: templates}
}

// SystemPrompt returns the instruction sent with every generation call.
func (r *Registry) SystemPrompt() string {
	return r.system
}

// Has reports whether a template is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Names lists registered templates in lexical order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.templates))
}

// Render fills {key} placeholders. Keys that are Missing or not supplied render as
// "[unavailable: key]".
func (r *Registry) Render(name string, subs map[string]Substitution) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}

	out := placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := match[1 : len(match)-1]
		if value, ok := subs[key].Value(); ok {
			return value
		}
		return unavailable(key)
	})
	return out, nil
}

func unavailable(key string) string {
	return "[unavailable: " + key + "]"
}
