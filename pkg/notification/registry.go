package notification

import (
	"fmt"
	"regexp"
	"time"
)

// Type describes a notification type from the static catalog: its category,
// default priority, default channel set, templates and optional expiry.
type Type struct {
	ID              string
	Category        Category
	Priority        Priority
	TitleTemplate   string
	BodyTemplate    string
	DefaultChannels []Channel
	// ExpireAfter is the lifetime of notifications of this type.
	// Zero means notifications never expire.
	ExpireAfter time.Duration
}

func (t Type) validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidType)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: type %q has unknown category %q", ErrInvalidType, t.ID, t.Category)
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: type %q has unknown priority %d", ErrInvalidType, t.ID, t.Priority)
	}
	if t.BodyTemplate == "" {
		return fmt.Errorf("%w: type %q has empty body template", ErrInvalidType, t.ID)
	}
	if len(t.DefaultChannels) == 0 {
		return fmt.Errorf("%w: type %q has no default channels", ErrInvalidType, t.ID)
	}
	for _, ch := range t.DefaultChannels {
		if !ch.Valid() {
			return fmt.Errorf("%w: type %q references unknown channel %q", ErrInvalidType, t.ID, ch)
		}
	}
	return nil
}

// Registry is the immutable catalog of notification types, built once at
// process start. Lookups are pure and safe for concurrent use.
type Registry struct {
	types map[string]Type
}

// NewRegistry builds a registry from the given types, validating each entry.
// Type ids must be unique across the catalog.
func NewRegistry(types ...Type) (*Registry, error) {
	r := &Registry{types: make(map[string]Type, len(types))}
	for _, t := range types {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, exists := r.types[t.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTypeID, t.ID)
		}
		r.types[t.ID] = t
	}
	return r, nil
}

// Resolve returns the notification type for the given id.
func (r *Registry) Resolve(typeID string) (Type, error) {
	t, ok := r.types[typeID]
	if !ok {
		return Type{}, fmt.Errorf("%w: %q", ErrTypeNotFound, typeID)
	}
	return t, nil
}

// Len returns the number of types in the catalog.
func (r *Registry) Len() int {
	return len(r.types)
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{key}} placeholders in the type's title and body
// templates with values from vars. An unresolved placeholder is left verbatim
// so a missing variable shows up in the rendered text instead of producing
// silently blank output.
func (r *Registry) Render(t Type, vars map[string]any) (title, body string) {
	return renderTemplate(t.TitleTemplate, vars), renderTemplate(t.BodyTemplate, vars)
}

func renderTemplate(tmpl string, vars map[string]any) string {
	if tmpl == "" || len(vars) == 0 {
		return tmpl
	}
	return placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		v, ok := vars[key]
		if !ok {
			return match
		}
		return fmt.Sprint(v)
	})
}
