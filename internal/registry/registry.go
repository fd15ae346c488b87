// Package registry maps Terraform state resource groups to the handlers that
// extract their identifiers and fetch their live counterparts.
package registry

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/edeas123/aws-terraform-casper/types"
)

// Source lists live resources of a canonical group.
type Source interface {
	Fetch(ctx context.Context, tag string) (types.LiveResources, error)
}

// Handler knows how to read one resource group.
type Handler interface {
	// Tag returns the canonical group used for reporting and comparison.
	Tag() string

	// ExtractID pulls the identifier out of `terraform state show` output.
	ExtractID(text string) (string, bool)

	// FetchLive lists the live resources of the canonical group.
	FetchLive(ctx context.Context, src Source) (types.LiveResources, error)
}

// Registry is a static table of handlers keyed by raw state group.
type Registry struct {
	handlers map[string]Handler
}

// New returns a registry with every built-in handler registered.
func New() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	for _, e := range builtins {
		r.Register(e.group, NewFieldHandler(e.tag, e.field))
	}
	return r
}

// Register adds or replaces the handler for a raw group.
func (r *Registry) Register(group string, h Handler) {
	r.handlers[Normalize(group)] = h
}

// Lookup returns the handler for a raw group.
func (r *Registry) Lookup(group string) (Handler, bool) {
	h, ok := r.handlers[Normalize(group)]
	return h, ok
}

// Groups returns the registered raw groups in sorted order.
func (r *Registry) Groups() []string {
	groups := make([]string, 0, len(r.handlers))
	for g := range r.handlers {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Normalize trims and lower-cases a group and turns dashes into underscores.
func Normalize(group string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(group)), "-", "_")
}

// FieldHandler extracts the identifier from a single `<field> = <value>`
// attribute.
type FieldHandler struct {
	tag     string
	pattern *regexp.Regexp
}

// NewFieldHandler creates a handler reporting under tag and reading field.
func NewFieldHandler(tag, field string) *FieldHandler {
	return &FieldHandler{
		tag:     tag,
		pattern: regexp.MustCompile(`(?m)^([ \t]*)` + regexp.QuoteMeta(field) + `[ \t]*=[ \t]*(.*?)[ \t\r]*$`),
	}
}

// Tag implements Handler.
func (h *FieldHandler) Tag() string { return h.tag }

// ExtractID implements Handler. When the field occurs several times the
// least indented occurrence wins, so top-level attributes beat attributes of
// nested blocks.
func (h *FieldHandler) ExtractID(text string) (string, bool) {
	best := -1
	value := ""
	for _, m := range h.pattern.FindAllStringSubmatch(text, -1) {
		if best >= 0 && len(m[1]) >= best {
			continue
		}
		best = len(m[1])
		value = unquote(m[2])
	}
	if value == "" {
		return "", false
	}
	return value, true
}

// FetchLive implements Handler.
func (h *FieldHandler) FetchLive(ctx context.Context, src Source) (types.LiveResources, error) {
	return src.Fetch(ctx, h.tag)
}

func unquote(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return strings.TrimSpace(v)
}
