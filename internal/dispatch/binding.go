package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidPrefix   = errors.New("invalid prefix")
	ErrNilHandler      = errors.New("nil handler")
	ErrDuplicatePrefix = errors.New("duplicate prefix")
)

// Binding associates a path prefix with the handler that serves everything under it.
type Binding struct {
	Prefix  string       `validate:"required,startswith=/"`
	Name    string       `validate:"-"`
	Handler http.Handler `validate:"-"`
}

// Shadow describes a binding that can never be reached in ordered mode
// because an earlier, more general prefix always matches first.
type Shadow struct {
	Binding    Binding
	ShadowedBy Binding
}

// RouteTable is an ordered, immutable list of bindings.
// It is built once at startup and only read afterwards, so it is safe to share between goroutines.
type RouteTable struct {
	bindings []Binding
}

var bindingValidator = validator.New()

// NewRouteTable validates and freezes the bindings in the given order.
func NewRouteTable(bindings ...Binding) (*RouteTable, error) {
	out := make([]Binding, 0, len(bindings))
	seen := make(map[string]int, len(bindings))

	for i, b := range bindings {
		if err := bindingValidator.Struct(b); err != nil {
			return nil, fmt.Errorf("binding #%d %q: %w", i, b.Prefix, ErrInvalidPrefix)
		}
		if b.Handler == nil {
			return nil, fmt.Errorf("binding #%d %q: %w", i, b.Prefix, ErrNilHandler)
		}
		b.Prefix = normalizePrefix(b.Prefix)
		if b.Name == "" {
			b.Name = b.Prefix
		}
		if j, ok := seen[b.Prefix]; ok {
			return nil, fmt.Errorf("binding #%d %q already registered as #%d: %w", i, b.Prefix, j, ErrDuplicatePrefix)
		}
		seen[b.Prefix] = i
		out = append(out, b)
	}

	return &RouteTable{bindings: out}, nil
}

// Bindings returns a copy of the table in registration order.
func (t *RouteTable) Bindings() []Binding {
	if t == nil {
		return nil
	}
	out := make([]Binding, len(t.bindings))
	copy(out, t.bindings)
	return out
}

func (t *RouteTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.bindings)
}

// Shadowed lists bindings that an earlier binding makes unreachable.
// Only the first shadowing binding is reported for each entry.
func (t *RouteTable) Shadowed() []Shadow {
	if t == nil {
		return nil
	}
	var out []Shadow
	for i, later := range t.bindings {
		for _, earlier := range t.bindings[:i] {
			if MatchPath(later.Prefix, earlier.Prefix) {
				out = append(out, Shadow{Binding: later, ShadowedBy: earlier})
				break
			}
		}
	}
	return out
}

// MatchPath reports whether requestPath falls under prefix on a segment boundary:
// "/book" matches "/book" and "/book/flights" but not "/booked". "/" matches every path.
func MatchPath(requestPath, prefix string) bool {
	if prefix == "" {
		return false
	}
	if prefix == "/" {
		return true
	}
	if requestPath == prefix {
		return true
	}
	return strings.HasPrefix(requestPath, prefix) &&
		len(requestPath) > len(prefix) &&
		requestPath[len(prefix)] == '/'
}

// stripPrefix removes a matched prefix; an empty remainder becomes "/".
func stripPrefix(requestPath, prefix string) string {
	if prefix == "/" {
		return requestPath
	}
	rest := strings.TrimPrefix(requestPath, prefix)
	if rest == "" {
		return "/"
	}
	return rest
}

func normalizePrefix(p string) string {
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}
