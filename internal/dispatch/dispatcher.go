// Package dispatch routes incoming requests to area handlers by ordered path prefix.
//
// The Dispatcher answers the reserved /health probe itself and forwards every
// other request to the first binding whose prefix matches, with the prefix stripped.
package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/maxviazov/booking-gateway/pkg/response"
)

// HealthPath is answered by the dispatcher before the route table is consulted.
const HealthPath = "/health"

// MatchMode selects how a binding is chosen when several prefixes match.
type MatchMode string

const (
	// MatchOrdered picks the first matching binding in registration order.
	MatchOrdered MatchMode = "ordered"
	// MatchLongest picks the most specific matching prefix regardless of order.
	MatchLongest MatchMode = "longest"
)

func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchOrdered:
		return MatchOrdered, nil
	case MatchLongest:
		return MatchLongest, nil
	default:
		return "", fmt.Errorf("unknown match mode %q", s)
	}
}

// Outcome is the routing decision taken for one request.
type Outcome string

const (
	OutcomeHealth   Outcome = "health"
	OutcomeRouted   Outcome = "routed"
	OutcomeNotFound Outcome = "not_found"
	OutcomeRedirect Outcome = "redirect"
)

// Observer is notified of every routing decision before the handler runs.
// binding is empty for health, redirect and not-found outcomes.
type Observer interface {
	Dispatched(binding string, outcome Outcome)
}

type nopObserver struct{}

func (nopObserver) Dispatched(string, Outcome) {}

// Dispatcher is an http.Handler over an immutable RouteTable.
type Dispatcher struct {
	table    *RouteTable
	mode     MatchMode
	notFound http.Handler
	observer Observer
	now      func() time.Time
}

type Option func(*Dispatcher)

// WithNotFound replaces the terminal handler used when no binding matches.
func WithNotFound(h http.Handler) Option {
	return func(d *Dispatcher) {
		if h != nil {
			d.notFound = h
		}
	}
}

func WithMatchMode(m MatchMode) Option {
	return func(d *Dispatcher) { d.mode = m }
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithClock overrides the time source of the health responder.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDispatcher(table *RouteTable, opts ...Option) *Dispatcher {
	if table == nil {
		table = &RouteTable{}
	}
	d := &Dispatcher{
		table:    table,
		mode:     MatchOrdered,
		notFound: http.HandlerFunc(notFound),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Table exposes the route table the dispatcher was built with.
func (d *Dispatcher) Table() *RouteTable { return d.table }

func (d *Dispatcher) Mode() MatchMode { return d.mode }

// Resolve returns the binding that would serve requestPath. It has no side effects.
func (d *Dispatcher) Resolve(requestPath string) (Binding, bool) {
	var (
		best  Binding
		found bool
	)
	for _, b := range d.table.bindings {
		if !MatchPath(requestPath, b.Prefix) {
			continue
		}
		if d.mode != MatchLongest {
			return b, true
		}
		if !found || len(b.Prefix) > len(best.Prefix) {
			best, found = b, true
		}
	}
	return best, found
}

// Label names the route a request would take, for logs and metrics:
// "health", "redirect" for unclean paths, the binding name, or "none" when nothing matches.
func (d *Dispatcher) Label(r *http.Request) string {
	if isHealthProbe(r) {
		return "health"
	}
	if _, ok := cleanRedirect(r); ok {
		return "redirect"
	}
	if b, ok := d.Resolve(r.URL.Path); ok {
		return b.Name
	}
	return "none"
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if isHealthProbe(r) {
		d.observer.Dispatched("", OutcomeHealth)
		d.health(w, r)
		return
	}

	// Dot segments and doubled slashes are resolved before routing, the way
	// http.ServeMux does, so a path can't pick one area and then walk out of it upstream.
	if target, ok := cleanRedirect(r); ok {
		d.observer.Dispatched("", OutcomeRedirect)
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	b, ok := d.Resolve(r.URL.Path)
	if !ok {
		d.observer.Dispatched("", OutcomeNotFound)
		d.notFound.ServeHTTP(w, r)
		return
	}

	d.observer.Dispatched(b.Name, OutcomeRouted)
	b.Handler.ServeHTTP(w, forward(r, b))
}

type healthPayload struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// isoMillis mirrors the ISO-8601 shape most clients expect: UTC, millisecond precision, "Z" suffix.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func (d *Dispatcher) health(w http.ResponseWriter, r *http.Request) {
	payload := healthPayload{
		Status:    "healthy",
		Timestamp: d.now().UTC().Format(isoMillis),
	}
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	response.WriteHTTPData(w, http.StatusOK, payload)
}

// cleanRedirect returns the canonical location for r when its path is not clean.
func cleanRedirect(r *http.Request) (string, bool) {
	if r.Method == http.MethodConnect {
		return "", false
	}
	clean := cleanPath(r.URL.Path)
	if clean == r.URL.Path {
		return "", false
	}
	u := url.URL{Path: clean, RawQuery: r.URL.RawQuery}
	return u.String(), true
}

// cleanPath is path.Clean that keeps a trailing slash and always roots the result.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	np := path.Clean(p)
	if p[len(p)-1] == '/' && np != "/" {
		np += "/"
	}
	return np
}

func isHealthProbe(r *http.Request) bool {
	if r.URL.Path != HealthPath {
		return false
	}
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	response.WriteHTTPError(w, response.ErrNotFound)
}

type ctxKey int

const (
	originalPathKey ctxKey = iota
	matchedBindingKey
)

// forward clones r with the binding prefix stripped from its path and
// remembers the original path and binding in the context.
func forward(r *http.Request, b Binding) *http.Request {
	ctx := context.WithValue(r.Context(), originalPathKey, r.URL.Path)
	ctx = context.WithValue(ctx, matchedBindingKey, b)

	r2 := r.WithContext(ctx)
	u := new(url.URL)
	*u = *r.URL
	u.Path = stripPrefix(r.URL.Path, b.Prefix)
	if r.URL.RawPath != "" {
		if MatchPath(r.URL.RawPath, b.Prefix) {
			u.RawPath = stripPrefix(r.URL.RawPath, b.Prefix)
		} else {
			u.RawPath = ""
		}
	}
	r2.URL = u
	return r2
}

// OriginalPath returns the request path as it arrived, before prefix stripping.
func OriginalPath(ctx context.Context) (string, bool) {
	p, ok := ctx.Value(originalPathKey).(string)
	return p, ok
}

// MatchedBinding returns the binding chosen for the request.
func MatchedBinding(ctx context.Context) (Binding, bool) {
	b, ok := ctx.Value(matchedBindingKey).(Binding)
	return b, ok
}

// MatchedPrefix is a shortcut for the prefix of MatchedBinding.
func MatchedPrefix(ctx context.Context) string {
	b, ok := MatchedBinding(ctx)
	if !ok {
		return ""
	}
	return b.Prefix
}
