package handler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/maxviazov/booking-gateway/internal/dispatch"
	"github.com/maxviazov/booking-gateway/internal/middleware"
	"github.com/maxviazov/booking-gateway/pkg/response"
	"github.com/rs/zerolog"
)

// ForwardedPrefixHeader tells the upstream which gateway prefix was stripped,
// so it can tell /login from /logout and build absolute links.
const ForwardedPrefixHeader = "X-Forwarded-Prefix"

// Upstream serves one booking area by proxying to the service behind it.
// An Upstream without a base URL is still mountable and answers 503.
type Upstream struct {
	name   string
	base   *url.URL
	proxy  *httputil.ReverseProxy
	client *http.Client
	log    zerolog.Logger
}

// NewUpstream builds the area handler. timeout bounds the wait for response headers and pings.
func NewUpstream(name, rawURL string, timeout time.Duration, log zerolog.Logger) (*Upstream, error) {
	u := &Upstream{
		name: name,
		log:  log.With().Str("component", "upstream").Str("area", name).Logger(),
	}
	if rawURL == "" {
		return u, nil
	}

	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("upstream %s: parse url: %w", name, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("upstream %s: unsupported scheme %q", name, base.Scheme)
	}
	u.base = base

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	u.proxy = &httputil.ReverseProxy{
		Rewrite:      u.rewrite,
		Transport:    transport,
		ErrorHandler: u.proxyError,
	}
	u.client = &http.Client{Transport: transport, Timeout: timeout}
	return u, nil
}

func (u *Upstream) Name() string { return u.name }

func (u *Upstream) Configured() bool { return u.base != nil }

// Target returns the upstream base URL, or "" when the area is not configured.
func (u *Upstream) Target() string {
	if u.base == nil {
		return ""
	}
	return u.base.String()
}

func (u *Upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if u.proxy == nil {
		response.WriteHTTPError(w, response.ErrUpstreamUnavailable)
		return
	}
	u.proxy.ServeHTTP(w, r)
}

func (u *Upstream) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(u.base)
	pr.SetXForwarded()

	ctx := pr.In.Context()
	if prefix := dispatch.MatchedPrefix(ctx); prefix != "" {
		pr.Out.Header.Set(ForwardedPrefixHeader, prefix)
	}
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		pr.Out.Header.Set(middleware.RequestIDHeader, id)
	}
}

func (u *Upstream) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(r.Context().Err(), context.Canceled) {
		// client went away; nobody is listening for the answer
		u.log.Debug().Err(err).Str("path", r.URL.Path).Msg("client canceled request")
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	mapped := response.ErrBadGateway
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		mapped = response.ErrGatewayTimeout
	}

	zerolog.Ctx(r.Context()).Error().
		Err(err).
		Str("area", u.name).
		Str("upstream", u.base.Host).
		Str("path", r.URL.Path).
		Msg("upstream request failed")
	response.WriteHTTPError(w, mapped)
}

// Ping checks GET <base>/health and treats any 2xx as ready.
func (u *Upstream) Ping(ctx context.Context) error {
	if u.base == nil {
		return response.ErrUpstreamUnavailable
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.base.JoinPath("health").String(), nil)
	if err != nil {
		return err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", response.ErrBadGateway, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: health returned %d", response.ErrBadGateway, resp.StatusCode)
	}
	return nil
}
