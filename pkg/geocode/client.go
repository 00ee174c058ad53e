// Package geocode resolves postal addresses to coordinates through a Nominatim search endpoint.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/provider-directory/internal/resilience"
)

// DefaultURL is the public OpenStreetMap Nominatim search endpoint.
const DefaultURL = "https://nominatim.openstreetmap.org/search"

// DefaultInterval is the minimum spacing between two upstream requests.
const DefaultInterval = 1100 * time.Millisecond

// Client geocodes addresses.
type Client interface {
	// Geocode returns Matched=false, not an error, when the upstream has no hit.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)
}

// AddressInput is the structured address sent upstream. Empty parts are omitted.
type AddressInput struct {
	Street string
	House  string
	City   string
	Plz    string
}

// IsEmpty reports whether no address part is set.
func (a AddressInput) IsEmpty() bool {
	return a.Street == "" && a.House == "" && a.City == "" && a.Plz == ""
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Matched     bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL points the client at a different search endpoint.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		if u != "" {
			g.baseURL = u
		}
	}
}

// WithUserAgent sets the User-Agent header; Nominatim rejects anonymous clients.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		if ua != "" {
			g.userAgent = ua
		}
	}
}

// WithInterval spaces requests at least d apart. Zero disables limiting.
func WithInterval(d time.Duration) Option {
	return func(g *geocoder) {
		if d <= 0 {
			g.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		g.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithBackoff overrides the retry policy for transient upstream failures.
func WithBackoff(b resilience.Backoff) Option {
	return func(g *geocoder) {
		g.backoff = b
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	backoff    resilience.Backoff
}

// NewClient creates a Nominatim-backed Client.
func NewClient(opts ...Option) Client {
	b := resilience.DefaultBackoff()
	b.OnRetry = resilience.LogRetry("geocode.nominatim")

	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultURL,
		userAgent:  "directory/1.0",
		limiter:    rate.NewLimiter(rate.Every(DefaultInterval), 1),
		backoff:    b,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode resolves addr, retrying rate limits and server errors.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	if addr.IsEmpty() {
		return &Result{Matched: false}, nil
	}
	return resilience.Do(ctx, g.backoff, func(ctx context.Context) (*Result, error) {
		return g.search(ctx, addr)
	})
}
