package textgen

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/scholarsync/pkg/logger"
)

// Option configures a Gemini client.
type Option func(*Gemini)

// WithModel selects the model name, e.g. "gemini-1.5-flash".
func WithModel(model string) Option {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithBaseURL overrides the API root.
func WithBaseURL(base string) Option {
	return func(g *Gemini) {
		if base != "" {
			g.baseURL = base
		}
	}
}

// WithTimeout bounds each call, including the wait for the rate limiter.
func WithTimeout(d time.Duration) Option {
	return func(g *Gemini) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithRateLimit allows rps calls per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gemini) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gemini) {
		if c != nil {
			g.client = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(g *Gemini) {
		if l != nil {
			g.logger = l
		}
	}
}
