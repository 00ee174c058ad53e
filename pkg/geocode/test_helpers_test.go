package geocode

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/provider-directory/internal/resilience"
)

// newTestGeocoder builds a geocoder against srvURL with no rate limit and fast retries.
func newTestGeocoder(srvURL string) *geocoder {
	return &geocoder{
		httpClient: http.DefaultClient,
		baseURL:    srvURL,
		userAgent:  "directory-test",
		limiter:    rate.NewLimiter(rate.Inf, 1),
		backoff:    resilience.Backoff{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond},
	}
}
