package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// maxDocumentBytes bounds watch pages and caption documents.
const maxDocumentBytes = 8 << 20

// fetcher issues rate limited GETs for watch pages and caption documents.
// One fetcher is shared by all strategies so the limit applies process wide.
type fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func newFetcher(userAgent string, rps float64) *fetcher {
	if rps <= 0 {
		rps = 2
	}
	return &fetcher{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		userAgent: userAgent,
	}
}

// HTTPStatusError reports a non-200 caption source response.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		return "rate limited by YouTube"
	case http.StatusForbidden:
		return "access denied: video region restricted or captions disabled"
	case http.StatusNotFound:
		return "captions not found"
	}
	return fmt.Sprintf("caption source returned status %d", e.StatusCode)
}

func (f *fetcher) get(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
}
