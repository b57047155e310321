package pkg

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// FeedRetriever returns the raw body of a feed endpoint.
type FeedRetriever interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// NetworkError reports a feed request that could not complete or came back
// with a non-success status. StatusCode is zero when no response arrived.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

type HTTPFeedRetriever struct {
	client *resty.Client
}

// NewHTTPFeedRetriever performs a single GET per Fetch; there is no retry
// policy and no caching.
func NewHTTPFeedRetriever(timeout time.Duration) *HTTPFeedRetriever {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/javascript, text/plain, */*")
	return &HTTPFeedRetriever{client: client}
}

func (r *HTTPFeedRetriever) Fetch(ctx context.Context, url string) (string, error) {
	res, err := r.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", &NetworkError{URL: url, Err: err}
	}
	if res.IsError() || res.StatusCode() < 200 || res.StatusCode() > 299 {
		return "", &NetworkError{
			URL:        url,
			StatusCode: res.StatusCode(),
			Err:        fmt.Errorf("%s", res.Status()),
		}
	}
	return res.String(), nil
}
