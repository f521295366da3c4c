package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultUserAgent = "mediacache/1.0 (+https://github.com/veldtmedia/mediacache)"

// HTTPStore fetches assets from a public bucket with plain HTTPS GETs:
// GET <base-url>/<urlencoded-filename>.
type HTTPStore struct {
	BaseURL   string
	Client    *http.Client
	UserAgent string
}

// NewHTTPStore returns a store for the bucket at baseURL. If client is nil a
// client with a bounded timeout is used; downloads must never hang forever.
func NewHTTPStore(baseURL string, client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPStore{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    client,
		UserAgent: defaultUserAgent,
	}
}

func (s *HTTPStore) Fetch(ctx context.Context, filename string) (io.ReadCloser, int64, error) {
	u := fmt.Sprintf("%s/%s", s.BaseURL, url.PathEscape(filename))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", s.UserAgent)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", filename, err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, resp.ContentLength, nil
	case http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, 0, fmt.Errorf("fetch %s: %w", filename, ErrNotFound)
	default:
		_ = resp.Body.Close()
		return nil, 0, fmt.Errorf("fetch %s: %w", filename, &StatusError{StatusCode: resp.StatusCode})
	}
}
