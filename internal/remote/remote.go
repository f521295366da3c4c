package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrNotFound is returned when the remote store has no object with the
// requested filename. Callers map it to HTTP 404 instead of a generic failure.
var ErrNotFound = errors.New("asset not found in remote store")

// StatusError is returned when the remote store responds with an unexpected status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote store returned status %d", e.StatusCode)
}

// Store fetches raw asset bytes from the remote object-storage bucket.
type Store interface {
	Fetch(ctx context.Context, filename string) (io.ReadCloser, int64, error)
}
