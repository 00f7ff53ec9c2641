package interfaces

import (
	"context"
	"time"
)

// Publisher uploads a rendered dashboard and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, html []byte, at time.Time) (string, error)
}
