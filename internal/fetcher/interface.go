package fetcher

import (
	"context"

	"bold-client-go/internal/model"
)

// PayloadFetcher fetches raw BOLD payloads (Client)
type PayloadFetcher interface {
	Fetch(ctx context.Context, mode model.QueryMode, q *Query) ([]byte, error)
	URL(mode model.QueryMode, q *Query) (string, error)
}

var _ PayloadFetcher = (*Client)(nil)
