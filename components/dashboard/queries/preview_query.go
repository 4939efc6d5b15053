package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/goliatone/go-chartboard/components/dashboard"
)

// PreviewInput names the endpoint to fetch and classify.
type PreviewInput struct {
	Endpoint string
}

type previewService interface {
	Preview(ctx context.Context, endpoint string) dashboard.Preview
}

// PreviewQuery fetches an endpoint once and classifies its payload. Fetch
// failures come back as an unavailable preview, never as an error.
type PreviewQuery struct {
	service previewService
}

// NewPreviewQuery builds the query.
func NewPreviewQuery(service previewService) *PreviewQuery {
	return &PreviewQuery{service: service}
}

var _ gocommand.Querier[PreviewInput, dashboard.Preview] = (*PreviewQuery)(nil)

// Query runs the preview.
func (q *PreviewQuery) Query(ctx context.Context, input PreviewInput) (dashboard.Preview, error) {
	return q.service.Preview(ctx, input.Endpoint), nil
}
