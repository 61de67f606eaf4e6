package reference

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

// GCSSource downloads the reference object from a Cloud Storage bucket.
// With no TokenSource or HTTPClient set it uses application default credentials.
type GCSSource struct {
	Bucket string
	Object string

	TokenSource oauth2.TokenSource
	HTTPClient  *http.Client
	Endpoint    string
}

func (s GCSSource) Name() string {
	return fmt.Sprintf("gs://%s/%s", s.Bucket, s.Object)
}

func (s GCSSource) Fetch(ctx context.Context) ([]byte, error) {
	opts, err := s.clientOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs auth: %w", err)
	}

	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs service: %w", err)
	}

	resp, err := svc.Objects.Get(s.Bucket, s.Object).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("gcs download %s: %w", s.Name(), err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func (s GCSSource) clientOptions(ctx context.Context) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if s.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.Endpoint))
	}

	switch {
	case s.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(s.HTTPClient))
	case s.TokenSource != nil:
		opts = append(opts, option.WithTokenSource(s.TokenSource))
	default:
		ts, err := google.DefaultTokenSource(ctx, storage.DevstorageReadOnlyScope)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithTokenSource(ts))
	}
	return opts, nil
}
