package build

import (
	"context"
	"time"

	"shorts-doc-pipeline/types"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Service is what the CLI, HTTP and queue surfaces call
type Service interface {
	Build(ctx context.Context, req types.BuildRequest) (*Result, error)
}

// Runner applies the caller's retry policy around a Builder
type Runner struct {
	Builder *Builder
	Options Options
}

// Build runs the whole build up to Options.MaxAttempts times. Only schema
// load, planning and assembly failures are retried; a validation failure is final.
func (r Runner) Build(ctx context.Context, req types.BuildRequest) (*Result, error) {
	attempts := max(r.Options.MaxAttempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var res *Result
		res, err = r.Builder.Build(ctx, req, r.Options)
		if err == nil {
			return res, nil
		}
		if !types.Retryable(err) || attempt == attempts {
			break
		}

		wait := r.Options.RetryBackoff * time.Duration(1<<(attempt-1))
		log.Warn().Err(err).Str("stage", "build").Int("attempt", attempt).Dur("wait", wait).Msg("build failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, err
}

// BatchItem is the outcome of one request in a batch
type BatchItem struct {
	Index  int
	Result *Result
	Err    error
}

// RunBatch builds independent requests concurrently, at most limit at a
// time. One failed build never stops the others.
func RunBatch(ctx context.Context, svc Service, reqs []types.BuildRequest, limit int) []BatchItem {
	items := make([]BatchItem, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i := range reqs {
		i := i
		g.Go(func() error {
			res, err := svc.Build(gctx, reqs[i])
			items[i] = BatchItem{Index: i, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	log.Info().Str("stage", "batch").Int("total", len(reqs)).Int("failed", failed).Msg("batch finished")
	return items
}
