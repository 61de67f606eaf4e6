package queue

import (
	"context"
	"encoding/json"
	"errors"

	build "shorts-doc-pipeline/05_build"
	"shorts-doc-pipeline/types"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// Publisher sends a result message
type Publisher interface {
	Publish(ctx context.Context, queueName, correlationID string, body []byte) error
}

// BuildResult is published for every consumed build command
type BuildResult struct {
	BuildID       string           `json:"build_id,omitempty"`
	CorrelationID string           `json:"correlation_id,omitempty"`
	Document      *types.Document  `json:"document,omitempty"`
	Plan          *types.ScenePlan `json:"plan,omitempty"`
	Error         string           `json:"error,omitempty"`
	ErrorKind     string           `json:"error_kind,omitempty"`
	Violations    []string         `json:"violations,omitempty"`
}

// Worker turns build commands into build results
type Worker struct {
	svc         build.Service
	pub         Publisher
	resultQueue string
}

// NewWorker creates a Worker publishing to resultQueue
func NewWorker(svc build.Service, pub Publisher, resultQueue string) *Worker {
	return &Worker{svc: svc, pub: pub, resultQueue: resultQueue}
}

// Process runs one build command. It never fails: every outcome, bad input
// included, becomes a result message.
func (w *Worker) Process(ctx context.Context, body []byte, correlationID string) BuildResult {
	out := BuildResult{CorrelationID: correlationID}

	var req types.BuildRequest
	if err := json.Unmarshal(body, &req); err != nil {
		out.Error = "invalid build command: " + err.Error()
		out.ErrorKind = "bad_request"
		return out
	}

	res, err := w.svc.Build(ctx, req)
	if err != nil {
		out.Error = err.Error()
		out.ErrorKind = types.ErrorKind(err)
		var failure *types.ValidationFailure
		if errors.As(err, &failure) {
			out.Violations = failure.Violations
		}
		return out
	}

	out.BuildID = res.BuildID
	out.Document = res.Document
	out.Plan = res.Plan
	return out
}

// Run consumes deliveries until the channel closes or ctx is done. A
// delivery is acked once its result is published; if publishing fails it is
// requeued.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	log.Info().Str("stage", "worker").Str("correlation_id", d.CorrelationId).Int("bytes", len(d.Body)).Msg("📥 build command received")

	result := w.Process(ctx, d.Body, d.CorrelationId)
	if result.Error != "" {
		log.Warn().Str("stage", "worker").Str("kind", result.ErrorKind).Str("error", result.Error).Msg("build failed")
	}

	body, err := json.Marshal(result)
	if err == nil {
		err = w.pub.Publish(ctx, w.resultQueue, d.CorrelationId, body)
	}
	if err != nil {
		log.Error().Err(err).Str("stage", "worker").Msg("could not publish result, requeueing")
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error().Err(nackErr).Msg("nack failed")
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.Error().Err(err).Msg("ack failed")
	}
}
