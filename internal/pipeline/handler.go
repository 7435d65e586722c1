package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getsentry/sentry-go"

	"github.com/longscribe/backend/internal/chunk"
	"github.com/longscribe/backend/internal/job"
	"github.com/longscribe/backend/internal/progress"
	"github.com/longscribe/backend/internal/subtitle"
)

// NewJobHandler adapts the pipeline to the job queue. Progress flows into
// the queue's jobs table and, when the submitter gave a callback URL, out as
// webhooks.
func NewJobHandler(p *Pipeline, queue *job.JobQueue) job.Handler {
	return func(ctx context.Context, j *job.Job) (json.RawMessage, error) {
		var params job.TranscribeParams
		if len(j.Params) > 0 {
			if err := json.Unmarshal(j.Params, &params); err != nil {
				return nil, fmt.Errorf("decode job params: %w", err)
			}
		}

		strategy, err := chunk.ParseStrategy(params.Strategy)
		if err != nil {
			return nil, err
		}

		reporter := progress.NewReporter(j.ID, params.CallbackURL, queue.UpdateProgress)
		reporter.SetCallbackID(params.JobID)
		result, err := p.Run(ctx, j.FilePath, Options{
			Language:    params.Language,
			Strategy:    strategy,
			Diarize:     params.Diarize,
			MinSpeakers: params.MinSpeakers,
			MaxSpeakers: params.MaxSpeakers,
			Dialect:     subtitle.Dialect(params.Dialect),
		}, reporter)
		if err != nil {
			sentry.CaptureException(err)
			return nil, err
		}
		return json.Marshal(result)
	}
}
