package service

import (
	"context"
	"time"

	sentry "github.com/getsentry/sentry-go"

	"github.com/sellora/marketplace/libs/clients"
	"github.com/sellora/marketplace/libs/logging"
)

// JobFunc - type that defines what a Job Function should look like.
// The bool reports whether any work was attempted.
type JobFunc func(context.Context) (bool, error)

// Job - Structure defining what a common job meta-information
type Job struct {
	Func    JobFunc
	Workers int
	Cadence time.Duration
}

// JobService - interface defining what can have jobs
type JobService interface {
	Jobs() []Job
}

// JobWorker - a job worker, runs job every duration until ctx is done
func JobWorker(ctx context.Context, job JobFunc, duration time.Duration) {
	logger := logging.Logger(ctx, "service.JobWorker")
	for ctx.Err() == nil {
		_, err := job(ctx)
		if err != nil {
			log := logger.Error().Err(err)
			if state, serr := clients.UnwrapHTTPState(err); serr == nil {
				log = log.Int("status", state.Status).
					Str("path", state.Path).
					Interface("data", state.Body)
			}
			log.Msg("error encountered in job run")
			sentry.CaptureException(err)
		}

		// regardless if attempted or not, wait for the duration until retrying
		select {
		case <-ctx.Done():
			return
		case <-time.After(duration):
		}
	}
}
