package pipeline

import (
	"math"
	"time"

	"swift-gateway/pkg/models"
)

// RetryPolicy bounds how often a failing stage is attempted and how long to
// wait between attempts.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Backoff returns the exponential delay before the given retry attempt
// (attempt 1 = first retry), capped at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(math.Min(
		float64(p.BaseBackoff)*math.Pow(2, float64(attempt-1)),
		float64(p.MaxBackoff),
	))
}

// retryPolicies maps a pipeline stage to its retry budget. Parsing keeps the
// same budget as persistence even though a malformed message fails
// identically on every attempt; restricting it to a single attempt is a
// per-stage change here.
type retryPolicies struct {
	parsing    RetryPolicy
	persisting RetryPolicy
	routing    RetryPolicy
}

func newRetryPolicies(maxRetries int, base, max time.Duration) retryPolicies {
	p := RetryPolicy{MaxAttempts: maxRetries, BaseBackoff: base, MaxBackoff: max}
	return retryPolicies{parsing: p, persisting: p, routing: p}
}

// PolicyFor returns the retry budget for a stage. Validation is always a
// single attempt: a business-rule violation never changes on retry.
func (r retryPolicies) PolicyFor(stage models.Stage) RetryPolicy {
	switch stage {
	case models.StageParsing:
		return r.parsing
	case models.StagePersisting:
		return r.persisting
	case models.StageRouting:
		return r.routing
	default:
		return RetryPolicy{MaxAttempts: 1}
	}
}
