// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// maxRetryDelay caps the doubling backoff between embedding attempts.
const maxRetryDelay = 30 * time.Second

// retryPolicy re-runs a failing embedding call with doubling delays.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// delay returns the wait before the attempt following attempt.
func (r retryPolicy) delay(attempt int) time.Duration {
	d := r.baseDelay
	for i := 1; i < attempt && d > 0 && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d <= 0 || d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// do calls op until it succeeds, the attempt budget is spent or ctx ends.
// Cancellation is never retried. The last error from op is returned.
func (r retryPolicy) do(ctx context.Context, op func(attempt int) error) error {
	if r.maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(attempt)
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("embedding succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if attempt == r.maxAttempts {
			break
		}

		wait := r.delay(attempt)
		logger.Debug("embedding failed, retrying", "attempt", attempt, "max_attempts", r.maxAttempts, "wait", wait, "err", lastErr)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
