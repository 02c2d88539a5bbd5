/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package resilience

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tomoncle/crmjunction/database"
	"github.com/tomoncle/crmjunction/metrics"
)

const statusNotFound = "not_found"

// Operation names a unit of work for logs and metrics.
type Operation struct {
	Name  string
	Table string
}

// Executor runs database work with retries on transient failures, logging
// and metrics. A nil *Executor behaves like NewExecutor(DefaultPolicy(), nil, nil).
type Executor struct {
	policy    Policy
	logger    database.Logger
	metrics   *metrics.JunctionMetrics
	transient func(error) bool
}

func NewExecutor(policy Policy, logger database.Logger, m *metrics.JunctionMetrics) *Executor {
	if logger == nil {
		logger = database.GetLogger()
	}
	return &Executor{
		policy:    policy.normalize(),
		logger:    logger,
		metrics:   m,
		transient: database.IsTransient,
	}
}

func (e *Executor) Policy() Policy {
	if e == nil {
		return DefaultPolicy()
	}
	return e.policy
}

// Once returns a copy of e that runs every operation exactly once. Work
// inside a transaction uses it: a failed statement aborts the transaction,
// so only the caller can retry it as a whole.
func (e *Executor) Once() *Executor {
	clone := *e.orDefault()
	clone.policy = NoRetry().normalize()
	return &clone
}

func (e *Executor) orDefault() *Executor {
	if e != nil {
		return e
	}
	return NewExecutor(DefaultPolicy(), nil, nil)
}

// ExecuteWithResilienceAndLogging runs fn until it succeeds, fails with a
// non-transient error, or the policy or ctx gives up. sql.ErrNoRows is
// returned as is and not counted as a failure.
func (e *Executor) ExecuteWithResilienceAndLogging(ctx context.Context, op Operation, fn func(ctx context.Context) error) error {
	e = e.orDefault()
	start := time.Now()
	attempt := 0

	retryable := func() error {
		attempt++
		err := fn(ctx)
		if err == nil || errors.Is(err, sql.ErrNoRows) {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil || !e.transient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		e.metrics.RecordRetry(op.Name, op.Table)
		e.logger.Warn("transient database error, retrying",
			"operation", op.Name,
			"table", op.Table,
			"attempt", attempt,
			"wait", wait.String(),
			"error", err.Error())
	}

	err := backoff.RetryNotify(retryable, e.policy.backOff(ctx), notify)
	duration := time.Since(start)

	switch {
	case err == nil:
		e.metrics.RecordOperation(op.Name, op.Table, metrics.StatusSuccess, duration)
		e.logger.Debug("operation completed",
			"operation", op.Name,
			"table", op.Table,
			"attempts", attempt,
			"duration", duration.String())
	case errors.Is(err, sql.ErrNoRows):
		e.metrics.RecordOperation(op.Name, op.Table, statusNotFound, duration)
		e.logger.Debug("operation found no rows",
			"operation", op.Name,
			"table", op.Table,
			"duration", duration.String())
	default:
		e.metrics.RecordOperation(op.Name, op.Table, metrics.StatusError, duration)
		e.metrics.RecordError(op.Name, op.Table, database.ErrorType(err))
		e.logger.Error("operation failed",
			"operation", op.Name,
			"table", op.Table,
			"attempts", attempt,
			"duration", duration.String(),
			"error", err.Error())
	}
	return err
}

// Execute is ExecuteWithResilienceAndLogging for work that returns a value.
// The value of the last attempt is returned.
func Execute[T any](ctx context.Context, e *Executor, op Operation, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.ExecuteWithResilienceAndLogging(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
