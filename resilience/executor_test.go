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
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crmjunction/database"
	"github.com/tomoncle/crmjunction/metrics"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:         attempts,
		InitialInterval:     time.Millisecond,
		MaxInterval:         2 * time.Millisecond,
		Multiplier:          2,
		RandomizationFactor: 0.1,
	}
}

func newTestExecutor(t *testing.T, policy Policy) (*Executor, *prometheus.Registry, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.JSONFormatter{})
	reg := prometheus.NewRegistry()
	m, err := metrics.NewJunctionMetrics(reg)
	require.NoError(t, err)
	return NewExecutor(policy, database.NewDefaultLogger(l), m), reg, &buf
}

// counterValue returns the value of the counter name with exactly labels, or
// zero when it was never incremented.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, metric := range mf.GetMetric() {
			if len(metric.GetLabel()) != len(labels) {
				continue
			}
			for _, lp := range metric.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func opLabels(op, table, status string) map[string]string {
	return map[string]string{"operation": op, "table": table, "status": status}
}

var deadlock = &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}

func TestExecutor_RetriesTransientErrors(t *testing.T) {
	exec, reg, logs := newTestExecutor(t, fastPolicy(3))
	op := Operation{Name: "add", Table: "team_users"}

	calls := 0
	err := exec.ExecuteWithResilienceAndLogging(context.Background(), op, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return deadlock
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2.0, counterValue(t, reg, "crm_junction_retries_total", map[string]string{"operation": "add", "table": "team_users"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "crm_junction_operations_total", opLabels("add", "team_users", metrics.StatusSuccess)))
	assert.Contains(t, logs.String(), "transient database error, retrying")
}

func TestExecutor_GivesUpAfterMaxAttempts(t *testing.T) {
	exec, reg, _ := newTestExecutor(t, fastPolicy(2))
	op := Operation{Name: "delete", Table: "user_roles"}

	calls := 0
	err := exec.ExecuteWithResilienceAndLogging(context.Background(), op, func(ctx context.Context) error {
		calls++
		return driver.ErrBadConn
	})
	require.ErrorIs(t, err, driver.ErrBadConn)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1.0, counterValue(t, reg, "crm_junction_errors_total", map[string]string{"operation": "delete", "table": "user_roles", "error_type": "connection"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "crm_junction_operations_total", opLabels("delete", "user_roles", metrics.StatusError)))
}

func TestExecutor_PermanentErrorsAreNotRetried(t *testing.T) {
	exec, reg, logs := newTestExecutor(t, fastPolicy(5))
	op := Operation{Name: "add", Table: "note_tags"}
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}

	calls := 0
	err := exec.ExecuteWithResilienceAndLogging(context.Background(), op, func(ctx context.Context) error {
		calls++
		return dup
	})
	require.ErrorIs(t, err, dup)
	assert.Equal(t, 1, calls)
	assert.Zero(t, counterValue(t, reg, "crm_junction_retries_total", map[string]string{"operation": "add", "table": "note_tags"}))
	assert.Contains(t, logs.String(), "operation failed")
}

func TestExecutor_NoRowsIsNotAFailure(t *testing.T) {
	exec, reg, logs := newTestExecutor(t, fastPolicy(3))
	op := Operation{Name: "get_by_id", Table: "deal_contacts"}

	err := exec.ExecuteWithResilienceAndLogging(context.Background(), op, func(ctx context.Context) error {
		return sql.ErrNoRows
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, 1.0, counterValue(t, reg, "crm_junction_operations_total", opLabels("get_by_id", "deal_contacts", statusNotFound)))
	assert.NotContains(t, logs.String(), "operation failed")
}

func TestExecutor_StopsOnContextCancel(t *testing.T) {
	exec, _, _ := newTestExecutor(t, Policy{MaxAttempts: 100, InitialInterval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := exec.ExecuteWithResilienceAndLogging(ctx, Operation{Name: "add"}, func(ctx context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return deadlock
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, deadlock))
	assert.Equal(t, 2, calls)
}

func TestExecute_ReturnsValue(t *testing.T) {
	exec, _, _ := newTestExecutor(t, fastPolicy(3))
	calls := 0
	v, err := Execute(context.Background(), exec, Operation{Name: "count"}, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, deadlock
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestNilExecutorRunsOnce(t *testing.T) {
	var exec *Executor
	calls := 0
	err := exec.ExecuteWithResilienceAndLogging(context.Background(), Operation{Name: "x"}, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, DefaultPolicy(), exec.Policy())
}

func TestPolicy_Normalize(t *testing.T) {
	p := Policy{MaxAttempts: -1, Multiplier: 0.5, RandomizationFactor: 3}.normalize()
	d := DefaultPolicy()
	assert.Equal(t, d.MaxAttempts, p.MaxAttempts)
	assert.Equal(t, d.InitialInterval, p.InitialInterval)
	assert.Equal(t, d.Multiplier, p.Multiplier)
	assert.Equal(t, d.RandomizationFactor, p.RandomizationFactor)
	assert.GreaterOrEqual(t, p.MaxInterval, p.InitialInterval)
}

func TestExecutor_OnceDoesNotRetry(t *testing.T) {
	exec, reg, _ := newTestExecutor(t, fastPolicy(4))
	once := exec.Once()
	op := Operation{Name: "add", Table: "deal_contacts"}

	calls := 0
	err := once.ExecuteWithResilienceAndLogging(context.Background(), op, func(ctx context.Context) error {
		calls++
		return deadlock
	})
	require.ErrorIs(t, err, deadlock)
	assert.Equal(t, 1, calls)
	assert.Zero(t, counterValue(t, reg, "crm_junction_retries_total", map[string]string{"operation": "add", "table": "deal_contacts"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "crm_junction_errors_total", map[string]string{"operation": "add", "table": "deal_contacts", "error_type": "deadlock"}))
	assert.Equal(t, 4, exec.Policy().MaxAttempts)

	var nilExec *Executor
	assert.Equal(t, 1, nilExec.Once().Policy().MaxAttempts)
}
