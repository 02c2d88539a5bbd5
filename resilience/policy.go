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
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds the retries of one operation. MaxAttempts counts the first
// attempt; MaxElapsedTime of zero means no time bound.
type Policy struct {
	MaxAttempts         int           `json:"max_attempts" mapstructure:"max_attempts"`
	InitialInterval     time.Duration `json:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval         time.Duration `json:"max_interval" mapstructure:"max_interval"`
	Multiplier          float64       `json:"multiplier" mapstructure:"multiplier"`
	RandomizationFactor float64       `json:"randomization_factor" mapstructure:"randomization_factor"`
	MaxElapsedTime      time.Duration `json:"max_elapsed_time" mapstructure:"max_elapsed_time"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:         3,
		InitialInterval:     50 * time.Millisecond,
		MaxInterval:         2 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.5,
		MaxElapsedTime:      10 * time.Second,
	}
}

// NoRetry runs every operation exactly once.
func NoRetry() Policy {
	p := DefaultPolicy()
	p.MaxAttempts = 1
	return p
}

// normalize fills unset fields from DefaultPolicy.
func (p Policy) normalize() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts < 1 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.RandomizationFactor < 0 || p.RandomizationFactor > 1 {
		p.RandomizationFactor = d.RandomizationFactor
	}
	if p.MaxElapsedTime < 0 {
		p.MaxElapsedTime = 0
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.Multiplier = p.Multiplier
	eb.RandomizationFactor = p.RandomizationFactor
	eb.MaxElapsedTime = p.MaxElapsedTime
	eb.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
}
