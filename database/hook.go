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

package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

var bunSqlSilentMode atomic.Bool

// EnableBunSqlSilent mutes the query hooks, used while migrations run.
func EnableBunSqlSilent(b bool) {
	bunSqlSilentMode.Store(b)
}

// silentHook drops events while silent mode is on and forwards the rest.
type silentHook struct {
	next bun.QueryHook
}

func (h silentHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return h.next.BeforeQuery(ctx, event)
}

func (h silentHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() {
		return
	}
	h.next.AfterQuery(ctx, event)
}

// newQueryLogHook returns bundebug's hook. BUNDEBUG=1 logs failed queries,
// BUNDEBUG=2 logs all of them; enabled forces verbose logging.
func newQueryLogHook(enabled bool, w io.Writer) bun.QueryHook {
	opts := []bundebug.Option{bundebug.FromEnv("BUNDEBUG"), bundebug.WithWriter(w)}
	if enabled {
		opts = append(opts, bundebug.WithVerbose(true))
	}
	return silentHook{next: bundebug.NewQueryHook(opts...)}
}

var (
	slowLabel = color.New(color.FgYellow, color.Bold)
	opColors  = map[string]*color.Color{
		"SELECT": color.New(color.BgGreen, color.FgHiWhite),
		"INSERT": color.New(color.BgBlue, color.FgHiWhite),
		"UPDATE": color.New(color.BgYellow, color.FgHiWhite),
		"DELETE": color.New(color.BgMagenta, color.FgHiWhite),
	}
	otherOpColor = color.New(color.BgRed, color.FgHiWhite)
)

// SlowQueryHook reports statements slower than threshold through the
// logger and, when a console writer is set, as a highlighted line.
type SlowQueryHook struct {
	fromEnv   string
	enabled   bool
	threshold time.Duration
	logger    Logger
	console   io.Writer
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(threshold time.Duration, logger Logger, console io.Writer) *SlowQueryHook {
	if logger == nil {
		logger = GetLogger()
	}
	return &SlowQueryHook{
		fromEnv:   "BUN_SLOW_QUERY",
		enabled:   threshold > 0,
		threshold: threshold,
		logger:    logger,
		console:   console,
	}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if bunSqlSilentMode.Load() || event.Err != nil {
		return
	}
	enabled := h.enabled
	if env, ok := os.LookupEnv(h.fromEnv); ok {
		enabled = strings.TrimSpace(env) == "1"
	}
	if !enabled {
		return
	}

	duration := time.Since(event.StartTime)
	if duration <= h.threshold {
		return
	}
	h.logger.Warn("slow query",
		"operation", event.Operation(),
		"duration", duration.Round(time.Microsecond).String(),
		"threshold", h.threshold.String(),
		"query", event.Query)
	if h.console != nil {
		c, ok := opColors[event.Operation()]
		if !ok {
			c = otherOpColor
		}
		_, _ = fmt.Fprintln(h.console,
			time.Now().Format("2006-01-02 15:04:05.000"),
			slowLabel.Sprint("[BUN_SLOW]"),
			fmt.Sprintf("%12s", duration.Round(time.Microsecond)),
			c.Sprint(event.Query))
	}
}
