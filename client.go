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

package crmjunction

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tomoncle/crmjunction/crm"
	"github.com/tomoncle/crmjunction/database"
	"github.com/tomoncle/crmjunction/metrics"
	"github.com/tomoncle/crmjunction/resilience"
	"github.com/tomoncle/crmjunction/utils"
	"github.com/uptrace/bun"
)

// Client owns a database connection and the junction repositories built on
// it.
type Client struct {
	DB       *bun.DB
	Executor *resilience.Executor
	Metrics  *metrics.JunctionMetrics
	Repos    *crm.Repositories
	Admin    *crm.Registry

	registry *prometheus.Registry
	manager  database.AbstractDatabaseManager
	logger   database.Logger
	config   *Config
}

// ConfigureLogging applies cfg to the process loggers.
func ConfigureLogging(cfg LogConfig) {
	if cfg.Format != "" {
		utils.ConfigureConsoleLogFormat(cfg.Format)
	}
	if cfg.Level != "" {
		utils.ConfigureLogLevel(cfg.Level)
	}
}

// Open connects using cfg, runs migrations when enabled and builds the
// repositories. A nil cfg selects DefaultConfig.
func Open(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ConfigureLogging(cfg.Log)
	logger := database.GetLogger()

	factory := database.NewDatabaseFactory()
	factory.SetLogger(logger)
	manager, err := factory.CreateFromConfig(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := factory.InitializeDatabase(ctx, cfg.Database.DataMigrateConfig.EnableMigrateOnStartup); err != nil {
		_ = factory.Close()
		return nil, err
	}
	c, err := newClient(manager, cfg, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return c, nil
}

// OpenWithDB builds a Client on an existing connection. No migrations are
// run; Close closes db.
func OpenWithDB(db *bun.DB, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := database.GetLogger()
	manager := database.NewDatabaseManagerFromDB(db, &cfg.Database)
	manager.SetLogger(logger)
	return newClient(manager, cfg, logger)
}

func newClient(manager database.AbstractDatabaseManager, cfg *Config, logger database.Logger) (*Client, error) {
	c := &Client{
		DB:      manager.GetDB(),
		manager: manager,
		logger:  logger,
		config:  cfg,
	}
	if cfg.Metrics.Enabled {
		c.registry = metrics.NewRegistry()
		m, err := metrics.NewJunctionMetrics(c.registry)
		if err != nil {
			return nil, fmt.Errorf("register junction metrics: %w", err)
		}
		dbName := cfg.Database.ConnectionConfig.DBName
		if err := metrics.RegisterDBStats(c.registry, manager.GetSQLDB(), dbName); err != nil {
			return nil, fmt.Errorf("register database metrics: %w", err)
		}
		c.Metrics = m
	}
	c.Executor = resilience.NewExecutor(cfg.Resilience, logger, c.Metrics)

	repos, err := crm.NewRepositories(c.DB, c.Executor)
	if err != nil {
		return nil, err
	}
	c.Repos = repos
	c.Admin = crm.NewRegistry(repos)
	return c, nil
}

func (c *Client) Config() *Config {
	return c.config
}

func (c *Client) Logger() database.Logger {
	return c.logger
}

// RunInTx runs fn with repositories bound to one transaction. The
// transaction commits when fn returns nil.
func (c *Client) RunInTx(ctx context.Context, fn func(ctx context.Context, repos *crm.Repositories) error) error {
	return c.DB.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, c.Repos.WithTx(tx))
	})
}

func (c *Client) Migrate(ctx context.Context) error {
	return c.manager.RunMigrations(ctx)
}

func (c *Client) Seed(ctx context.Context) error {
	return c.manager.InitData(ctx)
}

func (c *Client) HealthCheck(ctx context.Context) *database.HealthStatus {
	return c.manager.HealthCheck(ctx)
}

func (c *Client) Stats() *database.DBStats {
	return c.manager.GetStats()
}

// MetricsHandler serves the client's Prometheus registry. It responds 404
// when metrics are disabled.
func (c *Client) MetricsHandler() http.Handler {
	if c.registry == nil {
		return http.NotFoundHandler()
	}
	return metrics.Handler(c.registry)
}

func (c *Client) Close() error {
	return c.manager.Disconnect()
}
