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
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

var supportedTypes = []string{TypeMySQL, TypePostgres, TypePgx, TypeSQLite}

// BaseDatabaseFactory builds a manager from configuration and drives its
// startup sequence.
type BaseDatabaseFactory struct {
	manager AbstractDatabaseManager
	config  *Config
	logger  Logger
}

func NewDatabaseFactory() *BaseDatabaseFactory {
	return &BaseDatabaseFactory{logger: GetLogger()}
}

// CreateFromConfig validates cfg, applies DB_* environment overrides to it
// and creates the manager. cfg is modified in place.
func (f *BaseDatabaseFactory) CreateFromConfig(cfg *Config) (AbstractDatabaseManager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	f.overrideFromEnv(&cfg.ConnectionConfig)
	if !slices.Contains(supportedTypes, cfg.ConnectionConfig.Type) {
		return nil, fmt.Errorf("unsupported database type: %q, supported types: %v", cfg.ConnectionConfig.Type, supportedTypes)
	}

	manager := NewDatabaseManager(cfg)
	manager.SetLogger(f.logger)
	f.manager = manager
	f.config = cfg
	return manager, nil
}

// envDuration accepts a Go duration ("30s") or a number of seconds.
func envDuration(key string) (time.Duration, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

func (f *BaseDatabaseFactory) overrideFromEnv(cfg *ConnectionConfig) {
	if v := os.Getenv("DB_TYPE"); v != "" {
		cfg.Type = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Host = v
	}
	if v, ok := envInt("DB_PORT"); ok {
		cfg.Port = v
	}
	if v := os.Getenv("DB_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.DBName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.SSLMode = v
	}

	if v, ok := envInt("DB_MAX_IDLE_CONNS"); ok {
		cfg.MaxIdleConns = v
	}
	if v, ok := envInt("DB_MAX_OPEN_CONNS"); ok {
		cfg.MaxOpenConns = v
	}
	if v, ok := envDuration("DB_CONN_MAX_LIFETIME"); ok {
		cfg.ConnMaxLifetime = v
	}

	if v, ok := envBool("DB_ENABLE_RECONNECT"); ok {
		cfg.EnableReconnect = v
	}
	if v, ok := envDuration("DB_RECONNECT_INTERVAL"); ok {
		cfg.ReconnectInterval = v
	}
	if v, ok := envDuration("DB_HEALTH_CHECK_INTERVAL"); ok {
		cfg.HealthCheckInterval = v
	}

	if v, ok := envBool("DB_ENABLE_QUERY_LOG"); ok {
		cfg.EnableQueryLog = v
	}
	if v, ok := envDuration("DB_SLOW_QUERY_TIME"); ok {
		cfg.SlowQueryTime = v
	}
}

// InitializeDatabase connects, then runs migrations and the startup seed
// when requested.
func (f *BaseDatabaseFactory) InitializeDatabase(ctx context.Context, runMigrations bool) error {
	if f.manager == nil {
		return fmt.Errorf("database manager not created")
	}
	if err := f.manager.Connect(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if runMigrations {
		if err := f.manager.RunMigrations(ctx); err != nil {
			return fmt.Errorf("run database migrations: %w", err)
		}
	}
	if f.config != nil && f.config.DataInitConfig.AutoInitOnStartup {
		if err := f.manager.InitData(ctx); err != nil {
			return fmt.Errorf("initialize data: %w", err)
		}
	}
	f.logger.Info("database initialization completed")
	return nil
}

func (f *BaseDatabaseFactory) GetManager() AbstractDatabaseManager {
	return f.manager
}

func (f *BaseDatabaseFactory) GetDB() *bun.DB {
	if f.manager == nil {
		return nil
	}
	return f.manager.GetDB()
}

func (f *BaseDatabaseFactory) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	f.logger = logger
	if f.manager != nil {
		f.manager.SetLogger(logger)
	}
}

func (f *BaseDatabaseFactory) Close() error {
	if f.manager == nil {
		return nil
	}
	return f.manager.Disconnect()
}

func (f *BaseDatabaseFactory) GetHealthStatus(ctx context.Context) *HealthStatus {
	if f.manager == nil {
		return &HealthStatus{
			LastError:     "database manager not initialized",
			LastCheckTime: time.Now(),
		}
	}
	return f.manager.HealthCheck(ctx)
}

func (f *BaseDatabaseFactory) GetStats() *DBStats {
	if f.manager == nil {
		return &DBStats{}
	}
	return f.manager.GetStats()
}
