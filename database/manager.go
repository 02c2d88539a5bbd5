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
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var ErrNotConnected = errors.New("database not connected")

type defaultDatabaseManager struct {
	config         *Config
	db             *bun.DB
	sqlDB          *sql.DB
	logger         Logger
	mu             sync.RWMutex
	connected      bool
	lastError      error
	healthStatus   *HealthStatus
	reconnectTries int

	stopHealthLoop context.CancelFunc
	healthLoopWG   sync.WaitGroup
}

// NewDatabaseManager returns a manager for config. A nil config selects
// DefaultConfig.
func NewDatabaseManager(config *Config) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConfig()
	}
	return &defaultDatabaseManager{
		config:       config,
		logger:       GetLogger(),
		healthStatus: &HealthStatus{},
	}
}

// NewDatabaseManagerFromDB wraps an already opened connection. Connect is a
// no-op on it and Disconnect closes db.
func NewDatabaseManagerFromDB(db *bun.DB, config *Config) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConfig()
	}
	return &defaultDatabaseManager{
		config:       config,
		db:           db,
		sqlDB:        db.DB,
		logger:       GetLogger(),
		connected:    true,
		healthStatus: &HealthStatus{},
	}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.connected && dm.db != nil {
		return nil
	}
	if err := dm.open(ctx); err != nil {
		return err
	}
	if dm.config.ConnectionConfig.HealthCheckInterval > 0 && dm.stopHealthLoop == nil {
		dm.startHealthLoop()
	}
	dm.logger.Info("database connected",
		"type", dm.config.ConnectionConfig.Type,
		"host", dm.config.ConnectionConfig.Host,
		"dbname", dm.config.ConnectionConfig.DBName)
	return nil
}

// open creates and pings a new connection. dm.mu must be held.
func (dm *defaultDatabaseManager) open(ctx context.Context) error {
	sqlDB, db, err := dm.createConnection()
	if err != nil {
		dm.lastError = err
		return fmt.Errorf("create database connection: %w", err)
	}
	dm.configureConnectionPool(sqlDB)

	if err := dm.ping(ctx, db); err != nil {
		_ = db.Close()
		dm.lastError = err
		return fmt.Errorf("database connection test: %w", err)
	}

	dm.db, dm.sqlDB = db, sqlDB
	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0
	return nil
}

func (dm *defaultDatabaseManager) ping(ctx context.Context, db *bun.DB) error {
	timeout := dm.config.ConnectionConfig.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return db.PingContext(pingCtx)
}

func (dm *defaultDatabaseManager) createConnection() (*sql.DB, *bun.DB, error) {
	cfg := &dm.config.ConnectionConfig
	var (
		sqlDB *sql.DB
		db    *bun.DB
		err   error
	)
	switch cfg.Type {
	case TypeMySQL:
		sqlDB, err = sql.Open("mysql", mysqlDSN(cfg))
		if err == nil {
			db = bun.NewDB(sqlDB, mysqldialect.New())
		}
	case TypePostgres, "postgresql":
		sqlDB, err = sql.Open("postgres", postgresDSN(cfg))
		if err == nil {
			db = bun.NewDB(sqlDB, pgdialect.New())
		}
	case TypePgx:
		sqlDB, err = sql.Open("pgx", postgresDSN(cfg))
		if err == nil {
			db = bun.NewDB(sqlDB, pgdialect.New())
		}
	case TypeSQLite, "sqlite3":
		sqlDB, err = sql.Open(sqliteshim.ShimName, sqliteDSN(cfg))
		if err == nil {
			db = bun.NewDB(sqlDB, sqlitedialect.New())
		}
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %q", cfg.Type)
	}
	if err != nil {
		return nil, nil, err
	}

	db.AddQueryHook(newQueryLogHook(cfg.EnableQueryLog, os.Stdout))
	if cfg.SlowQueryTime > 0 {
		db.AddQueryHook(NewSlowQueryHook(cfg.SlowQueryTime, dm.logger, nil))
	}
	return sqlDB, db, nil
}

func mysqlDSN(cfg *ConnectionConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.Local
	mc.Timeout = cfg.ConnectTimeout
	mc.ReadTimeout = cfg.ReadTimeout
	mc.WriteTimeout = cfg.WriteTimeout
	charset := cfg.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	mc.Params = map[string]string{"charset": charset}
	return mc.FormatDSN()
}

func postgresDSN(cfg *ConnectionConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q := url.Values{}
	q.Set("sslmode", sslMode)
	if cfg.ConnectTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.DBName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func isMemorySQLite(cfg *ConnectionConfig) bool {
	return cfg.DBName == "" || cfg.DBName == ":memory:"
}

// singleConnPool reports whether cfg is an in-memory SQLite database, which
// lives only as long as its one connection.
func singleConnPool(cfg *ConnectionConfig) bool {
	return (cfg.Type == TypeSQLite || cfg.Type == "sqlite3") && isMemorySQLite(cfg)
}

func sqliteDSN(cfg *ConnectionConfig) string {
	if isMemorySQLite(cfg) {
		return "file::memory:"
	}
	if filepath.Ext(cfg.DBName) == "" {
		return cfg.DBName + ".db"
	}
	return cfg.DBName
}

func (dm *defaultDatabaseManager) configureConnectionPool(sqlDB *sql.DB) {
	cfg := &dm.config.ConnectionConfig
	if singleConnPool(cfg) {
		// every connection would see its own empty database
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		return
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.haltHealthLoop()

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil
	dm.connected = false
	if err != nil {
		dm.logger.Error("close database connection", "error", err)
		return err
	}
	dm.logger.Info("database connection closed")
	return nil
}

// Reconnect drops the idle connections of the pool and pings the database
// through it. The handle returned by GetDB stays valid, so repositories built
// on it keep working. After Disconnect a new connection is opened.
func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	dm.logger.Info("reconnecting to database")
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db == nil {
		return dm.open(ctx)
	}

	cfg := &dm.config.ConnectionConfig
	if !singleConnPool(cfg) {
		dm.sqlDB.SetMaxIdleConns(0)
		dm.configureConnectionPool(dm.sqlDB)
	}
	if err := dm.ping(ctx, dm.db); err != nil {
		dm.lastError = err
		dm.connected = false
		return fmt.Errorf("database reconnect: %w", err)
	}
	dm.connected = true
	dm.lastError = nil
	dm.reconnectTries = 0
	return nil
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	dm.mu.RLock()
	db := dm.db
	dm.mu.RUnlock()
	if db == nil {
		return ErrNotConnected
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	dm.mu.RLock()
	db, sqlDB := dm.db, dm.sqlDB
	dm.mu.RUnlock()

	status := &HealthStatus{LastCheckTime: start}
	if db == nil {
		status.LastError = ErrNotConnected.Error()
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.Healthy = true
		status.Connected = true
	}
	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	dm.mu.Lock()
	dm.lastError = err
	dm.connected = err == nil
	dm.healthStatus = status
	dm.mu.Unlock()
	return status
}

// startHealthLoop runs periodic health checks until haltHealthLoop is called.
// dm.mu must be held.
func (dm *defaultDatabaseManager) startHealthLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	dm.stopHealthLoop = cancel
	dm.healthLoopWG.Add(1)
	go func() {
		defer dm.healthLoopWG.Done()
		ticker := time.NewTicker(dm.config.ConnectionConfig.HealthCheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCtx, checkCancel := context.WithTimeout(ctx, 10*time.Second)
				status := dm.HealthCheck(checkCtx)
				checkCancel()
				if !status.Healthy && dm.config.ConnectionConfig.EnableReconnect {
					dm.handleReconnect(ctx)
				}
			}
		}
	}()
}

func (dm *defaultDatabaseManager) haltHealthLoop() {
	dm.mu.Lock()
	stop := dm.stopHealthLoop
	dm.stopHealthLoop = nil
	dm.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	dm.healthLoopWG.Wait()
}

func (dm *defaultDatabaseManager) handleReconnect(ctx context.Context) {
	cfg := &dm.config.ConnectionConfig
	dm.mu.Lock()
	if dm.reconnectTries >= cfg.MaxReconnectTries {
		tries := dm.reconnectTries
		dm.mu.Unlock()
		dm.logger.Error("max reconnect attempts reached", "tries", tries)
		return
	}
	dm.reconnectTries++
	try := dm.reconnectTries
	dm.mu.Unlock()

	dm.logger.Info("starting database reconnect", "try", try)
	select {
	case <-ctx.Done():
		return
	case <-time.After(cfg.ReconnectInterval):
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reconnectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := dm.Reconnect(reconnectCtx); err != nil {
		dm.logger.Error("reconnect failed", "error", err, "try", try)
		return
	}
	dm.logger.Info("reconnect succeeded")
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	dm.mu.RLock()
	sqlDB := dm.sqlDB
	dm.mu.RUnlock()
	if sqlDB == nil {
		return &DBStats{}
	}
	stats := sqlDB.Stats()
	return &DBStats{
		MaxOpenConns:      stats.MaxOpenConnections,
		OpenConns:         stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		WaitDuration:      stats.WaitDuration,
		MaxIdleClosed:     stats.MaxIdleClosed,
		MaxIdleTimeClosed: stats.MaxIdleTimeClosed,
		MaxLifetimeClosed: stats.MaxLifetimeClosed,
	}
}

func (dm *defaultDatabaseManager) RunMigrations(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return ErrNotConnected
	}
	return NewMigrationManager(db, dm.config, dm.logger).RunMigrations(ctx)
}

func (dm *defaultDatabaseManager) InitData(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return ErrNotConnected
	}
	return NewMigrationManager(db, dm.config, dm.logger).InitData(ctx)
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
