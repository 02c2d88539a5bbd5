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
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestManagerLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.ConnectionConfig.HealthCheckInterval = 10 * time.Millisecond
	dm := NewDatabaseManager(cfg)

	require.NoError(t, dm.Connect(ctx))
	require.NoError(t, dm.Connect(ctx))
	require.NotNil(t, dm.GetDB())
	require.NoError(t, dm.Ping(ctx))

	status := dm.HealthCheck(ctx)
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.MaxOpenConns)
	assert.Equal(t, 1, dm.GetStats().MaxOpenConns)

	require.NoError(t, dm.RunMigrations(ctx))
	time.Sleep(30 * time.Millisecond)

	db := dm.GetDB()
	require.NoError(t, dm.Reconnect(ctx))
	require.NoError(t, dm.Ping(ctx))
	assert.Same(t, db, dm.GetDB())
	assert.True(t, tableExists(t, db, "table", "test_links"))

	require.NoError(t, dm.Disconnect())
	assert.Nil(t, dm.GetDB())
	assert.ErrorIs(t, dm.Ping(ctx), ErrNotConnected)
	assert.False(t, dm.HealthCheck(ctx).Healthy)
	assert.ErrorIs(t, dm.RunMigrations(ctx), ErrNotConnected)
	assert.Equal(t, &DBStats{}, dm.GetStats())
	require.NoError(t, dm.Disconnect())
}

func TestManagerFileSQLiteUsesPool(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.ConnectionConfig.DBName = filepath.Join(t.TempDir(), "links")
	cfg.ConnectionConfig.MaxOpenConns = 4
	cfg.ConnectionConfig.HealthCheckInterval = 0
	dm := NewDatabaseManager(cfg)
	require.NoError(t, dm.Connect(ctx))
	defer dm.Disconnect()

	assert.Equal(t, 4, dm.GetStats().MaxOpenConns)
	assert.Equal(t, cfg.ConnectionConfig.DBName+".db", sqliteDSN(&cfg.ConnectionConfig))
}

func TestManagerReconnectKeepsHandle(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.ConnectionConfig.DBName = filepath.Join(t.TempDir(), "links.db")
	cfg.ConnectionConfig.MaxOpenConns = 4
	cfg.ConnectionConfig.MaxIdleConns = 2
	cfg.ConnectionConfig.HealthCheckInterval = 0
	dm := NewDatabaseManager(cfg)
	require.NoError(t, dm.Connect(ctx))
	defer dm.Disconnect()
	require.NoError(t, dm.RunMigrations(ctx))

	db := dm.GetDB()
	_, err := db.NewInsert().Model(&testLink{LeftID: 1, RightID: 2, Active: true}).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, dm.Reconnect(ctx))
	assert.Same(t, db, dm.GetDB())
	assert.Equal(t, 4, dm.GetStats().MaxOpenConns)

	n, err := db.NewSelect().Model((*testLink)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// after Disconnect a fresh handle is opened
	require.NoError(t, dm.Disconnect())
	require.NoError(t, dm.Reconnect(ctx))
	require.NotNil(t, dm.GetDB())
	assert.NotSame(t, db, dm.GetDB())
	require.NoError(t, dm.Ping(ctx))
}

func TestManagerUnsupportedType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ConnectionConfig.Type = "oracle"
	err := NewDatabaseManager(cfg).Connect(context.Background())
	assert.ErrorContains(t, err, "unsupported database type")
}

func TestManagerFromDB(t *testing.T) {
	db := newMemoryDB(t)
	dm := NewDatabaseManagerFromDB(db, nil)
	require.NoError(t, dm.Connect(context.Background()))
	assert.Same(t, db, dm.GetDB())
	assert.True(t, dm.HealthCheck(context.Background()).Healthy)
}

func TestMySQLDSN(t *testing.T) {
	cfg := &ConnectionConfig{
		Host:           "db.internal",
		Port:           3306,
		Username:       "crm",
		Password:       "secret",
		DBName:         "crm",
		ConnectTimeout: 5 * time.Second,
	}
	dsn := mysqlDSN(cfg)
	assert.Contains(t, dsn, "charset=utf8mb4")

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db.internal:3306", parsed.Addr)
	assert.Equal(t, "crm", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, 5*time.Second, parsed.Timeout)

	cfg.Charset = "latin1"
	assert.Contains(t, mysqlDSN(cfg), "charset=latin1")
}

func TestPostgresDSN(t *testing.T) {
	cfg := &ConnectionConfig{
		Host:           "localhost",
		Port:           5432,
		Username:       "crm",
		Password:       "p@ss",
		DBName:         "crm",
		ConnectTimeout: 3 * time.Second,
	}
	u, err := url.Parse(postgresDSN(cfg))
	require.NoError(t, err)
	assert.Equal(t, "localhost:5432", u.Host)
	assert.Equal(t, "/crm", u.Path)
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss", pass)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "3", u.Query().Get("connect_timeout"))
	assert.True(t, strings.HasPrefix(postgresDSN(cfg), "postgres://"))
}
