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
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/tomoncle/crmjunction/database"
	"github.com/tomoncle/crmjunction/resilience"
)

// EnvPrefix prefixes environment variables read by LoadConfig, for example
// CRM_DATABASE_CONNECTION_HOST.
const EnvPrefix = "CRM"

type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
	Path    string `json:"path" mapstructure:"path"`
}

type LogConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"` // text or json
}

// Config is the complete configuration of a Client.
type Config struct {
	Database   database.Config   `json:"database" mapstructure:"database"`
	Resilience resilience.Policy `json:"resilience" mapstructure:"resilience"`
	Metrics    MetricsConfig     `json:"metrics" mapstructure:"metrics"`
	Log        LogConfig         `json:"log" mapstructure:"log"`
}

func DefaultConfig() *Config {
	return &Config{
		Database:   *database.DefaultConfig(),
		Resilience: resilience.DefaultPolicy(),
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9464",
			Path:    "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	c := d.Database.ConnectionConfig
	v.SetDefault("database.connection.type", c.Type)
	v.SetDefault("database.connection.host", c.Host)
	v.SetDefault("database.connection.port", c.Port)
	v.SetDefault("database.connection.username", c.Username)
	v.SetDefault("database.connection.password", c.Password)
	v.SetDefault("database.connection.dbname", c.DBName)
	v.SetDefault("database.connection.sslmode", c.SSLMode)
	v.SetDefault("database.connection.max_idle_conns", c.MaxIdleConns)
	v.SetDefault("database.connection.max_open_conns", c.MaxOpenConns)
	v.SetDefault("database.connection.conn_max_lifetime", c.ConnMaxLifetime)
	v.SetDefault("database.connection.conn_max_idle_time", c.ConnMaxIdleTime)
	v.SetDefault("database.connection.connect_timeout", c.ConnectTimeout)
	v.SetDefault("database.connection.read_timeout", c.ReadTimeout)
	v.SetDefault("database.connection.write_timeout", c.WriteTimeout)
	v.SetDefault("database.connection.enable_reconnect", c.EnableReconnect)
	v.SetDefault("database.connection.reconnect_interval", c.ReconnectInterval)
	v.SetDefault("database.connection.max_reconnect_tries", c.MaxReconnectTries)
	v.SetDefault("database.connection.health_check_interval", c.HealthCheckInterval)
	v.SetDefault("database.connection.enable_query_log", c.EnableQueryLog)
	v.SetDefault("database.connection.slow_query_time", c.SlowQueryTime)
	v.SetDefault("database.connection.charset", c.Charset)

	v.SetDefault("database.migrate.enable_migrate_on_startup", d.Database.DataMigrateConfig.EnableMigrateOnStartup)
	v.SetDefault("database.migrate.enable_foreign_key", d.Database.DataMigrateConfig.EnableForeignKey)
	v.SetDefault("database.migrate.foreign_key_file", d.Database.DataMigrateConfig.ForeignKeyFile)

	v.SetDefault("database.init.auto_init_on_startup", d.Database.DataInitConfig.AutoInitOnStartup)
	v.SetDefault("database.init.auto_init_on_migration", d.Database.DataInitConfig.AutoInitOnMigration)
	v.SetDefault("database.init.filepath", d.Database.DataInitConfig.Filepath)
	v.SetDefault("database.init.environment", d.Database.DataInitConfig.Environment)
	v.SetDefault("database.init.template_env", d.Database.DataInitConfig.TemplateEnv)

	v.SetDefault("resilience.max_attempts", d.Resilience.MaxAttempts)
	v.SetDefault("resilience.initial_interval", d.Resilience.InitialInterval)
	v.SetDefault("resilience.max_interval", d.Resilience.MaxInterval)
	v.SetDefault("resilience.multiplier", d.Resilience.Multiplier)
	v.SetDefault("resilience.randomization_factor", d.Resilience.RandomizationFactor)
	v.SetDefault("resilience.max_elapsed_time", d.Resilience.MaxElapsedTime)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.address", d.Metrics.Address)
	v.SetDefault("metrics.path", d.Metrics.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// LoadConfig reads path (YAML, JSON or TOML by extension) over the defaults
// and then applies CRM_* environment variables. An empty path loads only
// defaults and environment.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
