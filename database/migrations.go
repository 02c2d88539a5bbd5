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
	"sort"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// MigrationManager applies the versioned junction schema migrations and
// records them in junction_migrations.
type MigrationManager struct {
	db     *bun.DB
	config *Config
	logger Logger
}

type Migration struct {
	bun.BaseModel `bun:"table:junction_migrations"`

	Version     string    `bun:"version,pk,type:varchar(32)"`
	Name        string    `bun:"name,notnull"`
	AppliedAt   time.Time `bun:"applied_at,notnull"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
	Down        MigrationFunc
}

func NewMigrationManager(db *bun.DB, config *Config, logger Logger) *MigrationManager {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}
	return &MigrationManager{db: db, config: config, logger: logger}
}

// RunMigrations applies every pending migration in version order. Query
// logging is muted unless BUNDEBUG_MIGRATION is set.
func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotConnected
	}
	if _, ok := os.LookupEnv("BUNDEBUG_MIGRATION"); !ok {
		EnableBunSqlSilent(true)
		defer EnableBunSqlSilent(false)
	}

	if err := mm.createMigrationTable(ctx); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	migrations := mm.getAllMigrations()
	applied := 0
	for _, migration := range migrations {
		ran, err := mm.runMigration(ctx, migration)
		if err != nil {
			return fmt.Errorf("migration %s_%s: %w", migration.Version, migration.Name, err)
		}
		if ran {
			applied++
		}
	}
	mm.logger.Info("database migrations completed", "applied", applied, "known", len(migrations))
	return nil
}

func (mm *MigrationManager) createMigrationTable(ctx context.Context) error {
	_, err := mm.db.NewCreateTable().
		Model((*Migration)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (mm *MigrationManager) getAllMigrations() []MigrationItem {
	migrations := []MigrationItem{
		{
			Version:     "001",
			Name:        "create_junction_tables",
			Description: "Create junction tables for registered models",
			Up:          mm.createJunctionTables,
			Down:        mm.dropJunctionTables,
		},
		{
			Version:     "002",
			Name:        "create_junction_indexes",
			Description: "Create reverse lookup indexes",
			Up:          mm.createJunctionIndexes,
		},
	}
	if mm.config.DataMigrateConfig.EnableForeignKey {
		migrations = append(migrations, MigrationItem{
			Version:     "003",
			Name:        "add_foreign_keys",
			Description: "Add junction foreign key constraints",
			Up:          mm.addForeignKeys,
		})
	}
	if mm.config.DataInitConfig.AutoInitOnMigration {
		migrations = append(migrations, MigrationItem{
			Version:     "004",
			Name:        "seed_initial_data",
			Description: "Seed initial data from sql files",
			Up:          mm.seedInitialData,
		})
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations
}

// runMigration applies migration unless it is already recorded. It reports
// whether the migration ran.
func (mm *MigrationManager) runMigration(ctx context.Context, migration MigrationItem) (bool, error) {
	exists, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", migration.Version).
		Exists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := migration.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().
			Model(&Migration{
				Version:     migration.Version,
				Name:        migration.Name,
				AppliedAt:   time.Now().UTC(),
				Description: migration.Description,
			}).
			Exec(ctx)
		return err
	})
	if err != nil {
		return false, err
	}
	mm.logger.Info("migration applied", "version", migration.Version, "name", migration.Name)
	return true, nil
}

func (mm *MigrationManager) createJunctionTables(ctx context.Context, db bun.IDB) error {
	for _, model := range RegisteredModelInstances() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func (mm *MigrationManager) dropJunctionTables(ctx context.Context, db bun.IDB) error {
	models := RegisteredModelInstances()
	for i := len(models) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(models[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", models[i], err)
		}
	}
	return nil
}

func (mm *MigrationManager) createJunctionIndexes(ctx context.Context, db bun.IDB) error {
	isMySQL := db.Dialect().Name() == dialect.MySQL
	for _, model := range GetRegisteredModels() {
		indexed, ok := model.(IndexedModel)
		if !ok {
			continue
		}
		for _, idx := range indexed.Indexes() {
			q := db.NewCreateIndex().
				Model(model.Instance()).
				Index(idx.Name).
				Column(idx.Columns...)
			if !isMySQL {
				q = q.IfNotExists()
			}
			if _, err := q.Exec(ctx); err != nil {
				if _, kind := IsSqlError(err); kind == ExistIndexErr {
					continue
				}
				return fmt.Errorf("create index %s: %w", idx.Name, err)
			}
		}
	}
	return nil
}

func (mm *MigrationManager) addForeignKeys(ctx context.Context, db bun.IDB) error {
	fkManager, err := NewConfigurableForeignKeyManager(mm.logger, mm.config.DataMigrateConfig.ForeignKeyFile)
	if err != nil {
		return err
	}
	if err := fkManager.ValidateConstraints(); err != nil {
		return fmt.Errorf("validate foreign keys: %w", err)
	}
	added, err := fkManager.AddAllForeignKeys(ctx, db)
	if err != nil {
		return err
	}
	mm.logger.Info("foreign keys processed",
		"added", added,
		"total", len(fkManager.ListAllConstraints()),
		"from_file", fkManager.LoadedFromFile())
	return nil
}

// InitData runs the seed files outside the migration history.
func (mm *MigrationManager) InitData(ctx context.Context) error {
	if mm.db == nil {
		return ErrNotConnected
	}
	return mm.seedInitialData(ctx, mm.db)
}

func (mm *MigrationManager) seedInitialData(ctx context.Context, db bun.IDB) error {
	initCfg := mm.config.DataInitConfig
	sqlManager := NewSQLInitManager(db, initCfg.Environment, mm.logger)
	if initCfg.Filepath != "" {
		sqlManager.SetSQLRootPath(initCfg.Filepath)
	}
	sqlManager.SetTemplateEnv(initCfg.TemplateEnv)
	if _, err := sqlManager.ExecuteInitialization(ctx); err != nil {
		return fmt.Errorf("seed initial data: %w", err)
	}
	return nil
}

func (mm *MigrationManager) GetAppliedMigrations(ctx context.Context) ([]Migration, error) {
	var migrations []Migration
	err := mm.db.NewSelect().
		Model(&migrations).
		Order("version ASC").
		Scan(ctx)
	return migrations, err
}

// RollbackMigration reverts an applied migration that has a Down step.
func (mm *MigrationManager) RollbackMigration(ctx context.Context, version string) error {
	var target *MigrationItem
	for _, m := range mm.getAllMigrations() {
		if m.Version == version {
			m := m
			target = &m
			break
		}
	}
	if target == nil {
		return fmt.Errorf("unknown migration version %q", version)
	}
	if target.Down == nil {
		return fmt.Errorf("migration %s_%s cannot be rolled back", target.Version, target.Name)
	}
	return mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := target.Down(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*Migration)(nil)).
			Where("version = ?", version).
			Exec(ctx)
		return err
	})
}
