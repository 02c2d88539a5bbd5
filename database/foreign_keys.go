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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"gopkg.in/yaml.v3"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can be used as an unquoted table, column
// or constraint name.
func ValidIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

var fkActions = []string{"CASCADE", "RESTRICT", "SET NULL", "NO ACTION"}

type ForeignKeyConstraint struct {
	Table           string
	Column          string
	ReferenceTable  string
	ReferenceColumn string
	OnDelete        string // CASCADE, RESTRICT, SET NULL, NO ACTION
	OnUpdate        string
	ConstraintName  string
}

func (fk *ForeignKeyConstraint) GenerateConstraintName() string {
	if fk.ConstraintName != "" {
		return fk.ConstraintName
	}
	return fmt.Sprintf("fk_%s_%s", fk.Table, fk.Column)
}

func (fk *ForeignKeyConstraint) GenerateSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		fk.Table, fk.GenerateConstraintName(), fk.Column, fk.ReferenceTable, fk.ReferenceColumn)
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + strings.ToUpper(fk.OnDelete))
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + strings.ToUpper(fk.OnUpdate))
	}
	return b.String()
}

func (fk *ForeignKeyConstraint) validate() error {
	for _, id := range []string{fk.Table, fk.Column, fk.ReferenceTable, fk.ReferenceColumn} {
		if !ValidIdentifier(id) {
			return fmt.Errorf("foreign key %s: invalid identifier %q", fk.GenerateConstraintName(), id)
		}
	}
	if fk.ConstraintName != "" && !ValidIdentifier(fk.ConstraintName) {
		return fmt.Errorf("foreign key: invalid constraint name %q", fk.ConstraintName)
	}
	for _, action := range []string{fk.OnDelete, fk.OnUpdate} {
		if action == "" {
			continue
		}
		valid := false
		for _, a := range fkActions {
			if strings.EqualFold(action, a) {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("foreign key %s: invalid referential action %q", fk.GenerateConstraintName(), action)
		}
	}
	return nil
}

var (
	defaultForeignKeys   []ForeignKeyConstraint
	defaultForeignKeysMu sync.RWMutex
)

// RegisterForeignKeys adds code-defined constraints used when no YAML file
// overrides them.
func RegisterForeignKeys(constraints ...ForeignKeyConstraint) {
	defaultForeignKeysMu.Lock()
	defer defaultForeignKeysMu.Unlock()
	defaultForeignKeys = append(defaultForeignKeys, constraints...)
}

func getForeignKeyConstraints() []ForeignKeyConstraint {
	defaultForeignKeysMu.RLock()
	defer defaultForeignKeysMu.RUnlock()
	out := make([]ForeignKeyConstraint, len(defaultForeignKeys))
	copy(out, defaultForeignKeys)
	return out
}

type ForeignKeyManager struct {
	constraints []ForeignKeyConstraint
	logger      Logger
}

// NewForeignKeyManager creates a manager over the code-registered constraints.
func NewForeignKeyManager(logger Logger) *ForeignKeyManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &ForeignKeyManager{
		constraints: getForeignKeyConstraints(),
		logger:      logger,
	}
}

// AddAllForeignKeys adds every constraint. Constraints that fail, for example
// because the referenced parent table is absent, are logged and skipped. The
// number of constraints added is returned.
func (fkm *ForeignKeyManager) AddAllForeignKeys(ctx context.Context, db bun.IDB) (int, error) {
	if db.Dialect().Name() == dialect.SQLite {
		fkm.logger.Info("sqlite cannot add constraints to existing tables, skipping foreign keys",
			"count", len(fkm.constraints))
		return 0, nil
	}
	added := 0
	for _, constraint := range fkm.constraints {
		if err := constraint.validate(); err != nil {
			return added, err
		}
		if _, err := db.ExecContext(ctx, constraint.GenerateSQL()); err != nil {
			if ctx.Err() != nil {
				return added, ctx.Err()
			}
			fkm.logger.Debug("foreign key not added", "constraint", constraint.GenerateConstraintName(), "error", err.Error())
			continue
		}
		added++
		fkm.logger.Debug("foreign key added", "constraint", constraint.GenerateConstraintName())
	}
	return added, nil
}

func (fkm *ForeignKeyManager) RemoveForeignKey(ctx context.Context, db bun.IDB, tableName, constraintName string) error {
	if !ValidIdentifier(tableName) || !ValidIdentifier(constraintName) {
		return fmt.Errorf("remove foreign key: invalid identifier %s.%s", tableName, constraintName)
	}
	stmt := "ALTER TABLE %s DROP CONSTRAINT %s"
	if db.Dialect().Name() == dialect.MySQL {
		stmt = "ALTER TABLE %s DROP FOREIGN KEY %s"
	}
	_, err := db.ExecContext(ctx, fmt.Sprintf(stmt, tableName, constraintName))
	return err
}

func (fkm *ForeignKeyManager) GetConstraintsByTable(tableName string) []ForeignKeyConstraint {
	var result []ForeignKeyConstraint
	for _, constraint := range fkm.constraints {
		if strings.EqualFold(constraint.Table, tableName) {
			result = append(result, constraint)
		}
	}
	return result
}

func (fkm *ForeignKeyManager) ListAllConstraints() []ForeignKeyConstraint {
	return fkm.constraints
}

// ValidateConstraints returns every problem found, joined.
func (fkm *ForeignKeyManager) ValidateConstraints() error {
	var errs []error
	for _, constraint := range fkm.constraints {
		if err := constraint.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ForeignKeyConfig is the YAML document listing foreign key constraints.
type ForeignKeyConfig struct {
	ForeignKeys []ForeignKeyConstraintConfig `yaml:"foreign_keys"`
}

type ForeignKeyConstraintConfig struct {
	Table           string `yaml:"table"`
	Column          string `yaml:"column"`
	ReferenceTable  string `yaml:"reference_table"`
	ReferenceColumn string `yaml:"reference_column"`
	OnDelete        string `yaml:"on_delete,omitempty"`
	OnUpdate        string `yaml:"on_update,omitempty"`
	ConstraintName  string `yaml:"constraint_name,omitempty"`
	Description     string `yaml:"description,omitempty"`
}

func (fkc *ForeignKeyConstraintConfig) ToForeignKeyConstraint() ForeignKeyConstraint {
	return ForeignKeyConstraint{
		Table:           fkc.Table,
		Column:          fkc.Column,
		ReferenceTable:  fkc.ReferenceTable,
		ReferenceColumn: fkc.ReferenceColumn,
		OnDelete:        fkc.OnDelete,
		OnUpdate:        fkc.OnUpdate,
		ConstraintName:  fkc.ConstraintName,
	}
}

// ConfigurableForeignKeyManager reads constraints from a YAML file and falls
// back to the code-registered defaults when the file is missing or empty.
type ConfigurableForeignKeyManager struct {
	*ForeignKeyManager
	configPath string
	fromFile   bool
}

func NewConfigurableForeignKeyManager(logger Logger, configPath string) (*ConfigurableForeignKeyManager, error) {
	base := NewForeignKeyManager(logger)
	manager := &ConfigurableForeignKeyManager{ForeignKeyManager: base, configPath: configPath}
	if configPath == "" {
		return manager, nil
	}
	constraints, err := manager.loadFromConfig()
	switch {
	case errors.Is(err, os.ErrNotExist):
		base.logger.Debug("foreign key file not found, using registered defaults", "config_path", configPath)
	case err != nil:
		return nil, err
	default:
		manager.constraints = constraints
		manager.fromFile = true
	}
	return manager, nil
}

func (cfm *ConfigurableForeignKeyManager) loadFromConfig() ([]ForeignKeyConstraint, error) {
	data, err := os.ReadFile(cfm.configPath)
	if err != nil {
		return nil, fmt.Errorf("read foreign key file: %w", err)
	}
	var config ForeignKeyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse foreign key file %s: %w", cfm.configPath, err)
	}
	constraints := make([]ForeignKeyConstraint, 0, len(config.ForeignKeys))
	for _, fkConfig := range config.ForeignKeys {
		c := fkConfig.ToForeignKeyConstraint()
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("foreign key file %s: %w", cfm.configPath, err)
		}
		constraints = append(constraints, c)
	}
	return constraints, nil
}

func (cfm *ConfigurableForeignKeyManager) ReloadConfig() error {
	constraints, err := cfm.loadFromConfig()
	if err != nil {
		return err
	}
	cfm.constraints = constraints
	cfm.fromFile = true
	return nil
}

// LoadedFromFile reports whether the active constraints came from the YAML
// file rather than the registered defaults.
func (cfm *ConfigurableForeignKeyManager) LoadedFromFile() bool {
	return cfm.fromFile
}

// ExportToConfig writes the active constraints to outputPath as YAML.
func (cfm *ConfigurableForeignKeyManager) ExportToConfig(outputPath string) error {
	configConstraints := make([]ForeignKeyConstraintConfig, 0, len(cfm.constraints))
	for _, c := range cfm.constraints {
		configConstraints = append(configConstraints, ForeignKeyConstraintConfig{
			Table:           c.Table,
			Column:          c.Column,
			ReferenceTable:  c.ReferenceTable,
			ReferenceColumn: c.ReferenceColumn,
			OnDelete:        c.OnDelete,
			OnUpdate:        c.OnUpdate,
			ConstraintName:  c.ConstraintName,
			Description:     fmt.Sprintf("%s.%s -> %s.%s", c.Table, c.Column, c.ReferenceTable, c.ReferenceColumn),
		})
	}
	data, err := yaml.Marshal(&ForeignKeyConfig{ForeignKeys: configConstraints})
	if err != nil {
		return fmt.Errorf("serialize foreign keys: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("write foreign key file: %w", err)
	}
	return nil
}

func (cfm *ConfigurableForeignKeyManager) GetConfigPath() string {
	return cfm.configPath
}
