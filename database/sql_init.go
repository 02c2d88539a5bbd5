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
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/uptrace/bun"
)

const (
	commonSQLDir      = "common"
	environmentSQLDir = "environments"
	unorderedSQLFile  = 999
)

var sqlOrderPattern = regexp.MustCompile(`^(\d+)_`)

// SQLInitManager loads seed files from <root>/common and then
// <root>/environments/<env>, ordered by their numeric file name prefix.
type SQLInitManager struct {
	db          bun.IDB
	environment string
	sqlRootPath string
	templateEnv bool
	logger      Logger
}

type SQLFileInfo struct {
	Path        string
	Name        string
	Order       int
	Environment string
	ModTime     time.Time
}

type ExecutionResult struct {
	File         string
	Success      bool
	Error        error
	Duration     time.Duration
	RowsAffected int64
}

func NewSQLInitManager(db bun.IDB, environment string, logger Logger) *SQLInitManager {
	if logger == nil {
		logger = GetLogger()
	}
	return &SQLInitManager{
		db:          db,
		environment: environment,
		sqlRootPath: "data/sql",
		logger:      logger,
	}
}

func (s *SQLInitManager) SetSQLRootPath(path string) {
	s.sqlRootPath = path
}

// SetTemplateEnv enables text/template rendering of seed files.
func (s *SQLInitManager) SetTemplateEnv(enabled bool) {
	s.templateEnv = enabled
}

// ExecuteInitialization runs every seed file in order and stops at the first
// failure. Each file runs in its own transaction unless the manager was given
// a transaction, in which case everything shares it.
func (s *SQLInitManager) ExecuteInitialization(ctx context.Context) ([]ExecutionResult, error) {
	s.logger.Info("starting sql initialization", "environment", s.environment, "sql_path", s.sqlRootPath)

	files, err := s.GetSQLFiles()
	if err != nil {
		return nil, fmt.Errorf("collect sql files: %w", err)
	}
	if len(files) == 0 {
		s.logger.Info("no sql files found")
		return nil, nil
	}

	results := make([]ExecutionResult, 0, len(files))
	for _, file := range files {
		result := s.executeFile(ctx, file)
		results = append(results, result)
		if !result.Success {
			s.logger.Error("sql file failed", "file", result.File, "error", result.Error.Error())
			return results, fmt.Errorf("sql file %s: %w", result.File, result.Error)
		}
		s.logger.Info("sql file executed",
			"file", result.File,
			"duration", result.Duration.String(),
			"rows_affected", result.RowsAffected)
	}

	s.logger.Info("sql initialization completed", "total_files", len(results), "environment", s.environment)
	return results, nil
}

// GetSQLFiles returns the common files followed by the environment files.
// A missing directory contributes no files.
func (s *SQLInitManager) GetSQLFiles() ([]SQLFileInfo, error) {
	common, err := s.getFilesFromDir(filepath.Join(s.sqlRootPath, commonSQLDir), commonSQLDir)
	if err != nil {
		return nil, err
	}
	var env []SQLFileInfo
	if s.environment != "" {
		env, err = s.getFilesFromDir(filepath.Join(s.sqlRootPath, environmentSQLDir, s.environment), s.environment)
		if err != nil {
			return nil, err
		}
	}
	return append(common, env...), nil
}

func (s *SQLInitManager) getFilesFromDir(dir, environment string) ([]SQLFileInfo, error) {
	var files []SQLFileInfo
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".sql") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, SQLFileInfo{
			Path:        path,
			Name:        d.Name(),
			Order:       parseFileOrder(d.Name()),
			Environment: environment,
			ModTime:     info.ModTime(),
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Order != files[j].Order {
			return files[i].Order < files[j].Order
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

func parseFileOrder(filename string) int {
	m := sqlOrderPattern.FindStringSubmatch(filename)
	if len(m) < 2 {
		return unorderedSQLFile
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return unorderedSQLFile
	}
	return n
}

func (s *SQLInitManager) executeFile(ctx context.Context, file SQLFileInfo) ExecutionResult {
	start := time.Now()
	result := ExecutionResult{File: file.Path}

	content, err := os.ReadFile(file.Path)
	if err != nil {
		result.Error = fmt.Errorf("read file: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	text := string(content)
	if s.templateEnv {
		if text, err = s.renderTemplate(text); err != nil {
			result.Error = err
			result.Duration = time.Since(start)
			return result
		}
	}
	statements := splitSQLStatements(text)

	run := func(ctx context.Context, db bun.IDB) error {
		for _, stmt := range statements {
			res, err := db.ExecContext(ctx, stmt)
			if err != nil {
				return fmt.Errorf("execute %q: %w", stmt, err)
			}
			n, _ := res.RowsAffected()
			result.RowsAffected += n
		}
		return nil
	}
	if db, ok := s.db.(*bun.DB); ok {
		err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return run(ctx, tx)
		})
	} else {
		err = run(ctx, s.db)
	}
	if err != nil {
		result.RowsAffected = 0
		result.Error = err
	} else {
		result.Success = true
	}
	result.Duration = time.Since(start)
	return result
}

type sqlTemplateData struct {
	Env         map[string]string
	Environment string
	Timestamp   string
}

func (s *SQLInitManager) renderTemplate(content string) (string, error) {
	tmpl, err := template.New("sql").Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("parse sql template: %w", err)
	}
	data := sqlTemplateData{
		Env:         make(map[string]string),
		Environment: s.environment,
		Timestamp:   time.Now().Format("2006-01-02 15:04:05"),
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			data.Env[k] = v
		}
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render sql template: %w", err)
	}
	return buf.String(), nil
}

// splitSQLStatements splits on lines ending in ';'. Blank lines and "--"
// comment lines are dropped.
func splitSQLStatements(content string) []string {
	var statements []string
	var current strings.Builder

	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString(" ")
		if strings.HasSuffix(line, ";") {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		}
	}
	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}
