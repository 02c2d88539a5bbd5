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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSQLStatements(t *testing.T) {
	content := `
-- seed links
INSERT INTO test_links (left_id, right_id, active)
VALUES (1, 2, true);

INSERT INTO test_links (left_id, right_id, active) VALUES (3, 4, true);
UPDATE test_links SET active = false WHERE left_id = 3`

	got := splitSQLStatements(content)
	assert.Equal(t, []string{
		"INSERT INTO test_links (left_id, right_id, active) VALUES (1, 2, true);",
		"INSERT INTO test_links (left_id, right_id, active) VALUES (3, 4, true);",
		"UPDATE test_links SET active = false WHERE left_id = 3",
	}, got)
	assert.Empty(t, splitSQLStatements("-- only a comment\n\n"))
}

func TestParseFileOrder(t *testing.T) {
	assert.Equal(t, 1, parseFileOrder("001_links.sql"))
	assert.Equal(t, 20, parseFileOrder("20_more.sql"))
	assert.Equal(t, unorderedSQLFile, parseFileOrder("links.sql"))
}

func TestGetSQLFiles(t *testing.T) {
	root := t.TempDir()
	writeSQL(t, filepath.Join(root, "common", "010_b.sql"), "SELECT 1;")
	writeSQL(t, filepath.Join(root, "common", "002_a.sql"), "SELECT 1;")
	writeSQL(t, filepath.Join(root, "common", "readme.txt"), "ignored")
	writeSQL(t, filepath.Join(root, "environments", "dev", "001_dev.sql"), "SELECT 1;")
	writeSQL(t, filepath.Join(root, "environments", "prod", "001_prod.sql"), "SELECT 1;")

	s := NewSQLInitManager(nil, "dev", nil)
	s.SetSQLRootPath(root)
	files, err := s.GetSQLFiles()
	require.NoError(t, err)

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"002_a.sql", "010_b.sql", "001_dev.sql"}, names)
	assert.Equal(t, "dev", files[2].Environment)

	s.SetSQLRootPath(filepath.Join(root, "missing"))
	files, err = s.GetSQLFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestExecuteInitialization(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)
	require.NoError(t, NewMigrationManager(db, DefaultConfig(), nil).RunMigrations(ctx))

	root := t.TempDir()
	writeSQL(t, filepath.Join(root, "common", "001_links.sql"), `
INSERT INTO test_links (left_id, right_id, active) VALUES (1, 2, true);
INSERT INTO test_links (left_id, right_id, active) VALUES (1, 3, true);`)

	s := NewSQLInitManager(db, "test", nil)
	s.SetSQLRootPath(root)
	results, err := s.ExecuteInitialization(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, int64(2), results[0].RowsAffected)
}

func TestExecuteInitializationRollsBackFailedFile(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)
	require.NoError(t, NewMigrationManager(db, DefaultConfig(), nil).RunMigrations(ctx))

	root := t.TempDir()
	writeSQL(t, filepath.Join(root, "common", "001_bad.sql"), `
INSERT INTO test_links (left_id, right_id, active) VALUES (5, 6, true);
INSERT INTO no_such_table VALUES (1);`)

	s := NewSQLInitManager(db, "", nil)
	s.SetSQLRootPath(root)
	results, err := s.ExecuteInitialization(ctx)
	require.Error(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)

	n, err := db.NewSelect().Model((*testLink)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExecuteInitializationTemplate(t *testing.T) {
	ctx := context.Background()
	db := newMemoryDB(t)
	require.NoError(t, NewMigrationManager(db, DefaultConfig(), nil).RunMigrations(ctx))
	t.Setenv("SEED_LEFT_ID", "42")

	root := t.TempDir()
	writeSQL(t, filepath.Join(root, "environments", "staging", "001_tpl.sql"),
		"INSERT INTO test_links (left_id, right_id, active) VALUES ({{ .Env.SEED_LEFT_ID }}, 1, true);")

	s := NewSQLInitManager(db, "staging", nil)
	s.SetSQLRootPath(root)
	s.SetTemplateEnv(true)
	_, err := s.ExecuteInitialization(ctx)
	require.NoError(t, err)

	var link testLink
	require.NoError(t, db.NewSelect().Model(&link).Limit(1).Scan(ctx))
	assert.Equal(t, int64(42), link.LeftID)
}
