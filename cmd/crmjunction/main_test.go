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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crmjunction/crm"
	"github.com/tomoncle/crmjunction/database"
	"github.com/tomoncle/crmjunction/utils"
	"gopkg.in/yaml.v3"
)

func TestMain(m *testing.M) {
	utils.ConfigureOutput(io.Discard)
	os.Exit(m.Run())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--env-file", "", "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// useFileDB points every command of the test at one sqlite file so state
// survives between invocations.
func useFileDB(t *testing.T) {
	t.Helper()
	t.Setenv("DB_NAME", filepath.Join(t.TempDir(), "crm.db"))
}

func TestJunctionsCommand(t *testing.T) {
	out, err := run(t, "junctions")
	require.NoError(t, err)

	var infos []crm.JunctionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Len(t, infos, 18)
	assert.Equal(t, "activity_attachments", infos[0].Name)
}

func TestHealthCommand(t *testing.T) {
	out, err := run(t, "health")
	require.NoError(t, err)

	var status database.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Healthy)
	assert.True(t, status.Connected)
}

func TestMigrateCommand(t *testing.T) {
	useFileDB(t)
	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")

	// second run finds everything applied
	_, err = run(t, "migrate")
	require.NoError(t, err)
}

func TestLinkCommands(t *testing.T) {
	useFileDB(t)
	team := uuid.NewString()

	out, err := run(t, "link", "add", "team_users", team, "42")
	require.NoError(t, err)
	var added crm.TeamUser
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.Equal(t, team, added.TeamID.String())
	assert.Equal(t, int64(42), added.UserID)

	out, err = run(t, "link", "exists", "team_users", team, "42")
	require.NoError(t, err)
	assert.Equal(t, "true", strings.TrimSpace(out))

	out, err = run(t, "link", "list", "team_users", "42", "--by", "second")
	require.NoError(t, err)
	var listed []crm.TeamUser
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, team, listed[0].TeamID.String())

	out, err = run(t, "link", "remove", "team_users", team, "42")
	require.NoError(t, err)
	assert.Equal(t, "removed", strings.TrimSpace(out))

	_, err = run(t, "link", "remove", "team_users", team, "42")
	assert.Error(t, err)

	out, err = run(t, "link", "exists", "team_users", team, "42")
	require.NoError(t, err)
	assert.Equal(t, "false", strings.TrimSpace(out))
}

func TestLinkCommandErrors(t *testing.T) {
	_, err := run(t, "link", "add", "widget_tags", "1", "2")
	assert.ErrorIs(t, err, crm.ErrUnknownJunction)

	_, err = run(t, "link", "add", "team_users", "not-a-uuid", "2")
	assert.ErrorIs(t, err, crm.ErrInvalidID)

	_, err = run(t, "link", "list", "user_roles", "1", "--by", "third")
	assert.Error(t, err)

	_, err = run(t, "link", "add", "user_roles", "1")
	assert.Error(t, err)
}

func TestFKExportCommand(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "fk", "foreign_keys.yaml")
	out, err := run(t, "fk", "export", "--out", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "36 foreign keys")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var cfg database.ForeignKeyConfig
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Len(t, cfg.ForeignKeys, 36)
}
