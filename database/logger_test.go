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
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFields(t *testing.T) {
	assert.Nil(t, toFields(nil))
	assert.Equal(t, logrus.Fields{"table": "team_users", "rows": 2}, toFields([]interface{}{"table", "team_users", "rows", 2}))
	assert.Equal(t, logrus.Fields{"table": "x", "!BADKEY": "dangling"}, toFields([]interface{}{"table", "x", "dangling"}))
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	logger := NewDefaultLogger(l)
	logger.SetLevel(LogLevelWarn)
	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("slow query", "duration_ms", 2500)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "slow query", entry["msg"])
	assert.Equal(t, "warning", entry["level"])
	assert.EqualValues(t, 2500, entry["duration_ms"])
}

func TestSetLoggerIgnoresNil(t *testing.T) {
	before := GetLogger()
	SetLogger(nil)
	assert.Same(t, before, GetLogger())
}
