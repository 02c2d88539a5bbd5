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

package utils

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		" WARN ":  logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"":        logrus.InfoLevel,
		"verbose": logrus.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLogLevel(in), in)
	}
}

func TestNamedLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	ConfigureOutput(&buf)
	ConfigureConsoleLogFormat("json")
	t.Cleanup(func() {
		ConfigureConsoleLogFormat("text")
		ConfigureOutput(os.Stdout)
	})

	l := NewLogger("TEST_JSON")
	assert.Same(t, l, NewLogger("TEST_JSON"))
	l.WithField("table", "team_users").Info("link added")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "TEST_JSON", entry["logger"])
	assert.Equal(t, "team_users", entry["table"])
	assert.Equal(t, "link added", entry["msg"])
}

func TestNamedLoggerText(t *testing.T) {
	var buf bytes.Buffer
	ConfigureOutput(&buf)
	t.Cleanup(func() { ConfigureOutput(os.Stdout) })

	l := NewLogger("TEST_TEXT")
	l.Info("hello")
	out := buf.String()
	assert.True(t, strings.Contains(out, "logger=TEST_TEXT"), out)
	assert.Contains(t, out, "msg=hello")
}

func TestLoggerLevels(t *testing.T) {
	l := NewLogger("TEST_LEVEL")
	assert.True(t, SetLoggerLevel("TEST_LEVEL", "error"))
	assert.Equal(t, logrus.ErrorLevel, l.GetLevel())
	assert.False(t, SetLoggerLevel("NO_SUCH_LOGGER", "debug"))

	ConfigureLogLevel("debug")
	t.Cleanup(func() { ConfigureLogLevel("info") })
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.Equal(t, logrus.DebugLevel, NewLogger("TEST_LEVEL_NEW").GetLevel())
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("CRM_TEST_STRING", "value")
	t.Setenv("CRM_TEST_BOOL", "true")
	t.Setenv("CRM_TEST_BAD_BOOL", "maybe")

	assert.Equal(t, "value", EnvDefaultString("CRM_TEST_STRING", "def"))
	assert.Equal(t, "def", EnvDefaultString("CRM_TEST_UNSET", "def"))
	assert.True(t, EnvDefaultBool("CRM_TEST_BOOL", false))
	assert.True(t, EnvDefaultBool("CRM_TEST_BAD_BOOL", true))
	assert.False(t, EnvDefaultBool("CRM_TEST_UNSET", false))
}
