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

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crmjunction"
	"github.com/tomoncle/crmjunction/crm"
	"github.com/tomoncle/crmjunction/utils"
)

func TestMain(m *testing.M) {
	utils.ConfigureOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*httptest.Server, *crmjunction.Client) {
	t.Helper()
	client, err := crmjunction.Open(context.Background(), crmjunction.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	srv := httptest.NewServer(NewServer(":0", "/metrics", client).Handler())
	t.Cleanup(srv.Close)
	return srv, client
}

func do(t *testing.T, method, url string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := do(t, http.MethodGet, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, true, status["healthy"])
}

func TestListJunctions(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := do(t, http.MethodGet, srv.URL+"/junctions")
	require.Equal(t, http.StatusOK, code)

	var resp struct {
		Data []crm.JunctionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Len(t, resp.Data, 18)
	assert.Equal(t, "activity_attachments", resp.Data[0].Name)
}

func TestLinkLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	team := uuid.NewString()
	link := srv.URL + "/junctions/team_users/links/" + team + "/77"

	code, _ := do(t, http.MethodGet, link)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := do(t, http.MethodPut, link)
	require.Equal(t, http.StatusOK, code)
	var added struct {
		Data crm.TeamUser `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &added))
	assert.Equal(t, team, added.Data.TeamID.String())
	assert.Equal(t, int64(77), added.Data.UserID)
	assert.True(t, added.Data.Active)

	code, body = do(t, http.MethodGet, link)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"exists":true}`, string(body))

	code, body = do(t, http.MethodGet, srv.URL+"/junctions/team_users/first/"+team)
	require.Equal(t, http.StatusOK, code)
	var listed struct {
		Data []crm.TeamUser `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed.Data, 1)

	code, body = do(t, http.MethodGet, srv.URL+"/junctions/team_users/second/77")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed.Data, 1)

	code, body = do(t, http.MethodDelete, link)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"removed":true}`, string(body))

	code, _ = do(t, http.MethodDelete, link)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = do(t, http.MethodGet, srv.URL+"/junctions/team_users/first/"+team)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.Empty(t, listed.Data)
}

func TestErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"unknown junction", http.MethodGet, "/junctions/widget_tags/first/1", http.StatusNotFound},
		{"bad uuid", http.MethodPut, "/junctions/team_users/links/nope/1", http.StatusBadRequest},
		{"bad int", http.MethodPut, "/junctions/user_roles/links/1/two", http.StatusBadRequest},
		{"bad second id", http.MethodGet, "/junctions/note_tags/second/x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, tt.method, srv.URL+tt.path)
			assert.Equal(t, tt.want, code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(body, &resp))
			assert.Equal(t, http.StatusText(tt.want), resp.Status)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestWriteError_ConstraintViolations(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  int
		title string
	}{
		{"mysql foreign key", &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, http.StatusUnprocessableEntity, "Unknown Reference"},
		{"postgres foreign key", &pq.Error{Code: "23503"}, http.StatusUnprocessableEntity, "Unknown Reference"},
		{"sqlite foreign key", errors.New("FOREIGN KEY constraint failed"), http.StatusUnprocessableEntity, "Unknown Reference"},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, http.StatusConflict, "Duplicate Link"},
		{"not null", errors.New("NOT NULL constraint failed: team_users.user_id"), http.StatusUnprocessableEntity, "Missing Value"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/junctions/team_users/links/a/1", nil)
			WriteError(rec, req, fmt.Errorf("add team_users: %w", tt.err), nil)

			assert.Equal(t, tt.want, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.title, resp.Title)
			assert.Equal(t, http.StatusText(tt.want), resp.Status)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	code, _ := do(t, http.MethodPut, srv.URL+"/junctions/user_roles/links/1/2")
	require.Equal(t, http.StatusOK, code)

	code, body := do(t, http.MethodGet, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `crm_junction_operations_total{operation="add",status="success",table="user_roles"} 1`)
}
