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

package crm

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crmjunction/repository"
)

func TestRegistry_Names(t *testing.T) {
	repos, _ := newTestRepositories(t)
	reg := NewRegistry(repos)

	names := reg.Names()
	assert.Len(t, names, len(junctionSchemas))
	assert.True(t, sort.StringsAreSorted(names))
	assert.Contains(t, names, "call_contacts")

	_, err := reg.Get("widget_tags")
	assert.ErrorIs(t, err, ErrUnknownJunction)
}

func TestRegistry_InfoMatchesSchema(t *testing.T) {
	repos, _ := newTestRepositories(t)
	reg := NewRegistry(repos)

	byName := make(map[string]JunctionInfo)
	for _, info := range reg.Junctions() {
		byName[info.Name] = info
	}
	for _, s := range junctionSchemas {
		info, ok := byName[s.table]
		require.True(t, ok, s.table)
		assert.Equal(t, s.first, info.FirstColumn)
		assert.Equal(t, s.second, info.SecondColumn)
	}

	assert.Equal(t, JunctionInfo{
		Name:         "user_roles",
		FirstColumn:  "user_id",
		FirstType:    "int64",
		SecondColumn: "role_id",
		SecondType:   "int64",
	}, byName["user_roles"])
	assert.Equal(t, "uuid", byName["note_tags"].FirstType)
	assert.Equal(t, "int64", byName["note_tags"].SecondType)
}

func TestLinkAdmin_StringIDs(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	admin, err := NewRegistry(repos).Get("note_tags")
	require.NoError(t, err)

	note := uuid.New()
	added, err := admin.Add(ctx, note.String(), " 12 ")
	require.NoError(t, err)
	link, ok := added.(*NoteTag)
	require.True(t, ok)
	assert.Equal(t, note, link.NoteID)
	assert.Equal(t, int64(12), link.TagID)

	listed, err := admin.ListByFirst(ctx, note.String())
	require.NoError(t, err)
	assert.Len(t, listed.([]*NoteTag), 1)

	listed, err = admin.ListBySecond(ctx, "12")
	require.NoError(t, err)
	assert.Len(t, listed.([]*NoteTag), 1)

	got, err := admin.Get(ctx, note.String(), "12")
	require.NoError(t, err)
	assert.Equal(t, note, got.(*NoteTag).NoteID)

	_, err = admin.Get(ctx, note.String(), "13")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLinkAdmin_InvalidIDs(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	admin, err := NewRegistry(repos).Get("note_tags")
	require.NoError(t, err)

	tests := []struct {
		name          string
		first, second string
	}{
		{"bad uuid", "not-a-uuid", "1"},
		{"bad int", uuid.NewString(), "one"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := admin.Add(ctx, tt.first, tt.second)
			assert.ErrorIs(t, err, ErrInvalidID)
			_, err = admin.Exists(ctx, tt.first, tt.second)
			assert.ErrorIs(t, err, ErrInvalidID)
			_, err = admin.Remove(ctx, tt.first, tt.second)
			assert.ErrorIs(t, err, ErrInvalidID)
		})
	}

	_, err = admin.ListBySecond(ctx, "1.5")
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = admin.ListByFirst(ctx, "42")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestLinkAdmin_ErrorsReturnNilRecords(t *testing.T) {
	repos, _ := newTestRepositories(t)
	admin, err := NewRegistry(repos).Get("note_tags")
	require.NoError(t, err)
	note := uuid.NewString()

	rec, err := admin.Get(context.Background(), note, "1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.True(t, rec == nil, "typed nil record")

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	rec, err = admin.Add(canceled, note, "1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, rec == nil)
	rec, err = admin.ListByFirst(canceled, note)
	assert.Error(t, err)
	assert.True(t, rec == nil)
	rec, err = admin.ListBySecond(canceled, "1")
	assert.Error(t, err)
	assert.True(t, rec == nil)
}
