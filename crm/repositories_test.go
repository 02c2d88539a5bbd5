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
	"database/sql"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/crmjunction/database"
	"github.com/tomoncle/crmjunction/repository"
	"github.com/tomoncle/crmjunction/resilience"
	"github.com/tomoncle/crmjunction/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func quietLogger() database.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return database.NewDefaultLogger(l)
}

// newMigratedDB returns an in-memory database holding every junction table.
func newMigratedDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrationManager(db, database.DefaultConfig(), quietLogger()).RunMigrations(context.Background()))
	return db
}

func newTestRepositories(t *testing.T) (*Repositories, *bun.DB) {
	t.Helper()
	db := newMigratedDB(t)
	repos, err := NewRepositories(db, resilience.NewExecutor(resilience.NoRetry(), quietLogger(), nil))
	require.NoError(t, err)
	return repos, db
}

func TestMigrationsCreateEveryJunctionTable(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()

	for _, s := range junctionSchemas {
		var n int
		err := db.NewRaw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", s.table).Scan(ctx, &n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", s.table)

		err = db.NewRaw("SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?", "idx_"+s.table+"_"+s.second).Scan(ctx, &n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "reverse index of %s", s.table)
	}
}

func TestForeignKeysAreRegistered(t *testing.T) {
	fkm := database.NewForeignKeyManager(quietLogger())
	require.NoError(t, fkm.ValidateConstraints())

	fks := fkm.GetConstraintsByTable("team_users")
	require.Len(t, fks, 2)
	assert.Equal(t, "teams", fks[0].ReferenceTable)
	assert.Equal(t, "users", fks[1].ReferenceTable)
	assert.Equal(t, "fk_team_users_user_id", fks[1].GenerateConstraintName())
}

func TestTeamUsers_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	team := uuid.New()

	for _, user := range []int64{42, 7} {
		link, err := repos.TeamUsers.AddUserToTeam(ctx, team, user)
		require.NoError(t, err)
		assert.True(t, link.Active)
		assert.Equal(t, team, link.TeamID)
	}

	members, err := repos.TeamUsers.UsersForTeam(ctx, team)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, int64(7), members[0].UserID)
	assert.Equal(t, int64(42), members[1].UserID)

	teams, err := repos.TeamUsers.TeamsForUser(ctx, 42)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, team, teams[0].TeamID)

	removed, err := repos.TeamUsers.RemoveUserFromTeam(ctx, team, 42)
	require.NoError(t, err)
	assert.True(t, removed)

	ok, err := repos.TeamUsers.IsMember(ctx, team, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repos.TeamUsers.GetTeamUser(ctx, team, 42)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	again, err := repos.TeamUsers.AddUserToTeam(ctx, team, 42)
	require.NoError(t, err)
	assert.True(t, again.Active)
	ok, err = repos.TeamUsers.IsMember(ctx, team, 42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRoles_IntegerKeys(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)

	_, err := repos.UserRoles.GrantRole(ctx, 1, 10)
	require.NoError(t, err)
	_, err = repos.UserRoles.GrantRole(ctx, 2, 10)
	require.NoError(t, err)

	holders, err := repos.UserRoles.UsersForRole(ctx, 10)
	require.NoError(t, err)
	require.Len(t, holders, 2)
	assert.Equal(t, int64(1), holders[0].UserID)

	has, err := repos.UserRoles.HasRole(ctx, 2, 10)
	require.NoError(t, err)
	assert.True(t, has)

	n, err := repos.UserRoles.DeleteBySecondID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	roles, err := repos.UserRoles.RolesForUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestCallContacts_CallsForContactByType(t *testing.T) {
	ctx := context.Background()
	repos, db := newTestRepositories(t)
	_, err := db.NewCreateTable().Model((*Call)(nil)).Exec(ctx)
	require.NoError(t, err)

	inbound1, inbound2, missed, gone := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	calls := []Call{
		{ID: inbound1, CallType: types.CallTypeInbound},
		{ID: inbound2, CallType: types.CallTypeInbound},
		{ID: missed, CallType: types.CallTypeMissed},
		{ID: gone, CallType: types.CallTypeInbound},
	}
	_, err = db.NewInsert().Model(&calls).Exec(ctx)
	require.NoError(t, err)

	contact, other := uuid.New(), uuid.New()
	for _, call := range []uuid.UUID{inbound1, inbound2, missed, gone} {
		_, err := repos.CallContacts.AddContactToCall(ctx, call, contact)
		require.NoError(t, err)
	}
	_, err = repos.CallContacts.AddContactToCall(ctx, inbound1, other)
	require.NoError(t, err)
	_, err = repos.CallContacts.RemoveContactFromCall(ctx, gone, contact)
	require.NoError(t, err)

	got, err := repos.CallContacts.CallsForContactByType(ctx, contact, types.CallTypeInbound)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(got))
	for _, link := range got {
		assert.Equal(t, contact, link.ContactID)
		ids = append(ids, link.CallID)
	}
	assert.ElementsMatch(t, []uuid.UUID{inbound1, inbound2}, ids)

	got, err = repos.CallContacts.CallsForContactByType(ctx, contact, types.CallTypeMissed)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, missed, got[0].CallID)

	got, err = repos.CallContacts.CallsForContactByType(ctx, contact, types.CallTypeVoicemail)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = repos.CallContacts.CallsForContactByType(ctx, contact, types.CallType(99))
	assert.ErrorIs(t, err, ErrInvalidCallType)
}

func TestRepositories_WithTx(t *testing.T) {
	ctx := context.Background()
	repos, db := newTestRepositories(t)
	note, contact := uuid.New(), uuid.New()
	errAbort := errors.New("abort")

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		txRepos := repos.WithTx(tx)
		if _, err := txRepos.NoteTags.TagNote(ctx, note, 5); err != nil {
			return err
		}
		if _, err := txRepos.ContactTags.TagContact(ctx, contact, 5); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	tagged, err := repos.NoteTags.HasTag(ctx, note, 5)
	require.NoError(t, err)
	assert.False(t, tagged)
	n, err := repos.ContactTags.CountBySecondID(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		txRepos := repos.WithTx(tx)
		_, err := txRepos.NoteTags.TagNote(ctx, note, 5)
		return err
	})
	require.NoError(t, err)
	notes, err := repos.NoteTags.NotesForTag(ctx, 5)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, note, notes[0].NoteID)
}

func TestEveryRepositoryRoundTrips(t *testing.T) {
	ctx := context.Background()
	repos, _ := newTestRepositories(t)
	reg := NewRegistry(repos)

	sample := map[string]string{"uuid": uuid.NewString(), "int64": "31"}
	for _, info := range reg.Junctions() {
		t.Run(info.Name, func(t *testing.T) {
			admin, err := reg.Get(info.Name)
			require.NoError(t, err)
			first, second := sample[info.FirstType], sample[info.SecondType]

			_, err = admin.Add(ctx, first, second)
			require.NoError(t, err)
			ok, err := admin.Exists(ctx, first, second)
			require.NoError(t, err)
			assert.True(t, ok)

			removed, err := admin.Remove(ctx, first, second)
			require.NoError(t, err)
			assert.True(t, removed)
			removed, err = admin.Remove(ctx, first, second)
			require.NoError(t, err)
			assert.False(t, removed)
		})
	}
}
