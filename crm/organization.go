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
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/crmjunction/repository"
	"github.com/tomoncle/crmjunction/resilience"
	"github.com/uptrace/bun"
)

var teamUserMapping = repository.Mapping[TeamUser, uuid.UUID, int64]{
	Table:        "team_users",
	FirstColumn:  "team_id",
	SecondColumn: "user_id",
	New: func(teamID uuid.UUID, userID int64, now time.Time) *TeamUser {
		return &TeamUser{TeamID: teamID, UserID: userID, LinkState: repository.NewLinkState(now)}
	},
}

// TeamUserRepository manages team membership.
type TeamUserRepository struct {
	*repository.Junction[TeamUser, uuid.UUID, int64]
}

func NewTeamUserRepository(db bun.IDB, exec *resilience.Executor) (*TeamUserRepository, error) {
	j, err := repository.NewJunction(db, exec, teamUserMapping)
	if err != nil {
		return nil, err
	}
	return &TeamUserRepository{j}, nil
}

func (r *TeamUserRepository) WithTx(db bun.IDB) *TeamUserRepository {
	return &TeamUserRepository{r.Junction.WithTx(db)}
}

func (r *TeamUserRepository) UsersForTeam(ctx context.Context, teamID uuid.UUID) ([]*TeamUser, error) {
	return r.GetByFirstID(ctx, teamID)
}

func (r *TeamUserRepository) TeamsForUser(ctx context.Context, userID int64) ([]*TeamUser, error) {
	return r.GetBySecondID(ctx, userID)
}

func (r *TeamUserRepository) GetTeamUser(ctx context.Context, teamID uuid.UUID, userID int64) (*TeamUser, error) {
	return r.GetByID(ctx, teamID, userID)
}

func (r *TeamUserRepository) IsMember(ctx context.Context, teamID uuid.UUID, userID int64) (bool, error) {
	return r.Exists(ctx, teamID, userID)
}

func (r *TeamUserRepository) AddUserToTeam(ctx context.Context, teamID uuid.UUID, userID int64) (*TeamUser, error) {
	return r.Add(ctx, teamID, userID)
}

func (r *TeamUserRepository) RemoveUserFromTeam(ctx context.Context, teamID uuid.UUID, userID int64) (bool, error) {
	return r.Delete(ctx, teamID, userID)
}

var userRoleMapping = repository.Mapping[UserRole, int64, int64]{
	Table:        "user_roles",
	FirstColumn:  "user_id",
	SecondColumn: "role_id",
	New: func(userID, roleID int64, now time.Time) *UserRole {
		return &UserRole{UserID: userID, RoleID: roleID, LinkState: repository.NewLinkState(now)}
	},
}

// UserRoleRepository grants roles to users.
type UserRoleRepository struct {
	*repository.Junction[UserRole, int64, int64]
}

func NewUserRoleRepository(db bun.IDB, exec *resilience.Executor) (*UserRoleRepository, error) {
	j, err := repository.NewJunction(db, exec, userRoleMapping)
	if err != nil {
		return nil, err
	}
	return &UserRoleRepository{j}, nil
}

func (r *UserRoleRepository) WithTx(db bun.IDB) *UserRoleRepository {
	return &UserRoleRepository{r.Junction.WithTx(db)}
}

func (r *UserRoleRepository) RolesForUser(ctx context.Context, userID int64) ([]*UserRole, error) {
	return r.GetByFirstID(ctx, userID)
}

func (r *UserRoleRepository) UsersForRole(ctx context.Context, roleID int64) ([]*UserRole, error) {
	return r.GetBySecondID(ctx, roleID)
}

func (r *UserRoleRepository) GetUserRole(ctx context.Context, userID, roleID int64) (*UserRole, error) {
	return r.GetByID(ctx, userID, roleID)
}

func (r *UserRoleRepository) HasRole(ctx context.Context, userID, roleID int64) (bool, error) {
	return r.Exists(ctx, userID, roleID)
}

func (r *UserRoleRepository) GrantRole(ctx context.Context, userID, roleID int64) (*UserRole, error) {
	return r.Add(ctx, userID, roleID)
}

func (r *UserRoleRepository) RevokeRole(ctx context.Context, userID, roleID int64) (bool, error) {
	return r.Delete(ctx, userID, roleID)
}

var projectUserMapping = repository.Mapping[ProjectUser, uuid.UUID, int64]{
	Table:        "project_users",
	FirstColumn:  "project_id",
	SecondColumn: "user_id",
	New: func(projectID uuid.UUID, userID int64, now time.Time) *ProjectUser {
		return &ProjectUser{ProjectID: projectID, UserID: userID, LinkState: repository.NewLinkState(now)}
	},
}

type ProjectUserRepository struct {
	*repository.Junction[ProjectUser, uuid.UUID, int64]
}

func NewProjectUserRepository(db bun.IDB, exec *resilience.Executor) (*ProjectUserRepository, error) {
	j, err := repository.NewJunction(db, exec, projectUserMapping)
	if err != nil {
		return nil, err
	}
	return &ProjectUserRepository{j}, nil
}

func (r *ProjectUserRepository) WithTx(db bun.IDB) *ProjectUserRepository {
	return &ProjectUserRepository{r.Junction.WithTx(db)}
}

func (r *ProjectUserRepository) UsersForProject(ctx context.Context, projectID uuid.UUID) ([]*ProjectUser, error) {
	return r.GetByFirstID(ctx, projectID)
}

func (r *ProjectUserRepository) ProjectsForUser(ctx context.Context, userID int64) ([]*ProjectUser, error) {
	return r.GetBySecondID(ctx, userID)
}

func (r *ProjectUserRepository) GetProjectUser(ctx context.Context, projectID uuid.UUID, userID int64) (*ProjectUser, error) {
	return r.GetByID(ctx, projectID, userID)
}

func (r *ProjectUserRepository) IsMember(ctx context.Context, projectID uuid.UUID, userID int64) (bool, error) {
	return r.Exists(ctx, projectID, userID)
}

func (r *ProjectUserRepository) AddUserToProject(ctx context.Context, projectID uuid.UUID, userID int64) (*ProjectUser, error) {
	return r.Add(ctx, projectID, userID)
}

func (r *ProjectUserRepository) RemoveUserFromProject(ctx context.Context, projectID uuid.UUID, userID int64) (bool, error) {
	return r.Delete(ctx, projectID, userID)
}
