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

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/tomoncle/crmjunction/types"
	"github.com/uptrace/bun"
)

var (
	// ErrNotFound is returned when no active link exists for a pair.
	ErrNotFound = errors.New("junction link not found")
	// ErrInvalidMapping is returned when a Mapping does not match its model.
	ErrInvalidMapping = errors.New("invalid junction mapping")
)

// LinkState is embedded in every junction record.
type LinkState struct {
	Active    bool      `bun:"active,notnull" json:"active"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// NewLinkState returns the state of a link created at now.
func NewLinkState(now time.Time) LinkState {
	return LinkState{Active: true, CreatedAt: now, UpdatedAt: now}
}

// Mapping binds a junction record type to its table. New builds the record
// stored when a pair is linked for the first time.
type Mapping[E any, A, B comparable] struct {
	Table        string
	FirstColumn  string
	SecondColumn string
	New          func(first A, second B, now time.Time) *E
}

// LookupRepository reads active links.
type LookupRepository[E any, A, B comparable] interface {
	GetByFirstID(ctx context.Context, first A) ([]*E, error)
	GetBySecondID(ctx context.Context, second B) ([]*E, error)
	GetByID(ctx context.Context, first A, second B) (*E, error)
	Exists(ctx context.Context, first A, second B) (bool, error)
	CountByFirstID(ctx context.Context, first A) (int, error)
	CountBySecondID(ctx context.Context, second B) (int, error)
	PageByFirstID(ctx context.Context, first A, page *types.PageRequest) (*types.Pagination[E], error)
}

// LinkRepository creates and soft deletes links.
type LinkRepository[E any, A, B comparable] interface {
	Add(ctx context.Context, first A, second B) (*E, error)
	Delete(ctx context.Context, first A, second B) (bool, error)
	DeleteByFirstID(ctx context.Context, first A) (int64, error)
	DeleteBySecondID(ctx context.Context, second B) (int64, error)
}

// JunctionRepository is the full set of operations on one junction table.
type JunctionRepository[E any, A, B comparable] interface {
	LookupRepository[E, A, B]
	LinkRepository[E, A, B]
	Mapping() Mapping[E, A, B]
	NewSelect(dest interface{}) *bun.SelectQuery
}
