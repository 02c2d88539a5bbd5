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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/tomoncle/crmjunction/database"
	"github.com/tomoncle/crmjunction/resilience"
	"github.com/tomoncle/crmjunction/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

const (
	activeColumn    = "active"
	updatedAtColumn = "updated_at"
)

// Junction implements JunctionRepository for one junction table. It is safe
// for concurrent use.
type Junction[E any, A, B comparable] struct {
	db      bun.IDB
	exec    *resilience.Executor
	mapping Mapping[E, A, B]
	first   bun.Ident
	second  bun.Ident
	now     func() time.Time
}

var _ JunctionRepository[struct{}, int, int] = (*Junction[struct{}, int, int])(nil)

// NewJunction checks mapping against the bun model of E and returns the
// repository. db may be a *bun.DB or a bun.Tx.
func NewJunction[E any, A, B comparable](db bun.IDB, exec *resilience.Executor, mapping Mapping[E, A, B]) (*Junction[E, A, B], error) {
	if err := validateMapping(db, mapping); err != nil {
		return nil, err
	}
	if inTx(db) {
		exec = exec.Once()
	}
	return &Junction[E, A, B]{
		db:      db,
		exec:    exec,
		mapping: mapping,
		first:   bun.Ident(mapping.FirstColumn),
		second:  bun.Ident(mapping.SecondColumn),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func validateMapping[E any, A, B comparable](db bun.IDB, m Mapping[E, A, B]) error {
	for _, id := range []string{m.Table, m.FirstColumn, m.SecondColumn} {
		if !database.ValidIdentifier(id) {
			return fmt.Errorf("%w: invalid identifier %q", ErrInvalidMapping, id)
		}
	}
	if m.FirstColumn == m.SecondColumn {
		return fmt.Errorf("%w: %s uses %q for both columns", ErrInvalidMapping, m.Table, m.FirstColumn)
	}
	if m.New == nil {
		return fmt.Errorf("%w: %s has no constructor", ErrInvalidMapping, m.Table)
	}

	table := db.Dialect().Tables().Get(reflect.TypeOf((*E)(nil)).Elem())
	if table.Name != m.Table {
		return fmt.Errorf("%w: model %s is bound to table %q, not %q", ErrInvalidMapping, table.TypeName, table.Name, m.Table)
	}
	pks := make(map[string]bool, len(table.PKs))
	for _, f := range table.PKs {
		pks[f.Name] = true
	}
	for _, col := range []string{m.FirstColumn, m.SecondColumn} {
		if !pks[col] {
			return fmt.Errorf("%w: %s.%s is not a primary key column", ErrInvalidMapping, m.Table, col)
		}
	}
	for _, col := range []string{activeColumn, "created_at", updatedAtColumn} {
		if !table.HasField(col) {
			return fmt.Errorf("%w: %s has no %s column", ErrInvalidMapping, m.Table, col)
		}
	}
	return nil
}

// WithTx returns the same repository bound to db, usually a caller-owned
// transaction. Operations on a transaction are not retried.
func (j *Junction[E, A, B]) WithTx(db bun.IDB) *Junction[E, A, B] {
	clone := *j
	clone.db = db
	if inTx(db) {
		clone.exec = j.exec.Once()
	}
	return &clone
}

func inTx(db bun.IDB) bool {
	_, ok := db.(bun.Tx)
	return ok
}

func (j *Junction[E, A, B]) Mapping() Mapping[E, A, B] {
	return j.mapping
}

func (j *Junction[E, A, B]) DB() bun.IDB {
	return j.db
}

func (j *Junction[E, A, B]) Executor() *resilience.Executor {
	return j.exec
}

func (j *Junction[E, A, B]) op(name string) resilience.Operation {
	return resilience.Operation{Name: name, Table: j.mapping.Table}
}

// NewSelect starts a select of active links into dest. Columns of the
// junction table are addressed through ?TableAlias.
func (j *Junction[E, A, B]) NewSelect(dest interface{}) *bun.SelectQuery {
	return j.db.NewSelect().
		Model(dest).
		Where("?TableAlias.? = ?", bun.Ident(activeColumn), true)
}

// Find runs a custom select of active links. build receives the output of
// NewSelect and may add joins and filters.
func (j *Junction[E, A, B]) Find(ctx context.Context, operation string, build func(q *bun.SelectQuery) *bun.SelectQuery) ([]*E, error) {
	return resilience.Execute(ctx, j.exec, j.op(operation), func(ctx context.Context) ([]*E, error) {
		rows := make([]*E, 0)
		if err := build(j.NewSelect(&rows)).Scan(ctx); err != nil {
			return nil, err
		}
		return rows, nil
	})
}

// GetByFirstID returns the active links of first ordered by the second id.
func (j *Junction[E, A, B]) GetByFirstID(ctx context.Context, first A) ([]*E, error) {
	rows, err := j.Find(ctx, "get_by_first_id", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? = ?", j.first, first).
			OrderExpr("?TableAlias.? ASC", j.second)
	})
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", j.mapping.Table, j.mapping.FirstColumn, err)
	}
	return rows, nil
}

// GetBySecondID returns the active links of second ordered by the first id.
func (j *Junction[E, A, B]) GetBySecondID(ctx context.Context, second B) ([]*E, error) {
	rows, err := j.Find(ctx, "get_by_second_id", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? = ?", j.second, second).
			OrderExpr("?TableAlias.? ASC", j.first)
	})
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", j.mapping.Table, j.mapping.SecondColumn, err)
	}
	return rows, nil
}

// GetByID returns the active link for the pair or ErrNotFound.
func (j *Junction[E, A, B]) GetByID(ctx context.Context, first A, second B) (*E, error) {
	row, err := resilience.Execute(ctx, j.exec, j.op("get_by_id"), func(ctx context.Context) (*E, error) {
		row := new(E)
		err := j.NewSelect(row).
			Where("?TableAlias.? = ?", j.first, first).
			Where("?TableAlias.? = ?", j.second, second).
			Limit(1).
			Scan(ctx)
		return row, err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s (%v, %v): %w", j.mapping.Table, first, second, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s (%v, %v): %w", j.mapping.Table, first, second, err)
	}
	return row, nil
}

// Exists reports whether an active link exists for the pair.
func (j *Junction[E, A, B]) Exists(ctx context.Context, first A, second B) (bool, error) {
	ok, err := resilience.Execute(ctx, j.exec, j.op("exists"), func(ctx context.Context) (bool, error) {
		return j.NewSelect((*E)(nil)).
			Where("?TableAlias.? = ?", j.first, first).
			Where("?TableAlias.? = ?", j.second, second).
			Exists(ctx)
	})
	if err != nil {
		return false, fmt.Errorf("check %s (%v, %v): %w", j.mapping.Table, first, second, err)
	}
	return ok, nil
}

func (j *Junction[E, A, B]) CountByFirstID(ctx context.Context, first A) (int, error) {
	n, err := resilience.Execute(ctx, j.exec, j.op("count_by_first_id"), func(ctx context.Context) (int, error) {
		return j.NewSelect((*E)(nil)).Where("?TableAlias.? = ?", j.first, first).Count(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("count %s by %s: %w", j.mapping.Table, j.mapping.FirstColumn, err)
	}
	return n, nil
}

func (j *Junction[E, A, B]) CountBySecondID(ctx context.Context, second B) (int, error) {
	n, err := resilience.Execute(ctx, j.exec, j.op("count_by_second_id"), func(ctx context.Context) (int, error) {
		return j.NewSelect((*E)(nil)).Where("?TableAlias.? = ?", j.second, second).Count(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("count %s by %s: %w", j.mapping.Table, j.mapping.SecondColumn, err)
	}
	return n, nil
}

// PageByFirstID returns one page of the active links of first. Without
// explicit orders the page is ordered by the second id.
func (j *Junction[E, A, B]) PageByFirstID(ctx context.Context, first A, page *types.PageRequest) (*types.Pagination[E], error) {
	if page == nil {
		page = types.NewDefaultPageRequest(1, types.DefaultPageSize)
	}
	result, err := resilience.Execute(ctx, j.exec, j.op("page_by_first_id"), func(ctx context.Context) (*types.Pagination[E], error) {
		rows := make([]*E, 0)
		q := j.NewSelect(&rows).Where("?TableAlias.? = ?", j.first, first)
		if f := page.GetFilter(); f != nil {
			q = q.Where(f.Schema, f.Args...)
		}
		if orders := page.GetOrders(); len(orders) > 0 {
			q = q.Order(orders...)
		} else {
			q = q.OrderExpr("?TableAlias.? ASC", j.second)
		}
		total, err := q.Limit(page.GetPageSize()).Offset(page.GetOffset()).ScanAndCount(ctx)
		if err != nil {
			return nil, err
		}
		p := types.NewDefaultPagination[E](page.GetPage(), page.GetPageSize())
		p.Total = total
		p.Items = rows
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("page %s by %s: %w", j.mapping.Table, j.mapping.FirstColumn, err)
	}
	return result, nil
}

// Add links first and second. A new pair is inserted as active; an existing
// one, soft deleted or not, is reactivated with its created_at unchanged.
// The stored row is returned.
func (j *Junction[E, A, B]) Add(ctx context.Context, first A, second B) (*E, error) {
	row, err := resilience.Execute(ctx, j.exec, j.op("add"), func(ctx context.Context) (*E, error) {
		now := j.now()
		if err := j.upsert(ctx, j.mapping.New(first, second, now), first, second, now); err != nil {
			return nil, err
		}
		stored := new(E)
		err := j.db.NewSelect().
			Model(stored).
			Where("?TableAlias.? = ?", j.first, first).
			Where("?TableAlias.? = ?", j.second, second).
			Limit(1).
			Scan(ctx)
		return stored, err
	})
	if err != nil {
		return nil, fmt.Errorf("add %s (%v, %v): %w", j.mapping.Table, first, second, err)
	}
	return row, nil
}

func (j *Junction[E, A, B]) upsert(ctx context.Context, entity *E, first A, second B, now time.Time) error {
	features := j.db.Dialect().Features()
	active, updatedAt := bun.Ident(activeColumn), bun.Ident(updatedAtColumn)
	switch {
	case features.Has(feature.InsertOnConflict):
		_, err := j.db.NewInsert().
			Model(entity).
			On("CONFLICT (?, ?) DO UPDATE", j.first, j.second).
			Set("? = EXCLUDED.?", active, active).
			Set("? = EXCLUDED.?", updatedAt, updatedAt).
			Exec(ctx)
		return err
	case features.Has(feature.InsertOnDuplicateKey):
		_, err := j.db.NewInsert().
			Model(entity).
			On("DUPLICATE KEY UPDATE").
			Set("? = VALUES(?)", active, active).
			Set("? = VALUES(?)", updatedAt, updatedAt).
			Exec(ctx)
		return err
	default:
		return j.upsertFallback(ctx, entity, first, second, now)
	}
}

// upsertFallback serves dialects without a native upsert.
func (j *Junction[E, A, B]) upsertFallback(ctx context.Context, entity *E, first A, second B, now time.Time) error {
	exists, err := j.db.NewSelect().
		Model((*E)(nil)).
		Where("?TableAlias.? = ?", j.first, first).
		Where("?TableAlias.? = ?", j.second, second).
		Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		_, err = j.db.NewInsert().Model(entity).Exec(ctx)
		return err
	}
	_, err = j.db.NewUpdate().
		Model((*E)(nil)).
		Set("? = ?", bun.Ident(activeColumn), true).
		Set("? = ?", bun.Ident(updatedAtColumn), now).
		Where("? = ?", j.first, first).
		Where("? = ?", j.second, second).
		Exec(ctx)
	return err
}

// Delete soft deletes the active link for the pair. It reports whether a
// link was deactivated; rows are never removed.
func (j *Junction[E, A, B]) Delete(ctx context.Context, first A, second B) (bool, error) {
	n, err := resilience.Execute(ctx, j.exec, j.op("delete"), func(ctx context.Context) (int64, error) {
		return j.deactivate(ctx, func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Where("? = ?", j.first, first).Where("? = ?", j.second, second)
		})
	})
	if err != nil {
		return false, fmt.Errorf("delete %s (%v, %v): %w", j.mapping.Table, first, second, err)
	}
	return n > 0, nil
}

// DeleteByFirstID soft deletes every active link of first.
func (j *Junction[E, A, B]) DeleteByFirstID(ctx context.Context, first A) (int64, error) {
	n, err := resilience.Execute(ctx, j.exec, j.op("delete_by_first_id"), func(ctx context.Context) (int64, error) {
		return j.deactivate(ctx, func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Where("? = ?", j.first, first)
		})
	})
	if err != nil {
		return 0, fmt.Errorf("delete %s by %s: %w", j.mapping.Table, j.mapping.FirstColumn, err)
	}
	return n, nil
}

// DeleteBySecondID soft deletes every active link of second.
func (j *Junction[E, A, B]) DeleteBySecondID(ctx context.Context, second B) (int64, error) {
	n, err := resilience.Execute(ctx, j.exec, j.op("delete_by_second_id"), func(ctx context.Context) (int64, error) {
		return j.deactivate(ctx, func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.Where("? = ?", j.second, second)
		})
	})
	if err != nil {
		return 0, fmt.Errorf("delete %s by %s: %w", j.mapping.Table, j.mapping.SecondColumn, err)
	}
	return n, nil
}

func (j *Junction[E, A, B]) deactivate(ctx context.Context, where func(q *bun.UpdateQuery) *bun.UpdateQuery) (int64, error) {
	q := j.db.NewUpdate().
		Model((*E)(nil)).
		Set("? = ?", bun.Ident(activeColumn), false).
		Set("? = ?", bun.Ident(updatedAtColumn), j.now()).
		Where("? = ?", bun.Ident(activeColumn), true)
	res, err := where(q).Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
