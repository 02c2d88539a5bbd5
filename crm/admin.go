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
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tomoncle/crmjunction/repository"
)

var (
	// ErrUnknownJunction is returned by Registry.Get for an unregistered name.
	ErrUnknownJunction = errors.New("unknown junction")
	// ErrInvalidID is returned when a string id cannot be parsed into the
	// column type.
	ErrInvalidID = errors.New("invalid id")
)

// JunctionInfo describes one junction table for listings.
type JunctionInfo struct {
	Name         string `json:"name"`
	FirstColumn  string `json:"first_column"`
	FirstType    string `json:"first_type"`
	SecondColumn string `json:"second_column"`
	SecondType   string `json:"second_type"`
}

// LinkAdmin exposes a junction repository through string ids. Results are
// the typed records of the underlying repository.
type LinkAdmin interface {
	Info() JunctionInfo
	Add(ctx context.Context, first, second string) (interface{}, error)
	Remove(ctx context.Context, first, second string) (bool, error)
	Get(ctx context.Context, first, second string) (interface{}, error)
	Exists(ctx context.Context, first, second string) (bool, error)
	ListByFirst(ctx context.Context, first string) (interface{}, error)
	ListBySecond(ctx context.Context, second string) (interface{}, error)
}

type idParser[T comparable] struct {
	kind  string
	parse func(string) (T, error)
}

var (
	uuidIDs  = idParser[uuid.UUID]{kind: "uuid", parse: uuid.Parse}
	int64IDs = idParser[int64]{kind: "int64", parse: func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	}}
)

func (p idParser[T]) Parse(column, s string) (T, error) {
	v, err := p.parse(strings.TrimSpace(s))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s %q is not a valid %s", ErrInvalidID, column, s, p.kind)
	}
	return v, nil
}

type linkAdmin[E any, A, B comparable] struct {
	repo   *repository.Junction[E, A, B]
	first  idParser[A]
	second idParser[B]
}

func newLinkAdmin[E any, A, B comparable](repo *repository.Junction[E, A, B], first idParser[A], second idParser[B]) LinkAdmin {
	return &linkAdmin[E, A, B]{repo: repo, first: first, second: second}
}

func (a *linkAdmin[E, A, B]) Info() JunctionInfo {
	m := a.repo.Mapping()
	return JunctionInfo{
		Name:         m.Table,
		FirstColumn:  m.FirstColumn,
		FirstType:    a.first.kind,
		SecondColumn: m.SecondColumn,
		SecondType:   a.second.kind,
	}
}

func (a *linkAdmin[E, A, B]) pair(first, second string) (A, B, error) {
	m := a.repo.Mapping()
	f, err := a.first.Parse(m.FirstColumn, first)
	if err != nil {
		var zero B
		return f, zero, err
	}
	s, err := a.second.Parse(m.SecondColumn, second)
	return f, s, err
}

func (a *linkAdmin[E, A, B]) Add(ctx context.Context, first, second string) (interface{}, error) {
	f, s, err := a.pair(first, second)
	if err != nil {
		return nil, err
	}
	rec, err := a.repo.Add(ctx, f, s)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (a *linkAdmin[E, A, B]) Remove(ctx context.Context, first, second string) (bool, error) {
	f, s, err := a.pair(first, second)
	if err != nil {
		return false, err
	}
	return a.repo.Delete(ctx, f, s)
}

func (a *linkAdmin[E, A, B]) Get(ctx context.Context, first, second string) (interface{}, error) {
	f, s, err := a.pair(first, second)
	if err != nil {
		return nil, err
	}
	rec, err := a.repo.GetByID(ctx, f, s)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (a *linkAdmin[E, A, B]) Exists(ctx context.Context, first, second string) (bool, error) {
	f, s, err := a.pair(first, second)
	if err != nil {
		return false, err
	}
	return a.repo.Exists(ctx, f, s)
}

func (a *linkAdmin[E, A, B]) ListByFirst(ctx context.Context, first string) (interface{}, error) {
	f, err := a.first.Parse(a.repo.Mapping().FirstColumn, first)
	if err != nil {
		return nil, err
	}
	rec, err := a.repo.GetByFirstID(ctx, f)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (a *linkAdmin[E, A, B]) ListBySecond(ctx context.Context, second string) (interface{}, error) {
	s, err := a.second.Parse(a.repo.Mapping().SecondColumn, second)
	if err != nil {
		return nil, err
	}
	rec, err := a.repo.GetBySecondID(ctx, s)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Registry looks up a LinkAdmin by junction table name.
type Registry struct {
	admins map[string]LinkAdmin
}

func NewRegistry(repos *Repositories) *Registry {
	admins := []LinkAdmin{
		newLinkAdmin(repos.ActivityAttachments.Junction, uuidIDs, uuidIDs),
		newLinkAdmin(repos.ActivityContacts.Junction, uuidIDs, uuidIDs),
		newLinkAdmin(repos.CallContacts.Junction, uuidIDs, uuidIDs),
		newLinkAdmin(repos.EmailAttachments.Junction, uuidIDs, uuidIDs),
		newLinkAdmin(repos.NoteTags.Junction, uuidIDs, int64IDs),
		newLinkAdmin(repos.TaskAssignees.Junction, uuidIDs, int64IDs),
		newLinkAdmin(repos.PersonInvoices.Junction, uuidIDs, uuidIDs),
		newLinkAdmin(repos.OpportunityProducts.Junction, uuidIDs, int64IDs),
		newLinkAdmin(repos.QuoteProducts.Junction, uuidIDs, int64IDs),
		newLinkAdmin(repos.DealContacts.Junction, uuidIDs, uuidIDs),
		newLinkAdmin(repos.CampaignLeads.Junction, uuidIDs, uuidIDs),
		newLinkAdmin(repos.CompanyContacts.Junction, uuidIDs, uuidIDs),
		newLinkAdmin(repos.ContactTags.Junction, uuidIDs, int64IDs),
		newLinkAdmin(repos.EventAttendees.Junction, uuidIDs, uuidIDs),
		newLinkAdmin(repos.TeamUsers.Junction, uuidIDs, int64IDs),
		newLinkAdmin(repos.UserRoles.Junction, int64IDs, int64IDs),
		newLinkAdmin(repos.ProjectUsers.Junction, uuidIDs, int64IDs),
		newLinkAdmin(repos.TicketAttachments.Junction, uuidIDs, uuidIDs),
	}
	r := &Registry{admins: make(map[string]LinkAdmin, len(admins))}
	for _, a := range admins {
		r.admins[a.Info().Name] = a
	}
	return r
}

func (r *Registry) Get(name string) (LinkAdmin, error) {
	a, ok := r.admins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJunction, name)
	}
	return a, nil
}

// Names returns the registered junction names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.admins))
	for name := range r.admins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) Junctions() []JunctionInfo {
	names := r.Names()
	out := make([]JunctionInfo, 0, len(names))
	for _, name := range names {
		out = append(out, r.admins[name].Info())
	}
	return out
}
