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

var companyContactMapping = repository.Mapping[CompanyContact, uuid.UUID, uuid.UUID]{
	Table:        "company_contacts",
	FirstColumn:  "company_id",
	SecondColumn: "contact_id",
	New: func(companyID, contactID uuid.UUID, now time.Time) *CompanyContact {
		return &CompanyContact{CompanyID: companyID, ContactID: contactID, LinkState: repository.NewLinkState(now)}
	},
}

type CompanyContactRepository struct {
	*repository.Junction[CompanyContact, uuid.UUID, uuid.UUID]
}

func NewCompanyContactRepository(db bun.IDB, exec *resilience.Executor) (*CompanyContactRepository, error) {
	j, err := repository.NewJunction(db, exec, companyContactMapping)
	if err != nil {
		return nil, err
	}
	return &CompanyContactRepository{j}, nil
}

func (r *CompanyContactRepository) WithTx(db bun.IDB) *CompanyContactRepository {
	return &CompanyContactRepository{r.Junction.WithTx(db)}
}

func (r *CompanyContactRepository) ContactsForCompany(ctx context.Context, companyID uuid.UUID) ([]*CompanyContact, error) {
	return r.GetByFirstID(ctx, companyID)
}

func (r *CompanyContactRepository) CompaniesForContact(ctx context.Context, contactID uuid.UUID) ([]*CompanyContact, error) {
	return r.GetBySecondID(ctx, contactID)
}

func (r *CompanyContactRepository) GetCompanyContact(ctx context.Context, companyID, contactID uuid.UUID) (*CompanyContact, error) {
	return r.GetByID(ctx, companyID, contactID)
}

func (r *CompanyContactRepository) HasContact(ctx context.Context, companyID, contactID uuid.UUID) (bool, error) {
	return r.Exists(ctx, companyID, contactID)
}

func (r *CompanyContactRepository) AddContactToCompany(ctx context.Context, companyID, contactID uuid.UUID) (*CompanyContact, error) {
	return r.Add(ctx, companyID, contactID)
}

func (r *CompanyContactRepository) RemoveContactFromCompany(ctx context.Context, companyID, contactID uuid.UUID) (bool, error) {
	return r.Delete(ctx, companyID, contactID)
}

var contactTagMapping = repository.Mapping[ContactTag, uuid.UUID, int64]{
	Table:        "contact_tags",
	FirstColumn:  "contact_id",
	SecondColumn: "tag_id",
	New: func(contactID uuid.UUID, tagID int64, now time.Time) *ContactTag {
		return &ContactTag{ContactID: contactID, TagID: tagID, LinkState: repository.NewLinkState(now)}
	},
}

type ContactTagRepository struct {
	*repository.Junction[ContactTag, uuid.UUID, int64]
}

func NewContactTagRepository(db bun.IDB, exec *resilience.Executor) (*ContactTagRepository, error) {
	j, err := repository.NewJunction(db, exec, contactTagMapping)
	if err != nil {
		return nil, err
	}
	return &ContactTagRepository{j}, nil
}

func (r *ContactTagRepository) WithTx(db bun.IDB) *ContactTagRepository {
	return &ContactTagRepository{r.Junction.WithTx(db)}
}

func (r *ContactTagRepository) TagsForContact(ctx context.Context, contactID uuid.UUID) ([]*ContactTag, error) {
	return r.GetByFirstID(ctx, contactID)
}

func (r *ContactTagRepository) ContactsForTag(ctx context.Context, tagID int64) ([]*ContactTag, error) {
	return r.GetBySecondID(ctx, tagID)
}

func (r *ContactTagRepository) GetContactTag(ctx context.Context, contactID uuid.UUID, tagID int64) (*ContactTag, error) {
	return r.GetByID(ctx, contactID, tagID)
}

func (r *ContactTagRepository) HasTag(ctx context.Context, contactID uuid.UUID, tagID int64) (bool, error) {
	return r.Exists(ctx, contactID, tagID)
}

func (r *ContactTagRepository) TagContact(ctx context.Context, contactID uuid.UUID, tagID int64) (*ContactTag, error) {
	return r.Add(ctx, contactID, tagID)
}

func (r *ContactTagRepository) UntagContact(ctx context.Context, contactID uuid.UUID, tagID int64) (bool, error) {
	return r.Delete(ctx, contactID, tagID)
}

var eventAttendeeMapping = repository.Mapping[EventAttendee, uuid.UUID, uuid.UUID]{
	Table:        "event_attendees",
	FirstColumn:  "event_id",
	SecondColumn: "person_id",
	New: func(eventID, personID uuid.UUID, now time.Time) *EventAttendee {
		return &EventAttendee{EventID: eventID, PersonID: personID, LinkState: repository.NewLinkState(now)}
	},
}

// EventAttendeeRepository tracks the people attending an event.
type EventAttendeeRepository struct {
	*repository.Junction[EventAttendee, uuid.UUID, uuid.UUID]
}

func NewEventAttendeeRepository(db bun.IDB, exec *resilience.Executor) (*EventAttendeeRepository, error) {
	j, err := repository.NewJunction(db, exec, eventAttendeeMapping)
	if err != nil {
		return nil, err
	}
	return &EventAttendeeRepository{j}, nil
}

func (r *EventAttendeeRepository) WithTx(db bun.IDB) *EventAttendeeRepository {
	return &EventAttendeeRepository{r.Junction.WithTx(db)}
}

func (r *EventAttendeeRepository) AttendeesForEvent(ctx context.Context, eventID uuid.UUID) ([]*EventAttendee, error) {
	return r.GetByFirstID(ctx, eventID)
}

func (r *EventAttendeeRepository) EventsForPerson(ctx context.Context, personID uuid.UUID) ([]*EventAttendee, error) {
	return r.GetBySecondID(ctx, personID)
}

func (r *EventAttendeeRepository) GetEventAttendee(ctx context.Context, eventID, personID uuid.UUID) (*EventAttendee, error) {
	return r.GetByID(ctx, eventID, personID)
}

func (r *EventAttendeeRepository) IsAttending(ctx context.Context, eventID, personID uuid.UUID) (bool, error) {
	return r.Exists(ctx, eventID, personID)
}

func (r *EventAttendeeRepository) AddAttendee(ctx context.Context, eventID, personID uuid.UUID) (*EventAttendee, error) {
	return r.Add(ctx, eventID, personID)
}

func (r *EventAttendeeRepository) RemoveAttendee(ctx context.Context, eventID, personID uuid.UUID) (bool, error) {
	return r.Delete(ctx, eventID, personID)
}
