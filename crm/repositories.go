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
	"github.com/tomoncle/crmjunction/resilience"
	"github.com/uptrace/bun"
)

// Repositories holds one repository per junction table, all bound to the
// same database handle and executor.
type Repositories struct {
	ActivityAttachments *ActivityAttachmentRepository
	ActivityContacts    *ActivityContactRepository
	CallContacts        *CallContactRepository
	EmailAttachments    *EmailAttachmentRepository
	NoteTags            *NoteTagRepository
	TaskAssignees       *TaskAssigneeRepository
	PersonInvoices      *PersonInvoiceRepository
	OpportunityProducts *OpportunityProductRepository
	QuoteProducts       *QuoteProductRepository
	DealContacts        *DealContactRepository
	CampaignLeads       *CampaignLeadRepository
	CompanyContacts     *CompanyContactRepository
	ContactTags         *ContactTagRepository
	EventAttendees      *EventAttendeeRepository
	TeamUsers           *TeamUserRepository
	UserRoles           *UserRoleRepository
	ProjectUsers        *ProjectUserRepository
	TicketAttachments   *TicketAttachmentRepository
}

type repoBuilder struct {
	db   bun.IDB
	exec *resilience.Executor
	err  error
}

func build[R any](b *repoBuilder, newRepo func(bun.IDB, *resilience.Executor) (R, error)) R {
	var zero R
	if b.err != nil {
		return zero
	}
	r, err := newRepo(b.db, b.exec)
	if err != nil {
		b.err = err
		return zero
	}
	return r
}

// NewRepositories builds every junction repository on db. The first mapping
// error aborts construction.
func NewRepositories(db bun.IDB, exec *resilience.Executor) (*Repositories, error) {
	b := &repoBuilder{db: db, exec: exec}
	r := &Repositories{
		ActivityAttachments: build(b, NewActivityAttachmentRepository),
		ActivityContacts:    build(b, NewActivityContactRepository),
		CallContacts:        build(b, NewCallContactRepository),
		EmailAttachments:    build(b, NewEmailAttachmentRepository),
		NoteTags:            build(b, NewNoteTagRepository),
		TaskAssignees:       build(b, NewTaskAssigneeRepository),
		PersonInvoices:      build(b, NewPersonInvoiceRepository),
		OpportunityProducts: build(b, NewOpportunityProductRepository),
		QuoteProducts:       build(b, NewQuoteProductRepository),
		DealContacts:        build(b, NewDealContactRepository),
		CampaignLeads:       build(b, NewCampaignLeadRepository),
		CompanyContacts:     build(b, NewCompanyContactRepository),
		ContactTags:         build(b, NewContactTagRepository),
		EventAttendees:      build(b, NewEventAttendeeRepository),
		TeamUsers:           build(b, NewTeamUserRepository),
		UserRoles:           build(b, NewUserRoleRepository),
		ProjectUsers:        build(b, NewProjectUserRepository),
		TicketAttachments:   build(b, NewTicketAttachmentRepository),
	}
	if b.err != nil {
		return nil, b.err
	}
	return r, nil
}

// WithTx returns a copy whose repositories all run on tx.
func (r *Repositories) WithTx(tx bun.IDB) *Repositories {
	return &Repositories{
		ActivityAttachments: r.ActivityAttachments.WithTx(tx),
		ActivityContacts:    r.ActivityContacts.WithTx(tx),
		CallContacts:        r.CallContacts.WithTx(tx),
		EmailAttachments:    r.EmailAttachments.WithTx(tx),
		NoteTags:            r.NoteTags.WithTx(tx),
		TaskAssignees:       r.TaskAssignees.WithTx(tx),
		PersonInvoices:      r.PersonInvoices.WithTx(tx),
		OpportunityProducts: r.OpportunityProducts.WithTx(tx),
		QuoteProducts:       r.QuoteProducts.WithTx(tx),
		DealContacts:        r.DealContacts.WithTx(tx),
		CampaignLeads:       r.CampaignLeads.WithTx(tx),
		CompanyContacts:     r.CompanyContacts.WithTx(tx),
		ContactTags:         r.ContactTags.WithTx(tx),
		EventAttendees:      r.EventAttendees.WithTx(tx),
		TeamUsers:           r.TeamUsers.WithTx(tx),
		UserRoles:           r.UserRoles.WithTx(tx),
		ProjectUsers:        r.ProjectUsers.WithTx(tx),
		TicketAttachments:   r.TicketAttachments.WithTx(tx),
	}
}
