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
	"github.com/google/uuid"
	"github.com/tomoncle/crmjunction/repository"
	"github.com/tomoncle/crmjunction/types"
	"github.com/uptrace/bun"
)

// UUID keys are stored as their 36 character text form on every dialect.

type ActivityAttachment struct {
	bun.BaseModel `bun:"table:activity_attachments,alias:aa"`

	ActivityID   uuid.UUID `bun:"activity_id,pk,type:varchar(36)" json:"activity_id"`
	AttachmentID uuid.UUID `bun:"attachment_id,pk,type:varchar(36)" json:"attachment_id"`
	repository.LinkState
}

type ActivityContact struct {
	bun.BaseModel `bun:"table:activity_contacts,alias:ac"`

	ActivityID uuid.UUID `bun:"activity_id,pk,type:varchar(36)" json:"activity_id"`
	ContactID  uuid.UUID `bun:"contact_id,pk,type:varchar(36)" json:"contact_id"`
	repository.LinkState
}

type CallContact struct {
	bun.BaseModel `bun:"table:call_contacts,alias:cc"`

	CallID    uuid.UUID `bun:"call_id,pk,type:varchar(36)" json:"call_id"`
	ContactID uuid.UUID `bun:"contact_id,pk,type:varchar(36)" json:"contact_id"`
	repository.LinkState
}

// Call is the part of the CRM calls table needed to filter call contacts by
// call type. The table itself is owned by the CRM core schema.
type Call struct {
	bun.BaseModel `bun:"table:calls,alias:ca"`

	ID       uuid.UUID      `bun:"id,pk,type:varchar(36)" json:"id"`
	CallType types.CallType `bun:"call_type,notnull" json:"call_type"`
}

type EmailAttachment struct {
	bun.BaseModel `bun:"table:email_attachments,alias:ea"`

	EmailID      uuid.UUID `bun:"email_id,pk,type:varchar(36)" json:"email_id"`
	AttachmentID uuid.UUID `bun:"attachment_id,pk,type:varchar(36)" json:"attachment_id"`
	repository.LinkState
}

type NoteTag struct {
	bun.BaseModel `bun:"table:note_tags,alias:nt"`

	NoteID uuid.UUID `bun:"note_id,pk,type:varchar(36)" json:"note_id"`
	TagID  int64     `bun:"tag_id,pk" json:"tag_id"`
	repository.LinkState
}

type TaskAssignee struct {
	bun.BaseModel `bun:"table:task_assignees,alias:ta"`

	TaskID uuid.UUID `bun:"task_id,pk,type:varchar(36)" json:"task_id"`
	UserID int64     `bun:"user_id,pk" json:"user_id"`
	repository.LinkState
}

type PersonInvoice struct {
	bun.BaseModel `bun:"table:person_invoices,alias:pi"`

	PersonID  uuid.UUID `bun:"person_id,pk,type:varchar(36)" json:"person_id"`
	InvoiceID uuid.UUID `bun:"invoice_id,pk,type:varchar(36)" json:"invoice_id"`
	repository.LinkState
}

type OpportunityProduct struct {
	bun.BaseModel `bun:"table:opportunity_products,alias:op"`

	OpportunityID uuid.UUID `bun:"opportunity_id,pk,type:varchar(36)" json:"opportunity_id"`
	ProductID     int64     `bun:"product_id,pk" json:"product_id"`
	repository.LinkState
}

type QuoteProduct struct {
	bun.BaseModel `bun:"table:quote_products,alias:qp"`

	QuoteID   uuid.UUID `bun:"quote_id,pk,type:varchar(36)" json:"quote_id"`
	ProductID int64     `bun:"product_id,pk" json:"product_id"`
	repository.LinkState
}

type DealContact struct {
	bun.BaseModel `bun:"table:deal_contacts,alias:dc"`

	DealID    uuid.UUID `bun:"deal_id,pk,type:varchar(36)" json:"deal_id"`
	ContactID uuid.UUID `bun:"contact_id,pk,type:varchar(36)" json:"contact_id"`
	repository.LinkState
}

type CampaignLead struct {
	bun.BaseModel `bun:"table:campaign_leads,alias:cl"`

	CampaignID uuid.UUID `bun:"campaign_id,pk,type:varchar(36)" json:"campaign_id"`
	LeadID     uuid.UUID `bun:"lead_id,pk,type:varchar(36)" json:"lead_id"`
	repository.LinkState
}

type CompanyContact struct {
	bun.BaseModel `bun:"table:company_contacts,alias:coc"`

	CompanyID uuid.UUID `bun:"company_id,pk,type:varchar(36)" json:"company_id"`
	ContactID uuid.UUID `bun:"contact_id,pk,type:varchar(36)" json:"contact_id"`
	repository.LinkState
}

type ContactTag struct {
	bun.BaseModel `bun:"table:contact_tags,alias:ct"`

	ContactID uuid.UUID `bun:"contact_id,pk,type:varchar(36)" json:"contact_id"`
	TagID     int64     `bun:"tag_id,pk" json:"tag_id"`
	repository.LinkState
}

type EventAttendee struct {
	bun.BaseModel `bun:"table:event_attendees,alias:eva"`

	EventID  uuid.UUID `bun:"event_id,pk,type:varchar(36)" json:"event_id"`
	PersonID uuid.UUID `bun:"person_id,pk,type:varchar(36)" json:"person_id"`
	repository.LinkState
}

type TeamUser struct {
	bun.BaseModel `bun:"table:team_users,alias:tu"`

	TeamID uuid.UUID `bun:"team_id,pk,type:varchar(36)" json:"team_id"`
	UserID int64     `bun:"user_id,pk" json:"user_id"`
	repository.LinkState
}

type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	UserID int64 `bun:"user_id,pk" json:"user_id"`
	RoleID int64 `bun:"role_id,pk" json:"role_id"`
	repository.LinkState
}

type ProjectUser struct {
	bun.BaseModel `bun:"table:project_users,alias:pu"`

	ProjectID uuid.UUID `bun:"project_id,pk,type:varchar(36)" json:"project_id"`
	UserID    int64     `bun:"user_id,pk" json:"user_id"`
	repository.LinkState
}

type TicketAttachment struct {
	bun.BaseModel `bun:"table:ticket_attachments,alias:tka"`

	TicketID     uuid.UUID `bun:"ticket_id,pk,type:varchar(36)" json:"ticket_id"`
	AttachmentID uuid.UUID `bun:"attachment_id,pk,type:varchar(36)" json:"attachment_id"`
	repository.LinkState
}
