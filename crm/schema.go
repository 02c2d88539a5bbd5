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
	"fmt"

	"github.com/tomoncle/crmjunction/database"
)

// Junction tables depend on the CRM entity tables only, so they share one
// creation priority.
const junctionPriority = 100

type junctionSchema struct {
	model     interface{}
	table     string
	first     string
	firstRef  string
	second    string
	secondRef string
}

var junctionSchemas = []junctionSchema{
	{(*ActivityAttachment)(nil), "activity_attachments", "activity_id", "activities", "attachment_id", "attachments"},
	{(*ActivityContact)(nil), "activity_contacts", "activity_id", "activities", "contact_id", "contacts"},
	{(*CallContact)(nil), "call_contacts", "call_id", "calls", "contact_id", "contacts"},
	{(*EmailAttachment)(nil), "email_attachments", "email_id", "emails", "attachment_id", "attachments"},
	{(*NoteTag)(nil), "note_tags", "note_id", "notes", "tag_id", "tags"},
	{(*TaskAssignee)(nil), "task_assignees", "task_id", "tasks", "user_id", "users"},
	{(*PersonInvoice)(nil), "person_invoices", "person_id", "persons", "invoice_id", "invoices"},
	{(*OpportunityProduct)(nil), "opportunity_products", "opportunity_id", "opportunities", "product_id", "products"},
	{(*QuoteProduct)(nil), "quote_products", "quote_id", "quotes", "product_id", "products"},
	{(*DealContact)(nil), "deal_contacts", "deal_id", "deals", "contact_id", "contacts"},
	{(*CampaignLead)(nil), "campaign_leads", "campaign_id", "campaigns", "lead_id", "leads"},
	{(*CompanyContact)(nil), "company_contacts", "company_id", "companies", "contact_id", "contacts"},
	{(*ContactTag)(nil), "contact_tags", "contact_id", "contacts", "tag_id", "tags"},
	{(*EventAttendee)(nil), "event_attendees", "event_id", "events", "person_id", "persons"},
	{(*TeamUser)(nil), "team_users", "team_id", "teams", "user_id", "users"},
	{(*UserRole)(nil), "user_roles", "user_id", "users", "role_id", "roles"},
	{(*ProjectUser)(nil), "project_users", "project_id", "projects", "user_id", "users"},
	{(*TicketAttachment)(nil), "ticket_attachments", "ticket_id", "tickets", "attachment_id", "attachments"},
}

func init() {
	for _, s := range junctionSchemas {
		database.RegisteredModel(database.NewModelAdapter(s.model, junctionPriority, database.IndexDefinition{
			Name:    fmt.Sprintf("idx_%s_%s", s.table, s.second),
			Columns: []string{s.second},
		}))
		database.RegisterForeignKeys(
			database.ForeignKeyConstraint{
				Table:           s.table,
				Column:          s.first,
				ReferenceTable:  s.firstRef,
				ReferenceColumn: "id",
				OnDelete:        "CASCADE",
			},
			database.ForeignKeyConstraint{
				Table:           s.table,
				Column:          s.second,
				ReferenceTable:  s.secondRef,
				ReferenceColumn: "id",
				OnDelete:        "CASCADE",
			},
		)
	}
}
