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

var ticketAttachmentMapping = repository.Mapping[TicketAttachment, uuid.UUID, uuid.UUID]{
	Table:        "ticket_attachments",
	FirstColumn:  "ticket_id",
	SecondColumn: "attachment_id",
	New: func(ticketID, attachmentID uuid.UUID, now time.Time) *TicketAttachment {
		return &TicketAttachment{TicketID: ticketID, AttachmentID: attachmentID, LinkState: repository.NewLinkState(now)}
	},
}

// TicketAttachmentRepository links support tickets to attachments.
type TicketAttachmentRepository struct {
	*repository.Junction[TicketAttachment, uuid.UUID, uuid.UUID]
}

func NewTicketAttachmentRepository(db bun.IDB, exec *resilience.Executor) (*TicketAttachmentRepository, error) {
	j, err := repository.NewJunction(db, exec, ticketAttachmentMapping)
	if err != nil {
		return nil, err
	}
	return &TicketAttachmentRepository{j}, nil
}

func (r *TicketAttachmentRepository) WithTx(db bun.IDB) *TicketAttachmentRepository {
	return &TicketAttachmentRepository{r.Junction.WithTx(db)}
}

func (r *TicketAttachmentRepository) AttachmentsForTicket(ctx context.Context, ticketID uuid.UUID) ([]*TicketAttachment, error) {
	return r.GetByFirstID(ctx, ticketID)
}

func (r *TicketAttachmentRepository) TicketsForAttachment(ctx context.Context, attachmentID uuid.UUID) ([]*TicketAttachment, error) {
	return r.GetBySecondID(ctx, attachmentID)
}

func (r *TicketAttachmentRepository) GetTicketAttachment(ctx context.Context, ticketID, attachmentID uuid.UUID) (*TicketAttachment, error) {
	return r.GetByID(ctx, ticketID, attachmentID)
}

func (r *TicketAttachmentRepository) HasAttachment(ctx context.Context, ticketID, attachmentID uuid.UUID) (bool, error) {
	return r.Exists(ctx, ticketID, attachmentID)
}

func (r *TicketAttachmentRepository) AddAttachmentToTicket(ctx context.Context, ticketID, attachmentID uuid.UUID) (*TicketAttachment, error) {
	return r.Add(ctx, ticketID, attachmentID)
}

func (r *TicketAttachmentRepository) RemoveAttachmentFromTicket(ctx context.Context, ticketID, attachmentID uuid.UUID) (bool, error) {
	return r.Delete(ctx, ticketID, attachmentID)
}
