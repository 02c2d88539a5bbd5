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
	"time"

	"github.com/google/uuid"
	"github.com/tomoncle/crmjunction/repository"
	"github.com/tomoncle/crmjunction/resilience"
	"github.com/tomoncle/crmjunction/types"
	"github.com/uptrace/bun"
)

// ErrInvalidCallType is returned for a call type outside the known set.
var ErrInvalidCallType = errors.New("invalid call type")

var callContactMapping = repository.Mapping[CallContact, uuid.UUID, uuid.UUID]{
	Table:        "call_contacts",
	FirstColumn:  "call_id",
	SecondColumn: "contact_id",
	New: func(callID, contactID uuid.UUID, now time.Time) *CallContact {
		return &CallContact{CallID: callID, ContactID: contactID, LinkState: repository.NewLinkState(now)}
	},
}

// CallContactRepository links calls to the contacts on the call.
type CallContactRepository struct {
	*repository.Junction[CallContact, uuid.UUID, uuid.UUID]
}

func NewCallContactRepository(db bun.IDB, exec *resilience.Executor) (*CallContactRepository, error) {
	j, err := repository.NewJunction(db, exec, callContactMapping)
	if err != nil {
		return nil, err
	}
	return &CallContactRepository{j}, nil
}

func (r *CallContactRepository) WithTx(db bun.IDB) *CallContactRepository {
	return &CallContactRepository{r.Junction.WithTx(db)}
}

func (r *CallContactRepository) ContactsForCall(ctx context.Context, callID uuid.UUID) ([]*CallContact, error) {
	return r.GetByFirstID(ctx, callID)
}

func (r *CallContactRepository) CallsForContact(ctx context.Context, contactID uuid.UUID) ([]*CallContact, error) {
	return r.GetBySecondID(ctx, contactID)
}

// CallsForContactByType returns the active call links of contactID whose call
// has the given type, ordered by call id.
func (r *CallContactRepository) CallsForContactByType(ctx context.Context, contactID uuid.UUID, callType types.CallType) ([]*CallContact, error) {
	if !callType.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCallType, int(callType))
	}
	rows, err := r.Find(ctx, "calls_for_contact_by_type", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Join("JOIN ? AS ? ON ?.? = ?TableAlias.?",
				bun.Ident("calls"), bun.Ident("ca"), bun.Ident("ca"), bun.Ident("id"), bun.Ident("call_id")).
			Where("?TableAlias.? = ?", bun.Ident("contact_id"), contactID).
			Where("?.? = ?", bun.Ident("ca"), bun.Ident("call_type"), callType.Number()).
			OrderExpr("?TableAlias.? ASC", bun.Ident("call_id"))
	})
	if err != nil {
		return nil, fmt.Errorf("get call_contacts by contact_id and %s: %w", callType, err)
	}
	return rows, nil
}

func (r *CallContactRepository) GetCallContact(ctx context.Context, callID, contactID uuid.UUID) (*CallContact, error) {
	return r.GetByID(ctx, callID, contactID)
}

func (r *CallContactRepository) HasContact(ctx context.Context, callID, contactID uuid.UUID) (bool, error) {
	return r.Exists(ctx, callID, contactID)
}

func (r *CallContactRepository) AddContactToCall(ctx context.Context, callID, contactID uuid.UUID) (*CallContact, error) {
	return r.Add(ctx, callID, contactID)
}

func (r *CallContactRepository) RemoveContactFromCall(ctx context.Context, callID, contactID uuid.UUID) (bool, error) {
	return r.Delete(ctx, callID, contactID)
}

var emailAttachmentMapping = repository.Mapping[EmailAttachment, uuid.UUID, uuid.UUID]{
	Table:        "email_attachments",
	FirstColumn:  "email_id",
	SecondColumn: "attachment_id",
	New: func(emailID, attachmentID uuid.UUID, now time.Time) *EmailAttachment {
		return &EmailAttachment{EmailID: emailID, AttachmentID: attachmentID, LinkState: repository.NewLinkState(now)}
	},
}

type EmailAttachmentRepository struct {
	*repository.Junction[EmailAttachment, uuid.UUID, uuid.UUID]
}

func NewEmailAttachmentRepository(db bun.IDB, exec *resilience.Executor) (*EmailAttachmentRepository, error) {
	j, err := repository.NewJunction(db, exec, emailAttachmentMapping)
	if err != nil {
		return nil, err
	}
	return &EmailAttachmentRepository{j}, nil
}

func (r *EmailAttachmentRepository) WithTx(db bun.IDB) *EmailAttachmentRepository {
	return &EmailAttachmentRepository{r.Junction.WithTx(db)}
}

func (r *EmailAttachmentRepository) AttachmentsForEmail(ctx context.Context, emailID uuid.UUID) ([]*EmailAttachment, error) {
	return r.GetByFirstID(ctx, emailID)
}

func (r *EmailAttachmentRepository) EmailsForAttachment(ctx context.Context, attachmentID uuid.UUID) ([]*EmailAttachment, error) {
	return r.GetBySecondID(ctx, attachmentID)
}

func (r *EmailAttachmentRepository) GetEmailAttachment(ctx context.Context, emailID, attachmentID uuid.UUID) (*EmailAttachment, error) {
	return r.GetByID(ctx, emailID, attachmentID)
}

func (r *EmailAttachmentRepository) HasAttachment(ctx context.Context, emailID, attachmentID uuid.UUID) (bool, error) {
	return r.Exists(ctx, emailID, attachmentID)
}

func (r *EmailAttachmentRepository) AddAttachmentToEmail(ctx context.Context, emailID, attachmentID uuid.UUID) (*EmailAttachment, error) {
	return r.Add(ctx, emailID, attachmentID)
}

func (r *EmailAttachmentRepository) RemoveAttachmentFromEmail(ctx context.Context, emailID, attachmentID uuid.UUID) (bool, error) {
	return r.Delete(ctx, emailID, attachmentID)
}
