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

var activityAttachmentMapping = repository.Mapping[ActivityAttachment, uuid.UUID, uuid.UUID]{
	Table:        "activity_attachments",
	FirstColumn:  "activity_id",
	SecondColumn: "attachment_id",
	New: func(activityID, attachmentID uuid.UUID, now time.Time) *ActivityAttachment {
		return &ActivityAttachment{ActivityID: activityID, AttachmentID: attachmentID, LinkState: repository.NewLinkState(now)}
	},
}

// ActivityAttachmentRepository links activities to attachments.
type ActivityAttachmentRepository struct {
	*repository.Junction[ActivityAttachment, uuid.UUID, uuid.UUID]
}

func NewActivityAttachmentRepository(db bun.IDB, exec *resilience.Executor) (*ActivityAttachmentRepository, error) {
	j, err := repository.NewJunction(db, exec, activityAttachmentMapping)
	if err != nil {
		return nil, err
	}
	return &ActivityAttachmentRepository{j}, nil
}

func (r *ActivityAttachmentRepository) WithTx(db bun.IDB) *ActivityAttachmentRepository {
	return &ActivityAttachmentRepository{r.Junction.WithTx(db)}
}

func (r *ActivityAttachmentRepository) AttachmentsForActivity(ctx context.Context, activityID uuid.UUID) ([]*ActivityAttachment, error) {
	return r.GetByFirstID(ctx, activityID)
}

func (r *ActivityAttachmentRepository) ActivitiesForAttachment(ctx context.Context, attachmentID uuid.UUID) ([]*ActivityAttachment, error) {
	return r.GetBySecondID(ctx, attachmentID)
}

func (r *ActivityAttachmentRepository) GetActivityAttachment(ctx context.Context, activityID, attachmentID uuid.UUID) (*ActivityAttachment, error) {
	return r.GetByID(ctx, activityID, attachmentID)
}

func (r *ActivityAttachmentRepository) HasAttachment(ctx context.Context, activityID, attachmentID uuid.UUID) (bool, error) {
	return r.Exists(ctx, activityID, attachmentID)
}

func (r *ActivityAttachmentRepository) AddAttachmentToActivity(ctx context.Context, activityID, attachmentID uuid.UUID) (*ActivityAttachment, error) {
	return r.Add(ctx, activityID, attachmentID)
}

func (r *ActivityAttachmentRepository) RemoveAttachmentFromActivity(ctx context.Context, activityID, attachmentID uuid.UUID) (bool, error) {
	return r.Delete(ctx, activityID, attachmentID)
}

var activityContactMapping = repository.Mapping[ActivityContact, uuid.UUID, uuid.UUID]{
	Table:        "activity_contacts",
	FirstColumn:  "activity_id",
	SecondColumn: "contact_id",
	New: func(activityID, contactID uuid.UUID, now time.Time) *ActivityContact {
		return &ActivityContact{ActivityID: activityID, ContactID: contactID, LinkState: repository.NewLinkState(now)}
	},
}

// ActivityContactRepository links activities to the contacts involved.
type ActivityContactRepository struct {
	*repository.Junction[ActivityContact, uuid.UUID, uuid.UUID]
}

func NewActivityContactRepository(db bun.IDB, exec *resilience.Executor) (*ActivityContactRepository, error) {
	j, err := repository.NewJunction(db, exec, activityContactMapping)
	if err != nil {
		return nil, err
	}
	return &ActivityContactRepository{j}, nil
}

func (r *ActivityContactRepository) WithTx(db bun.IDB) *ActivityContactRepository {
	return &ActivityContactRepository{r.Junction.WithTx(db)}
}

func (r *ActivityContactRepository) ContactsForActivity(ctx context.Context, activityID uuid.UUID) ([]*ActivityContact, error) {
	return r.GetByFirstID(ctx, activityID)
}

func (r *ActivityContactRepository) ActivitiesForContact(ctx context.Context, contactID uuid.UUID) ([]*ActivityContact, error) {
	return r.GetBySecondID(ctx, contactID)
}

func (r *ActivityContactRepository) GetActivityContact(ctx context.Context, activityID, contactID uuid.UUID) (*ActivityContact, error) {
	return r.GetByID(ctx, activityID, contactID)
}

func (r *ActivityContactRepository) HasContact(ctx context.Context, activityID, contactID uuid.UUID) (bool, error) {
	return r.Exists(ctx, activityID, contactID)
}

func (r *ActivityContactRepository) AddContactToActivity(ctx context.Context, activityID, contactID uuid.UUID) (*ActivityContact, error) {
	return r.Add(ctx, activityID, contactID)
}

func (r *ActivityContactRepository) RemoveContactFromActivity(ctx context.Context, activityID, contactID uuid.UUID) (bool, error) {
	return r.Delete(ctx, activityID, contactID)
}

var noteTagMapping = repository.Mapping[NoteTag, uuid.UUID, int64]{
	Table:        "note_tags",
	FirstColumn:  "note_id",
	SecondColumn: "tag_id",
	New: func(noteID uuid.UUID, tagID int64, now time.Time) *NoteTag {
		return &NoteTag{NoteID: noteID, TagID: tagID, LinkState: repository.NewLinkState(now)}
	},
}

type NoteTagRepository struct {
	*repository.Junction[NoteTag, uuid.UUID, int64]
}

func NewNoteTagRepository(db bun.IDB, exec *resilience.Executor) (*NoteTagRepository, error) {
	j, err := repository.NewJunction(db, exec, noteTagMapping)
	if err != nil {
		return nil, err
	}
	return &NoteTagRepository{j}, nil
}

func (r *NoteTagRepository) WithTx(db bun.IDB) *NoteTagRepository {
	return &NoteTagRepository{r.Junction.WithTx(db)}
}

func (r *NoteTagRepository) TagsForNote(ctx context.Context, noteID uuid.UUID) ([]*NoteTag, error) {
	return r.GetByFirstID(ctx, noteID)
}

func (r *NoteTagRepository) NotesForTag(ctx context.Context, tagID int64) ([]*NoteTag, error) {
	return r.GetBySecondID(ctx, tagID)
}

func (r *NoteTagRepository) GetNoteTag(ctx context.Context, noteID uuid.UUID, tagID int64) (*NoteTag, error) {
	return r.GetByID(ctx, noteID, tagID)
}

func (r *NoteTagRepository) HasTag(ctx context.Context, noteID uuid.UUID, tagID int64) (bool, error) {
	return r.Exists(ctx, noteID, tagID)
}

func (r *NoteTagRepository) TagNote(ctx context.Context, noteID uuid.UUID, tagID int64) (*NoteTag, error) {
	return r.Add(ctx, noteID, tagID)
}

func (r *NoteTagRepository) UntagNote(ctx context.Context, noteID uuid.UUID, tagID int64) (bool, error) {
	return r.Delete(ctx, noteID, tagID)
}

var taskAssigneeMapping = repository.Mapping[TaskAssignee, uuid.UUID, int64]{
	Table:        "task_assignees",
	FirstColumn:  "task_id",
	SecondColumn: "user_id",
	New: func(taskID uuid.UUID, userID int64, now time.Time) *TaskAssignee {
		return &TaskAssignee{TaskID: taskID, UserID: userID, LinkState: repository.NewLinkState(now)}
	},
}

// TaskAssigneeRepository tracks which users are assigned to a task.
type TaskAssigneeRepository struct {
	*repository.Junction[TaskAssignee, uuid.UUID, int64]
}

func NewTaskAssigneeRepository(db bun.IDB, exec *resilience.Executor) (*TaskAssigneeRepository, error) {
	j, err := repository.NewJunction(db, exec, taskAssigneeMapping)
	if err != nil {
		return nil, err
	}
	return &TaskAssigneeRepository{j}, nil
}

func (r *TaskAssigneeRepository) WithTx(db bun.IDB) *TaskAssigneeRepository {
	return &TaskAssigneeRepository{r.Junction.WithTx(db)}
}

func (r *TaskAssigneeRepository) AssigneesForTask(ctx context.Context, taskID uuid.UUID) ([]*TaskAssignee, error) {
	return r.GetByFirstID(ctx, taskID)
}

func (r *TaskAssigneeRepository) TasksForUser(ctx context.Context, userID int64) ([]*TaskAssignee, error) {
	return r.GetBySecondID(ctx, userID)
}

func (r *TaskAssigneeRepository) GetTaskAssignee(ctx context.Context, taskID uuid.UUID, userID int64) (*TaskAssignee, error) {
	return r.GetByID(ctx, taskID, userID)
}

func (r *TaskAssigneeRepository) IsAssigned(ctx context.Context, taskID uuid.UUID, userID int64) (bool, error) {
	return r.Exists(ctx, taskID, userID)
}

func (r *TaskAssigneeRepository) AssignUser(ctx context.Context, taskID uuid.UUID, userID int64) (*TaskAssignee, error) {
	return r.Add(ctx, taskID, userID)
}

func (r *TaskAssigneeRepository) UnassignUser(ctx context.Context, taskID uuid.UUID, userID int64) (bool, error) {
	return r.Delete(ctx, taskID, userID)
}
