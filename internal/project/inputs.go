// ABOUTME: Request payloads for project, member, task, subtask and note operations
// ABOUTME: Update payloads use pointer fields so absent keys leave values unchanged

package project

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/2389/projectcamp/internal/store"
)

// ProjectInput is the payload for CreateProject.
type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in ProjectInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Description, validation.Required, validation.Length(1, 2000)),
	)
}

// ProjectUpdate is the payload for UpdateProject.
type ProjectUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (in ProjectUpdate) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&in.Description, validation.Length(0, 2000)),
	)
}

// AddMemberInput names the user to add by id or by email.
type AddMemberInput struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (in AddMemberInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.UserID, validation.By(func(interface{}) error {
			if in.UserID == "" && in.Email == "" {
				return errors.New("userId or email is required")
			}
			return nil
		})),
		validation.Field(&in.Email, is.Email),
		validation.Field(&in.Role, validation.In(roleValues()...)),
	)
}

// RoleInput is the payload for UpdateMemberRole.
type RoleInput struct {
	Role string `json:"role"`
}

func (in RoleInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Role, validation.Required, validation.In(roleValues()...)),
	)
}

// TaskInput is the payload for CreateTask.
type TaskInput struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	AssignedTo  string             `json:"assignedTo"`
	Status      string             `json:"status"`
	Attachments []store.Attachment `json:"attachments"`
}

func (in TaskInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Description, validation.Required),
		validation.Field(&in.AssignedTo, validation.Required),
		validation.Field(&in.Status, validation.In(statusValues()...)),
		validation.Field(&in.Attachments, validation.By(validAttachments)),
	)
}

// TaskUpdate is the payload for UpdateTask.
type TaskUpdate struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	AssignedTo  *string             `json:"assignedTo"`
	Status      *string             `json:"status"`
	Attachments *[]store.Attachment `json:"attachments"`
}

func (in TaskUpdate) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&in.AssignedTo, validation.NilOrNotEmpty),
		validation.Field(&in.Status, validation.NilOrNotEmpty, validation.In(statusValues()...)),
		validation.Field(&in.Attachments, validation.By(validAttachments)),
	)
}

// SubTaskInput is the payload for CreateSubTask.
type SubTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (in SubTaskInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
	)
}

// SubTaskUpdate is the payload for UpdateSubTask.
type SubTaskUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsCompleted *bool   `json:"isCompleted"`
}

func (in SubTaskUpdate) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
	)
}

// NoteInput is the payload for CreateNote and UpdateNote.
type NoteInput struct {
	Content string `json:"content"`
}

func (in NoteInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Content, validation.Required),
	)
}

func validAttachments(value interface{}) error {
	var list []store.Attachment
	switch v := value.(type) {
	case []store.Attachment:
		list = v
	case *[]store.Attachment:
		if v == nil {
			return nil
		}
		list = *v
	}
	for _, a := range list {
		if strings.TrimSpace(a.URL) == "" {
			return errors.New("every attachment needs a url")
		}
		if a.Size < 0 {
			return errors.New("attachment size cannot be negative")
		}
	}
	return nil
}

func roleValues() []interface{} {
	out := make([]interface{}, len(store.AvailableRoles))
	for i, r := range store.AvailableRoles {
		out[i] = r
	}
	return out
}

func statusValues() []interface{} {
	out := make([]interface{}, len(store.ValidTaskStatuses))
	for i, s := range store.ValidTaskStatuses {
		out[i] = s
	}
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
