// ABOUTME: Project, membership, task, subtask and note operations
// ABOUTME: Callers pass the gate first; the service enforces that entities belong to the project in the path

package project

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/2389/projectcamp/internal/auth"
	"github.com/2389/projectcamp/internal/store"
)

// Client-facing messages.
const (
	msgProjectNotFound  = "Project not found"
	msgUserNotFound     = "User not found"
	msgAlreadyMember    = "User is already a member of the project"
	msgMemberNotFound   = "Member not found, add the user to the project before assigning a role"
	msgAssigneeNotFound = "Assignee must be a member of the project"
	msgTaskNotFound     = "No available task for the corresponding project"
	msgSubTaskNotFound  = "Subtask not found"
	msgNoteNotFound     = "Note not found"
)

// Store is the persistence the project operations need.
type Store interface {
	store.UserStore
	store.ProjectStore
	store.MemberStore
	store.TaskStore
	store.NoteStore
	store.AuditStore
}

// Service implements project operations.
type Service struct {
	store  Store
	logger *slog.Logger
}

// TaskDetail is a task with its subtasks.
type TaskDetail struct {
	*store.Task
	SubTasks []*store.SubTask
}

// NewService creates a Service.
func NewService(s Store, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger.With("component", "project")}
}

// CreateProject creates a project with actorID as its first admin.
func (s *Service) CreateProject(ctx context.Context, actorID string, in ProjectInput) (*store.ProjectSummary, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}

	p := &store.Project{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Description: in.Description,
		CreatedBy:   actorID,
	}
	member, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return nil, auth.Internal(err)
	}

	s.logger.Info("project created", "project_id", p.ID, "user_id", actorID)
	s.audit(ctx, actorID, store.AuditProjectCreated, "project", p.ID, map[string]any{"name": p.Name})
	return &store.ProjectSummary{Project: *p, Role: member.Role, MemberCount: 1}, nil
}

// ListProjects returns the projects userID belongs to with their role in each.
func (s *Service) ListProjects(ctx context.Context, userID string) ([]*store.ProjectSummary, error) {
	projects, err := s.store.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, auth.Internal(err)
	}
	return projects, nil
}

func (s *Service) GetProject(ctx context.Context, projectID string) (*store.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFoundOr(err, msgProjectNotFound)
	}
	return p, nil
}

func (s *Service) UpdateProject(ctx context.Context, actorID, projectID string, in ProjectUpdate) (*store.Project, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}

	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, notFoundOr(err, msgProjectNotFound)
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, notFoundOr(err, msgProjectNotFound)
	}

	s.audit(ctx, actorID, store.AuditProjectUpdated, "project", p.ID, nil)
	return p, nil
}

// DeleteProject removes the project with everything in it.
func (s *Service) DeleteProject(ctx context.Context, actorID, projectID string) error {
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return notFoundOr(err, msgProjectNotFound)
	}

	s.logger.Info("project deleted", "project_id", projectID, "user_id", actorID)
	s.audit(ctx, actorID, store.AuditProjectDeleted, "project", projectID, nil)
	return nil
}

func (s *Service) ListMembers(ctx context.Context, projectID string) ([]*store.ProjectMember, error) {
	members, err := s.store.ListMembers(ctx, projectID)
	if err != nil {
		return nil, auth.Internal(err)
	}
	return members, nil
}

// AddMember adds an existing user, found by id or email, to the project.
// The role defaults to member.
func (s *Service) AddMember(ctx context.Context, actorID, projectID string, in AddMemberInput) (*store.ProjectMember, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = store.RoleMember
	}

	var (
		u   *store.User
		err error
	)
	if in.UserID != "" {
		u, err = s.store.GetUserProfile(ctx, in.UserID)
	} else {
		u, err = s.store.GetUserByEmail(ctx, normalizeEmail(in.Email))
	}
	if err != nil {
		return nil, notFoundOr(err, msgUserNotFound)
	}

	m := &store.ProjectMember{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		UserID:    u.ID,
		Role:      in.Role,
		Username:  u.Username,
		Email:     u.Email,
	}
	if err := s.store.AddMember(ctx, m); err != nil {
		if errors.Is(err, store.ErrDuplicateMember) {
			return nil, auth.Conflict(msgAlreadyMember)
		}
		return nil, auth.Internal(err)
	}

	s.audit(ctx, actorID, store.AuditMemberAdded, "member", u.ID, map[string]any{"project_id": projectID, "role": in.Role})
	return m, nil
}

// UpdateMemberRole changes the project role of userID.
func (s *Service) UpdateMemberRole(ctx context.Context, actorID, projectID, userID string, in RoleInput) (*store.ProjectMember, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}

	m, err := s.store.UpdateMemberRole(ctx, projectID, userID, in.Role)
	if err != nil {
		return nil, notFoundOr(err, msgMemberNotFound)
	}

	s.audit(ctx, actorID, store.AuditMemberRoleUpdated, "member", userID, map[string]any{"project_id": projectID, "role": in.Role})
	return m, nil
}

func (s *Service) RemoveMember(ctx context.Context, actorID, projectID, userID string) error {
	if err := s.store.RemoveMember(ctx, projectID, userID); err != nil {
		return notFoundOr(err, msgMemberNotFound)
	}

	s.audit(ctx, actorID, store.AuditMemberRemoved, "member", userID, map[string]any{"project_id": projectID})
	return nil
}

// ListTasks returns the project's tasks, an empty slice when there are none.
func (s *Service) ListTasks(ctx context.Context, projectID string) ([]*store.Task, error) {
	tasks, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, auth.Internal(err)
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	return tasks, nil
}

// CreateTask creates a task assigned to a member of the project.
func (s *Service) CreateTask(ctx context.Context, actorID, projectID string, in TaskInput) (*store.Task, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, projectID, in.AssignedTo); err != nil {
		return nil, err
	}

	t := &store.Task{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Title:       in.Title,
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
		AssignedBy:  actorID,
		Status:      in.Status,
		Attachments: in.Attachments,
	}
	if t.Status == "" {
		t.Status = store.TaskStatusTodo
	}
	if t.Attachments == nil {
		t.Attachments = []store.Attachment{}
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, auth.Internal(err)
	}
	return t, nil
}

// GetTask returns a task of the project with its subtasks.
func (s *Service) GetTask(ctx context.Context, projectID, taskID string) (*TaskDetail, error) {
	t, err := s.store.GetTask(ctx, projectID, taskID)
	if err != nil {
		return nil, notFoundOr(err, msgTaskNotFound)
	}
	subs, err := s.store.ListSubTasks(ctx, taskID)
	if err != nil {
		return nil, auth.Internal(err)
	}
	if subs == nil {
		subs = []*store.SubTask{}
	}
	return &TaskDetail{Task: t, SubTasks: subs}, nil
}

// UpdateTask applies the fields present in in.
func (s *Service) UpdateTask(ctx context.Context, projectID, taskID string, in TaskUpdate) (*store.Task, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}

	t, err := s.store.GetTask(ctx, projectID, taskID)
	if err != nil {
		return nil, notFoundOr(err, msgTaskNotFound)
	}
	if in.AssignedTo != nil && *in.AssignedTo != t.AssignedTo {
		if err := s.requireMember(ctx, projectID, *in.AssignedTo); err != nil {
			return nil, err
		}
		t.AssignedTo = *in.AssignedTo
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Attachments != nil {
		t.Attachments = *in.Attachments
	}

	if err := s.store.UpdateTask(ctx, t); err != nil {
		return nil, notFoundOr(err, msgTaskNotFound)
	}
	return t, nil
}

// DeleteTask removes a task and its subtasks.
func (s *Service) DeleteTask(ctx context.Context, projectID, taskID string) error {
	if err := s.store.DeleteTask(ctx, projectID, taskID); err != nil {
		return notFoundOr(err, msgTaskNotFound)
	}
	return nil
}

func (s *Service) CreateSubTask(ctx context.Context, actorID, projectID, taskID string, in SubTaskInput) (*store.SubTask, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTask(ctx, projectID, taskID); err != nil {
		return nil, notFoundOr(err, msgTaskNotFound)
	}

	st := &store.SubTask{
		ID:          uuid.New().String(),
		TaskID:      taskID,
		Title:       in.Title,
		Description: in.Description,
		CreatedBy:   actorID,
	}
	if err := s.store.CreateSubTask(ctx, st); err != nil {
		return nil, auth.Internal(err)
	}
	return st, nil
}

func (s *Service) UpdateSubTask(ctx context.Context, projectID, taskID, subTaskID string, in SubTaskUpdate) (*store.SubTask, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTask(ctx, projectID, taskID); err != nil {
		return nil, notFoundOr(err, msgTaskNotFound)
	}

	st, err := s.store.GetSubTask(ctx, taskID, subTaskID)
	if err != nil {
		return nil, notFoundOr(err, msgSubTaskNotFound)
	}
	if in.Title != nil {
		st.Title = *in.Title
	}
	if in.Description != nil {
		st.Description = *in.Description
	}
	if in.IsCompleted != nil {
		st.IsCompleted = *in.IsCompleted
	}

	if err := s.store.UpdateSubTask(ctx, st); err != nil {
		return nil, notFoundOr(err, msgSubTaskNotFound)
	}
	return st, nil
}

func (s *Service) DeleteSubTask(ctx context.Context, projectID, taskID, subTaskID string) error {
	if _, err := s.store.GetTask(ctx, projectID, taskID); err != nil {
		return notFoundOr(err, msgTaskNotFound)
	}
	if err := s.store.DeleteSubTask(ctx, taskID, subTaskID); err != nil {
		return notFoundOr(err, msgSubTaskNotFound)
	}
	return nil
}

func (s *Service) ListNotes(ctx context.Context, projectID string) ([]*store.Note, error) {
	notes, err := s.store.ListNotes(ctx, projectID)
	if err != nil {
		return nil, auth.Internal(err)
	}
	if notes == nil {
		notes = []*store.Note{}
	}
	return notes, nil
}

func (s *Service) CreateNote(ctx context.Context, actorID, projectID string, in NoteInput) (*store.Note, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}

	n := &store.Note{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Content:   in.Content,
		CreatedBy: actorID,
	}
	if err := s.store.CreateNote(ctx, n); err != nil {
		return nil, auth.Internal(err)
	}
	return n, nil
}

// GetNote returns a note of the project. Notes of other projects are NotFound.
func (s *Service) GetNote(ctx context.Context, projectID, noteID string) (*store.Note, error) {
	n, err := s.store.GetNote(ctx, projectID, noteID)
	if err != nil {
		return nil, notFoundOr(err, msgNoteNotFound)
	}
	return n, nil
}

func (s *Service) UpdateNote(ctx context.Context, projectID, noteID string, in NoteInput) (*store.Note, error) {
	if err := auth.Validate(in); err != nil {
		return nil, err
	}

	n, err := s.store.GetNote(ctx, projectID, noteID)
	if err != nil {
		return nil, notFoundOr(err, msgNoteNotFound)
	}
	n.Content = in.Content
	if err := s.store.UpdateNote(ctx, n); err != nil {
		return nil, notFoundOr(err, msgNoteNotFound)
	}
	return n, nil
}

func (s *Service) DeleteNote(ctx context.Context, projectID, noteID string) error {
	if err := s.store.DeleteNote(ctx, projectID, noteID); err != nil {
		return notFoundOr(err, msgNoteNotFound)
	}
	return nil
}

func (s *Service) requireMember(ctx context.Context, projectID, userID string) error {
	_, err := s.store.GetMember(ctx, projectID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return auth.BadRequest(msgAssigneeNotFound)
	}
	if err != nil {
		return auth.Internal(err)
	}
	return nil
}

func (s *Service) audit(ctx context.Context, actorID string, action store.AuditAction, targetType, targetID string, detail map[string]any) {
	entry := &store.AuditEntry{
		ActorUserID: actorID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Detail:      detail,
	}
	if err := s.store.AppendAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", "action", action, "error", err)
	}
}

// notFoundOr maps store.ErrNotFound to NotFound(msg) and anything else to Internal.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, store.ErrNotFound) {
		return auth.NotFound(msg)
	}
	return auth.Internal(err)
}
