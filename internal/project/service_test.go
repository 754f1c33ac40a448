// ABOUTME: Tests for project, member, task, subtask and note operations
// ABOUTME: Uses the in-memory store; gates are exercised in the server tests

package project

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/projectcamp/internal/auth"
	"github.com/2389/projectcamp/internal/store"
)

type fixture struct {
	svc   *Service
	store *store.MockStore
	alice *store.User
	bob   *store.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := store.NewMockStore()
	f := &fixture{
		svc:   NewService(s, slog.New(slog.NewTextHandler(io.Discard, nil))),
		store: s,
	}
	f.alice = createUser(t, s, "alice")
	f.bob = createUser(t, s, "bob")
	return f
}

func createUser(t *testing.T, s *store.MockStore, name string) *store.User {
	t.Helper()
	u := &store.User{
		ID:       uuid.New().String(),
		Username: name,
		Email:    name + "@example.com",
		Role:     store.RoleMember,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) project(t *testing.T) *store.ProjectSummary {
	t.Helper()
	p, err := f.svc.CreateProject(context.Background(), f.alice.ID, ProjectInput{Name: "Apollo", Description: "Moon"})
	require.NoError(t, err)
	return p
}

func assertKind(t *testing.T, err error, kind auth.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, auth.KindOf(err), "error: %v", err)
}

func ptr[T any](v T) *T { return &v }

func TestCreateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.project(t)
	assert.Equal(t, store.RoleAdmin, p.Role)
	assert.Equal(t, 1, p.MemberCount)

	m, err := f.store.GetMember(ctx, p.ID, f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RoleAdmin, m.Role)

	_, err = f.svc.CreateProject(ctx, f.alice.ID, ProjectInput{Name: "No description"})
	assertKind(t, err, auth.KindBadRequest)

	list, err := f.svc.ListProjects(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Apollo", list[0].Name)

	list, err = f.svc.ListProjects(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateAndDeleteProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)

	updated, err := f.svc.UpdateProject(ctx, f.alice.ID, p.ID, ProjectUpdate{Description: ptr("Mars")})
	require.NoError(t, err)
	assert.Equal(t, "Apollo", updated.Name)
	assert.Equal(t, "Mars", updated.Description)

	_, err = f.svc.UpdateProject(ctx, f.alice.ID, p.ID, ProjectUpdate{Name: ptr("")})
	assertKind(t, err, auth.KindBadRequest)

	require.NoError(t, f.svc.DeleteProject(ctx, f.alice.ID, p.ID))
	_, err = f.svc.GetProject(ctx, p.ID)
	assertKind(t, err, auth.KindNotFound)
	assertKind(t, f.svc.DeleteProject(ctx, f.alice.ID, p.ID), auth.KindNotFound)
}

func TestMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)

	m, err := f.svc.AddMember(ctx, f.alice.ID, p.ID, AddMemberInput{Email: "BOB@example.com"})
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, m.UserID)
	assert.Equal(t, store.RoleMember, m.Role)

	_, err = f.svc.AddMember(ctx, f.alice.ID, p.ID, AddMemberInput{UserID: f.bob.ID})
	assertKind(t, err, auth.KindConflict)

	_, err = f.svc.AddMember(ctx, f.alice.ID, p.ID, AddMemberInput{UserID: uuid.New().String()})
	assertKind(t, err, auth.KindNotFound)

	_, err = f.svc.AddMember(ctx, f.alice.ID, p.ID, AddMemberInput{})
	assertKind(t, err, auth.KindBadRequest)

	_, err = f.svc.AddMember(ctx, f.alice.ID, p.ID, AddMemberInput{UserID: f.bob.ID, Role: "owner"})
	assertKind(t, err, auth.KindBadRequest)

	members, err := f.svc.ListMembers(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	m, err = f.svc.UpdateMemberRole(ctx, f.alice.ID, p.ID, f.bob.ID, RoleInput{Role: store.RoleProjectAdmin})
	require.NoError(t, err)
	assert.Equal(t, store.RoleProjectAdmin, m.Role)

	_, err = f.svc.UpdateMemberRole(ctx, f.alice.ID, p.ID, uuid.New().String(), RoleInput{Role: store.RoleMember})
	assertKind(t, err, auth.KindNotFound)

	_, err = f.svc.UpdateMemberRole(ctx, f.alice.ID, p.ID, f.bob.ID, RoleInput{Role: "superuser"})
	assertKind(t, err, auth.KindBadRequest)

	require.NoError(t, f.svc.RemoveMember(ctx, f.alice.ID, p.ID, f.bob.ID))
	assertKind(t, f.svc.RemoveMember(ctx, f.alice.ID, p.ID, f.bob.ID), auth.KindNotFound)

	// The global role is untouched by project role changes.
	bob, err := f.store.GetUser(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RoleMember, bob.Role)
}

func TestTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)

	tasks, err := f.svc.ListTasks(ctx, p.ID)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)

	_, err = f.svc.CreateTask(ctx, f.alice.ID, p.ID, TaskInput{Title: "Launch", Description: "Go", AssignedTo: f.bob.ID})
	assertKind(t, err, auth.KindBadRequest)

	_, err = f.svc.CreateTask(ctx, f.alice.ID, p.ID, TaskInput{Title: "Launch"})
	assertKind(t, err, auth.KindBadRequest)

	task, err := f.svc.CreateTask(ctx, f.alice.ID, p.ID, TaskInput{
		Title:       "Launch",
		Description: "Go",
		AssignedTo:  f.alice.ID,
		Attachments: []store.Attachment{{URL: "https://example.com/plan.pdf", MimeType: "application/pdf", Size: 1024}},
	})
	require.NoError(t, err)
	assert.Equal(t, store.TaskStatusTodo, task.Status)
	assert.Equal(t, f.alice.ID, task.AssignedBy)

	_, err = f.svc.CreateTask(ctx, f.alice.ID, p.ID, TaskInput{
		Title: "Bad", Description: "x", AssignedTo: f.alice.ID,
		Attachments: []store.Attachment{{MimeType: "text/plain"}},
	})
	assertKind(t, err, auth.KindBadRequest)

	updated, err := f.svc.UpdateTask(ctx, p.ID, task.ID, TaskUpdate{Status: ptr(store.TaskStatusInProgress)})
	require.NoError(t, err)
	assert.Equal(t, store.TaskStatusInProgress, updated.Status)
	assert.Equal(t, "Launch", updated.Title)

	_, err = f.svc.UpdateTask(ctx, p.ID, task.ID, TaskUpdate{Status: ptr("blocked")})
	assertKind(t, err, auth.KindBadRequest)

	_, err = f.svc.UpdateTask(ctx, p.ID, task.ID, TaskUpdate{AssignedTo: ptr(f.bob.ID)})
	assertKind(t, err, auth.KindBadRequest)

	sub, err := f.svc.CreateSubTask(ctx, f.alice.ID, p.ID, task.ID, SubTaskInput{Title: "Fuel"})
	require.NoError(t, err)

	sub, err = f.svc.UpdateSubTask(ctx, p.ID, task.ID, sub.ID, SubTaskUpdate{IsCompleted: ptr(true)})
	require.NoError(t, err)
	assert.True(t, sub.IsCompleted)
	assert.Equal(t, "Fuel", sub.Title)

	detail, err := f.svc.GetTask(ctx, p.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, detail.ID)
	require.Len(t, detail.SubTasks, 1)
	assert.Len(t, detail.Attachments, 1)

	require.NoError(t, f.svc.DeleteSubTask(ctx, p.ID, task.ID, sub.ID))
	assertKind(t, f.svc.DeleteSubTask(ctx, p.ID, task.ID, sub.ID), auth.KindNotFound)

	require.NoError(t, f.svc.DeleteTask(ctx, p.ID, task.ID))
	_, err = f.svc.GetTask(ctx, p.ID, task.ID)
	assertKind(t, err, auth.KindNotFound)
}

func TestEntitiesScopedToProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.project(t)
	p2 := f.project(t)

	task, err := f.svc.CreateTask(ctx, f.alice.ID, p1.ID, TaskInput{Title: "t", Description: "d", AssignedTo: f.alice.ID})
	require.NoError(t, err)
	note, err := f.svc.CreateNote(ctx, f.alice.ID, p1.ID, NoteInput{Content: "secret"})
	require.NoError(t, err)

	_, err = f.svc.GetTask(ctx, p2.ID, task.ID)
	assertKind(t, err, auth.KindNotFound)
	_, err = f.svc.CreateSubTask(ctx, f.alice.ID, p2.ID, task.ID, SubTaskInput{Title: "x"})
	assertKind(t, err, auth.KindNotFound)
	assertKind(t, f.svc.DeleteTask(ctx, p2.ID, task.ID), auth.KindNotFound)

	_, err = f.svc.GetNote(ctx, p2.ID, note.ID)
	assertKind(t, err, auth.KindNotFound)
	_, err = f.svc.UpdateNote(ctx, p2.ID, note.ID, NoteInput{Content: "x"})
	assertKind(t, err, auth.KindNotFound)
	assertKind(t, f.svc.DeleteNote(ctx, p2.ID, note.ID), auth.KindNotFound)
}

func TestNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)

	notes, err := f.svc.ListNotes(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)

	_, err = f.svc.CreateNote(ctx, f.alice.ID, p.ID, NoteInput{})
	assertKind(t, err, auth.KindBadRequest)

	n, err := f.svc.CreateNote(ctx, f.alice.ID, p.ID, NoteInput{Content: "kickoff"})
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, n.CreatedBy)

	n, err = f.svc.UpdateNote(ctx, p.ID, n.ID, NoteInput{Content: "kickoff moved"})
	require.NoError(t, err)
	assert.Equal(t, "kickoff moved", n.Content)

	got, err := f.svc.GetNote(ctx, p.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "kickoff moved", got.Content)

	require.NoError(t, f.svc.DeleteNote(ctx, p.ID, n.ID))
	_, err = f.svc.GetNote(ctx, p.ID, n.ID)
	assertKind(t, err, auth.KindNotFound)
}

func TestProjectAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.project(t)
	_, err := f.svc.AddMember(ctx, f.alice.ID, p.ID, AddMemberInput{UserID: f.bob.ID})
	require.NoError(t, err)

	action := store.AuditMemberAdded
	entries, err := f.store.ListAuditLog(ctx, store.AuditFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, f.alice.ID, entries[0].ActorUserID)
	assert.Equal(t, f.bob.ID, entries[0].TargetID)
}
