package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func createTestUser(t *testing.T, s UserStore, username string) *User {
	t.Helper()
	u := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		Role:         RoleMember,
		PasswordHash: "$2a$10$hash-for-" + username,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestStore_Rebind(t *testing.T) {
	sqlite := &SQLStore{dialect: DialectSQLite}
	pg := &SQLStore{dialect: DialectPostgres}

	q := "SELECT id FROM users WHERE email = ? AND role = ?"
	assert.Equal(t, q, sqlite.rebind(q))
	assert.Equal(t, "SELECT id FROM users WHERE email = $1 AND role = $2", pg.rebind(q))
}

func TestStore_CreateUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, store, "alice")
	require.NoError(t, store.SetEmailVerificationToken(ctx, u.ID, "verify-token"))

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, RoleMember, got.Role)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.Equal(t, "verify-token", got.EmailVerificationToken)
	assert.False(t, got.IsEmailVerified)
	assert.Nil(t, got.PasswordResetExpiresAt)

	byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
}

func TestStore_CreateUser_Duplicates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestUser(t, store, "alice")

	err := store.CreateUser(ctx, &User{
		ID: uuid.New().String(), Username: "alice2", Email: "alice@example.com", Role: RoleMember, PasswordHash: "x",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	err = store.CreateUser(ctx, &User{
		ID: uuid.New().String(), Username: "alice", Email: "other@example.com", Role: RoleMember, PasswordHash: "x",
	})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestStore_GetUserProfileOmitsSecrets(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, store, "alice")
	require.NoError(t, store.SetEmailVerificationToken(ctx, u.ID, "verify-token"))
	require.NoError(t, store.SetPasswordResetToken(ctx, u.ID, "reset-token", time.Now().Add(time.Hour)))

	profile, err := store.GetUserProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Empty(t, profile.PasswordHash)
	assert.Empty(t, profile.EmailVerificationToken)
	assert.Empty(t, profile.PasswordResetToken)
	assert.Nil(t, profile.PasswordResetExpiresAt)

	_, err = store.GetUserProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ConsumeEmailVerificationToken(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, store, "alice")
	require.NoError(t, store.SetEmailVerificationToken(ctx, u.ID, "verify-token"))

	userID, err := store.ConsumeEmailVerificationToken(ctx, "verify-token")
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsEmailVerified)
	assert.Empty(t, got.EmailVerificationToken)

	// Second redemption fails
	_, err = store.ConsumeEmailVerificationToken(ctx, "verify-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ConsumeEmailVerificationToken_Concurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, store, "alice")
	require.NoError(t, store.SetEmailVerificationToken(ctx, u.ID, "race-token"))

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.ConsumeEmailVerificationToken(ctx, "race-token")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes, "token must be redeemed exactly once")
}

func TestStore_ResetPasswordWithToken(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, store, "alice")
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetPasswordResetToken(ctx, u.ID, "reset-token", expires))

	// After expiry: rejected, fields untouched
	_, err := store.ResetPasswordWithToken(ctx, "reset-token", "new-hash", expires.Add(time.Second))
	assert.ErrorIs(t, err, ErrNotFound)

	// Exactly at expiry: rejected (strictly greater than now)
	_, err = store.ResetPasswordWithToken(ctx, "reset-token", "new-hash", expires)
	assert.ErrorIs(t, err, ErrNotFound)

	// Before expiry: accepted
	userID, err := store.ResetPasswordWithToken(ctx, "reset-token", "new-hash", expires.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, u.ID, userID)

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)
	assert.Empty(t, got.PasswordResetToken)
	assert.Nil(t, got.PasswordResetExpiresAt)

	// Single use
	_, err = store.ResetPasswordWithToken(ctx, "reset-token", "other-hash", expires.Add(-time.Minute))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ResetPasswordWithToken_SecondPrecision(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, store, "alice")
	second := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SetPasswordResetToken(ctx, u.ID, "reset-token", second.Add(500*time.Millisecond)))

	// The expiry is stored as the whole second, so it has already lapsed here.
	_, err := store.ResetPasswordWithToken(ctx, "reset-token", "new-hash", second.Add(100*time.Millisecond))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ResetPasswordWithToken(ctx, "reset-token", "new-hash", second.Add(-time.Second))
	assert.NoError(t, err)
}

func TestStore_UpdatePasswordHash(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u := createTestUser(t, store, "alice")
	require.NoError(t, store.UpdatePasswordHash(ctx, u.ID, "rotated"))

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated", got.PasswordHash)

	assert.ErrorIs(t, store.UpdatePasswordHash(ctx, "missing", "x"), ErrNotFound)
}

func TestStore_CreateProjectAddsCreatorAsAdmin(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	p := &Project{ID: uuid.New().String(), Name: "Apollo", Description: "moon", CreatedBy: alice.ID}

	member, err := store.CreateProject(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, member.Role)

	got, err := store.GetMember(ctx, p.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, got.Role)

	projects, err := store.ListProjectsForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Apollo", projects[0].Name)
	assert.Equal(t, RoleAdmin, projects[0].Role)
	assert.Equal(t, 1, projects[0].MemberCount)
}

func TestStore_Members(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	bob := createTestUser(t, store, "bob")
	p := &Project{ID: uuid.New().String(), Name: "Apollo", CreatedBy: alice.ID}
	_, err := store.CreateProject(ctx, p)
	require.NoError(t, err)

	require.NoError(t, store.AddMember(ctx, &ProjectMember{ProjectID: p.ID, UserID: bob.ID, Role: RoleMember}))
	assert.ErrorIs(t,
		store.AddMember(ctx, &ProjectMember{ProjectID: p.ID, UserID: bob.ID, Role: RoleAdmin}),
		ErrDuplicateMember)

	members, err := store.ListMembers(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	usernames := []string{members[0].Username, members[1].Username}
	assert.ElementsMatch(t, []string{"alice", "bob"}, usernames)

	updated, err := store.UpdateMemberRole(ctx, p.ID, bob.ID, RoleProjectAdmin)
	require.NoError(t, err)
	assert.Equal(t, RoleProjectAdmin, updated.Role)

	_, err = store.UpdateMemberRole(ctx, p.ID, "missing", RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.RemoveMember(ctx, p.ID, bob.ID))
	_, err = store.GetMember(ctx, p.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.RemoveMember(ctx, p.ID, bob.ID), ErrNotFound)
}

func TestStore_DeleteProjectCascades(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	p := &Project{ID: uuid.New().String(), Name: "Apollo", CreatedBy: alice.ID}
	_, err := store.CreateProject(ctx, p)
	require.NoError(t, err)

	task := &Task{ID: uuid.New().String(), ProjectID: p.ID, Title: "Launch", AssignedTo: alice.ID, AssignedBy: alice.ID}
	require.NoError(t, store.CreateTask(ctx, task))
	sub := &SubTask{ID: uuid.New().String(), TaskID: task.ID, Title: "Fuel", CreatedBy: alice.ID}
	require.NoError(t, store.CreateSubTask(ctx, sub))
	note := &Note{ID: uuid.New().String(), ProjectID: p.ID, Content: "hello", CreatedBy: alice.ID}
	require.NoError(t, store.CreateNote(ctx, note))

	require.NoError(t, store.DeleteProject(ctx, p.ID))

	_, err = store.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetMember(ctx, p.ID, alice.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetTask(ctx, p.ID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetSubTask(ctx, task.ID, sub.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetNote(ctx, p.ID, note.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteProject(ctx, p.ID), ErrNotFound)
}

func TestStore_Tasks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	p := &Project{ID: uuid.New().String(), Name: "Apollo", CreatedBy: alice.ID}
	_, err := store.CreateProject(ctx, p)
	require.NoError(t, err)

	task := &Task{
		ID:          uuid.New().String(),
		ProjectID:   p.ID,
		Title:       "Launch",
		Description: "go for launch",
		AssignedTo:  alice.ID,
		AssignedBy:  alice.ID,
		Attachments: []Attachment{{URL: "https://example.com/plan.pdf", MimeType: "application/pdf", Size: 1024}},
	}
	require.NoError(t, store.CreateTask(ctx, task))
	assert.Equal(t, TaskStatusTodo, task.Status)

	got, err := store.GetTask(ctx, p.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Launch", got.Title)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "application/pdf", got.Attachments[0].MimeType)

	// Wrong project is not found
	_, err = store.GetTask(ctx, "other-project", task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got.Status = TaskStatusDone
	got.Attachments = nil
	require.NoError(t, store.UpdateTask(ctx, got))

	tasks, err := store.ListTasks(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskStatusDone, tasks[0].Status)
	assert.Empty(t, tasks[0].Attachments)

	sub := &SubTask{ID: uuid.New().String(), TaskID: task.ID, Title: "Fuel", CreatedBy: alice.ID}
	require.NoError(t, store.CreateSubTask(ctx, sub))
	sub.IsCompleted = true
	require.NoError(t, store.UpdateSubTask(ctx, sub))

	subs, err := store.ListSubTasks(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.True(t, subs[0].IsCompleted)

	require.NoError(t, store.DeleteTask(ctx, p.ID, task.ID))
	_, err = store.GetSubTask(ctx, task.ID, sub.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Notes(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice")
	p := &Project{ID: uuid.New().String(), Name: "Apollo", CreatedBy: alice.ID}
	_, err := store.CreateProject(ctx, p)
	require.NoError(t, err)

	note := &Note{ID: uuid.New().String(), ProjectID: p.ID, Content: "first", CreatedBy: alice.ID}
	require.NoError(t, store.CreateNote(ctx, note))

	note.Content = "edited"
	require.NoError(t, store.UpdateNote(ctx, note))

	got, err := store.GetNote(ctx, p.ID, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	assert.Equal(t, alice.ID, got.CreatedBy)

	notes, err := store.ListNotes(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	assert.ErrorIs(t, store.DeleteNote(ctx, "other-project", note.ID), ErrNotFound)
	require.NoError(t, store.DeleteNote(ctx, p.ID, note.ID))
}
