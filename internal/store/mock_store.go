// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows service and handler tests to run without a database

package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
// All methods hold a single mutex, so token consumption is atomic.
type MockStore struct {
	mu       sync.RWMutex
	users    map[string]*User          // keyed by user ID
	projects map[string]*Project       // keyed by project ID
	members  map[string]*ProjectMember // keyed by "projectID:userID"
	tasks    map[string]*Task          // keyed by task ID
	subtasks map[string]*SubTask       // keyed by subtask ID
	notes    map[string]*Note          // keyed by note ID
	audit    []AuditEntry

	// PingErr is returned by Ping when set.
	PingErr error
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:    make(map[string]*User),
		projects: make(map[string]*Project),
		members:  make(map[string]*ProjectMember),
		tasks:    make(map[string]*Task),
		subtasks: make(map[string]*SubTask),
		notes:    make(map[string]*Note),
	}
}

func memberKey(projectID, userID string) string {
	return projectID + ":" + userID
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
		if existing.Username == u.Username {
			return ErrDuplicateUsername
		}
	}

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	// Make a copy to avoid external modification
	c := *u
	m.users[c.ID] = &c
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// GetUserProfile retrieves a user without secret fields.
func (m *MockStore) GetUserProfile(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Sanitized(), nil
}

// GetUserByEmail retrieves a user by email.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// UpdatePasswordHash replaces the stored password hash.
func (m *MockStore) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// SetEmailVerificationToken stores a verification token.
func (m *MockStore) SetEmailVerificationToken(ctx context.Context, userID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.EmailVerificationToken = token
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ConsumeEmailVerificationToken verifies the user holding token and clears it.
func (m *MockStore) ConsumeEmailVerificationToken(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token == "" {
		return "", ErrNotFound
	}
	for _, u := range m.users {
		if u.EmailVerificationToken == token {
			u.IsEmailVerified = true
			u.EmailVerificationToken = ""
			u.UpdatedAt = time.Now().UTC()
			return u.ID, nil
		}
	}
	return "", ErrNotFound
}

// SetPasswordResetToken stores a reset token with its expiry.
func (m *MockStore) SetPasswordResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	exp := expiresAt.UTC().Truncate(time.Second)
	u.PasswordResetToken = token
	u.PasswordResetExpiresAt = &exp
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ResetPasswordWithToken redeems an unexpired reset token.
func (m *MockStore) ResetPasswordWithToken(ctx context.Context, token, hash string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if token == "" {
		return "", ErrNotFound
	}
	// Second precision, matching the SQL store.
	now = now.UTC().Truncate(time.Second)
	for _, u := range m.users {
		if u.PasswordResetToken != token || u.PasswordResetExpiresAt == nil {
			continue
		}
		if !u.PasswordResetExpiresAt.After(now) {
			return "", ErrNotFound
		}
		u.PasswordHash = hash
		u.PasswordResetToken = ""
		u.PasswordResetExpiresAt = nil
		u.UpdatedAt = now
		return u.ID, nil
	}
	return "", ErrNotFound
}

// CreateProject stores a project and its creator's admin membership.
func (m *MockStore) CreateProject(ctx context.Context, p *Project) (*ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt

	c := *p
	m.projects[c.ID] = &c

	member := &ProjectMember{
		ID:        uuid.New().String(),
		ProjectID: p.ID,
		UserID:    p.CreatedBy,
		Role:      RoleAdmin,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.CreatedAt,
	}
	mc := *member
	m.members[memberKey(p.ID, p.CreatedBy)] = &mc
	return member, nil
}

// GetProject retrieves a project by ID.
func (m *MockStore) GetProject(ctx context.Context, id string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

// ListProjectsForUser returns the projects userID belongs to, newest first.
func (m *MockStore) ListProjectsForUser(ctx context.Context, userID string) ([]*ProjectSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, mem := range m.members {
		counts[mem.ProjectID]++
	}

	result := []*ProjectSummary{}
	for _, mem := range m.members {
		if mem.UserID != userID {
			continue
		}
		p, ok := m.projects[mem.ProjectID]
		if !ok {
			continue
		}
		result = append(result, &ProjectSummary{Project: *p, Role: mem.Role, MemberCount: counts[p.ID]})
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdateProject updates name and description.
func (m *MockStore) UpdateProject(ctx context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.projects[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	existing.Name = p.Name
	existing.Description = p.Description
	existing.UpdatedAt = p.UpdatedAt
	return nil
}

// DeleteProject removes a project and everything that belongs to it.
func (m *MockStore) DeleteProject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)

	for key, mem := range m.members {
		if mem.ProjectID == id {
			delete(m.members, key)
		}
	}
	for taskID, t := range m.tasks {
		if t.ProjectID == id {
			m.deleteTaskLocked(taskID)
		}
	}
	for noteID, n := range m.notes {
		if n.ProjectID == id {
			delete(m.notes, noteID)
		}
	}
	return nil
}

// GetMember returns the membership of userID in projectID.
func (m *MockStore) GetMember(ctx context.Context, projectID, userID string) (*ProjectMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mem, ok := m.members[memberKey(projectID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *mem
	return &c, nil
}

// ListMembers returns the members of a project.
func (m *MockStore) ListMembers(ctx context.Context, projectID string) ([]*ProjectMember, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*ProjectMember{}
	for _, mem := range m.members {
		if mem.ProjectID != projectID {
			continue
		}
		c := *mem
		if u, ok := m.users[mem.UserID]; ok {
			c.Username = u.Username
			c.Email = u.Email
		}
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].Username < result[j].Username
	})
	return result, nil
}

// AddMember stores a membership.
func (m *MockStore) AddMember(ctx context.Context, mem *ProjectMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memberKey(mem.ProjectID, mem.UserID)
	if _, ok := m.members[key]; ok {
		return ErrDuplicateMember
	}
	if mem.ID == "" {
		mem.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	mem.CreatedAt = now
	mem.UpdatedAt = now

	c := *mem
	m.members[key] = &c
	return nil
}

// UpdateMemberRole changes a member's role.
func (m *MockStore) UpdateMemberRole(ctx context.Context, projectID, userID, role string) (*ProjectMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mem, ok := m.members[memberKey(projectID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	mem.Role = role
	mem.UpdatedAt = time.Now().UTC()
	c := *mem
	return &c, nil
}

// RemoveMember deletes a membership.
func (m *MockStore) RemoveMember(ctx context.Context, projectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := memberKey(projectID, userID)
	if _, ok := m.members[key]; !ok {
		return ErrNotFound
	}
	delete(m.members, key)
	return nil
}

// CreateTask stores a task.
func (m *MockStore) CreateTask(ctx context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}
	c := *t
	c.Attachments = slices.Clone(t.Attachments)
	m.tasks[c.ID] = &c
	return nil
}

// GetTask retrieves a task of projectID.
func (m *MockStore) GetTask(ctx context.Context, projectID, taskID string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return nil, ErrNotFound
	}
	c := *t
	c.Attachments = slices.Clone(t.Attachments)
	return &c, nil
}

// ListTasks returns a project's tasks, oldest first.
func (m *MockStore) ListTasks(ctx context.Context, projectID string) ([]*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*Task{}
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			c := *t
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdateTask writes every mutable task field.
func (m *MockStore) UpdateTask(ctx context.Context, t *Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tasks[t.ID]
	if !ok || existing.ProjectID != t.ProjectID {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	existing.Title = t.Title
	existing.Description = t.Description
	existing.AssignedTo = t.AssignedTo
	existing.Status = t.Status
	existing.Attachments = slices.Clone(t.Attachments)
	existing.UpdatedAt = t.UpdatedAt
	return nil
}

// DeleteTask removes a task and its subtasks.
func (m *MockStore) DeleteTask(ctx context.Context, projectID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[taskID]
	if !ok || t.ProjectID != projectID {
		return ErrNotFound
	}
	m.deleteTaskLocked(taskID)
	return nil
}

func (m *MockStore) deleteTaskLocked(taskID string) {
	delete(m.tasks, taskID)
	for id, st := range m.subtasks {
		if st.TaskID == taskID {
			delete(m.subtasks, id)
		}
	}
}

// CreateSubTask stores a subtask.
func (m *MockStore) CreateSubTask(ctx context.Context, st *SubTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now
	c := *st
	m.subtasks[c.ID] = &c
	return nil
}

// GetSubTask retrieves a subtask of taskID.
func (m *MockStore) GetSubTask(ctx context.Context, taskID, subTaskID string) (*SubTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.subtasks[subTaskID]
	if !ok || st.TaskID != taskID {
		return nil, ErrNotFound
	}
	c := *st
	return &c, nil
}

// ListSubTasks returns a task's subtasks, oldest first.
func (m *MockStore) ListSubTasks(ctx context.Context, taskID string) ([]*SubTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*SubTask{}
	for _, st := range m.subtasks {
		if st.TaskID == taskID {
			c := *st
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdateSubTask writes title, description and completion state.
func (m *MockStore) UpdateSubTask(ctx context.Context, st *SubTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.subtasks[st.ID]
	if !ok || existing.TaskID != st.TaskID {
		return ErrNotFound
	}
	st.UpdatedAt = time.Now().UTC()
	existing.Title = st.Title
	existing.Description = st.Description
	existing.IsCompleted = st.IsCompleted
	existing.UpdatedAt = st.UpdatedAt
	return nil
}

// DeleteSubTask removes a subtask of taskID.
func (m *MockStore) DeleteSubTask(ctx context.Context, taskID, subTaskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.subtasks[subTaskID]
	if !ok || st.TaskID != taskID {
		return ErrNotFound
	}
	delete(m.subtasks, subTaskID)
	return nil
}

// CreateNote stores a note.
func (m *MockStore) CreateNote(ctx context.Context, n *Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	c := *n
	m.notes[c.ID] = &c
	return nil
}

// GetNote retrieves a note of projectID.
func (m *MockStore) GetNote(ctx context.Context, projectID, noteID string) (*Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.notes[noteID]
	if !ok || n.ProjectID != projectID {
		return nil, ErrNotFound
	}
	c := *n
	return &c, nil
}

// ListNotes returns a project's notes, newest first.
func (m *MockStore) ListNotes(ctx context.Context, projectID string) ([]*Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*Note{}
	for _, n := range m.notes {
		if n.ProjectID == projectID {
			c := *n
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// UpdateNote replaces note content.
func (m *MockStore) UpdateNote(ctx context.Context, n *Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.notes[n.ID]
	if !ok || existing.ProjectID != n.ProjectID {
		return ErrNotFound
	}
	n.UpdatedAt = time.Now().UTC()
	existing.Content = n.Content
	existing.UpdatedAt = n.UpdatedAt
	return nil
}

// DeleteNote removes a note of projectID.
func (m *MockStore) DeleteNote(ctx context.Context, projectID, noteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.notes[noteID]
	if !ok || n.ProjectID != projectID {
		return ErrNotFound
	}
	delete(m.notes, noteID)
	return nil
}

// AppendAuditLog records an audit entry.
func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prepareAuditEntry(e)
	m.audit = append(m.audit, *e)
	return nil
}

// ListAuditLog returns matching audit entries, newest first.
func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []AuditEntry{}
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if f.Since != nil && e.Timestamp.Before(*f.Since) {
			continue
		}
		if f.Until != nil && e.Timestamp.After(*f.Until) {
			continue
		}
		if f.ActorUserID != nil && e.ActorUserID != *f.ActorUserID {
			continue
		}
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		if f.TargetType != nil && !strings.EqualFold(e.TargetType, *f.TargetType) {
			continue
		}
		if f.TargetID != nil && e.TargetID != *f.TargetID {
			continue
		}
		result = append(result, e)
		if len(result) == normalizeAuditLimit(f.Limit) {
			break
		}
	}
	return result, nil
}

// Ping reports PingErr.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.PingErr
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
