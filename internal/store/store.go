// ABOUTME: Store interface and data types for projectcamp persistence
// ABOUTME: Defines User, Project, ProjectMember, Task, SubTask and Note along with the Store interfaces

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Uniqueness violations surfaced by the store.
var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateMember   = errors.New("user is already a member of the project")
)

// User is an account. Secret fields (PasswordHash and the two opaque tokens)
// never leave the service layer; GetUserProfile returns them empty.
type User struct {
	ID              string
	Username        string
	Email           string
	FullName        string
	AvatarURL       string
	Role            string // global role, independent of any project membership
	IsEmailVerified bool

	PasswordHash           string
	EmailVerificationToken string
	PasswordResetToken     string
	PasswordResetExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sanitized returns a copy of the user with every secret field cleared.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	c.EmailVerificationToken = ""
	c.PasswordResetToken = ""
	c.PasswordResetExpiresAt = nil
	return &c
}

// Project is a collaboration space owned by its admin members.
type Project struct {
	ID          string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectSummary is a project as seen by one of its members.
type ProjectSummary struct {
	Project
	Role        string // the viewing user's role in the project
	MemberCount int
}

// ProjectMember binds a user to a project with a project-scoped role.
// At most one row exists per (ProjectID, UserID).
type ProjectMember struct {
	ID        string
	ProjectID string
	UserID    string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Populated by ListMembers only.
	Username string
	Email    string
}

// Task status values
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in_progress"
	TaskStatusDone       = "done"
)

// ValidTaskStatuses lists all task statuses.
var ValidTaskStatuses = []string{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

// Attachment is a file reference attached to a task.
type Attachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// Task is a unit of work inside a project.
type Task struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	AssignedTo  string
	AssignedBy  string
	Status      string
	Attachments []Attachment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubTask is a checklist item of a task.
type SubTask struct {
	ID          string
	TaskID      string
	Title       string
	Description string
	IsCompleted bool
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Note is a free-form project note.
type Note struct {
	ID        string
	ProjectID string
	Content   string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserStore persists accounts and their single-use tokens.
type UserStore interface {
	// CreateUser inserts a user. Returns ErrDuplicateEmail or ErrDuplicateUsername
	// on a uniqueness violation.
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	// GetUserProfile loads a user without password hash or tokens.
	GetUserProfile(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	SetEmailVerificationToken(ctx context.Context, userID, token string) error
	// ConsumeEmailVerificationToken marks the owner of token verified and clears
	// the token in a single conditional update. Returns ErrNotFound if no user
	// holds the token, including when a concurrent caller consumed it first.
	ConsumeEmailVerificationToken(ctx context.Context, token string) (string, error)

	SetPasswordResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// ResetPasswordWithToken stores hash and clears both reset fields for the user
	// holding token, provided the token expires strictly after now. Returns
	// ErrNotFound otherwise. Stored expiries have whole-second precision, so a
	// token can lapse up to one second before the expiresAt it was set with.
	ResetPasswordWithToken(ctx context.Context, token, hash string, now time.Time) (string, error)
}

// ProjectStore persists projects.
type ProjectStore interface {
	// CreateProject inserts the project and an admin membership for
	// p.CreatedBy in one transaction.
	CreateProject(ctx context.Context, p *Project) (*ProjectMember, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]*ProjectSummary, error)
	UpdateProject(ctx context.Context, p *Project) error
	// DeleteProject removes the project with its members, tasks, subtasks and notes.
	DeleteProject(ctx context.Context, id string) error
}

// MemberStore persists project memberships.
type MemberStore interface {
	GetMember(ctx context.Context, projectID, userID string) (*ProjectMember, error)
	ListMembers(ctx context.Context, projectID string) ([]*ProjectMember, error)
	AddMember(ctx context.Context, m *ProjectMember) error
	UpdateMemberRole(ctx context.Context, projectID, userID, role string) (*ProjectMember, error)
	RemoveMember(ctx context.Context, projectID, userID string) error
}

// TaskStore persists tasks and subtasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, projectID, taskID string) (*Task, error)
	ListTasks(ctx context.Context, projectID string) ([]*Task, error)
	UpdateTask(ctx context.Context, t *Task) error
	// DeleteTask removes the task and its subtasks.
	DeleteTask(ctx context.Context, projectID, taskID string) error

	CreateSubTask(ctx context.Context, st *SubTask) error
	GetSubTask(ctx context.Context, taskID, subTaskID string) (*SubTask, error)
	ListSubTasks(ctx context.Context, taskID string) ([]*SubTask, error)
	UpdateSubTask(ctx context.Context, st *SubTask) error
	DeleteSubTask(ctx context.Context, taskID, subTaskID string) error
}

// NoteStore persists project notes.
type NoteStore interface {
	CreateNote(ctx context.Context, n *Note) error
	GetNote(ctx context.Context, projectID, noteID string) (*Note, error)
	ListNotes(ctx context.Context, projectID string) ([]*Note, error)
	UpdateNote(ctx context.Context, n *Note) error
	DeleteNote(ctx context.Context, projectID, noteID string) error
}

// AuditStore persists the audit trail.
type AuditStore interface {
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// Store is the full persistence interface.
type Store interface {
	UserStore
	ProjectStore
	MemberStore
	TaskStore
	NoteStore
	AuditStore

	Ping(ctx context.Context) error
	Close() error
}
