// ABOUTME: JSON response shapes for users, projects, members, tasks, subtasks and notes
// ABOUTME: Store types carry secrets and no tags, so handlers always render through these views

package server

import (
	"time"

	"github.com/2389/projectcamp/internal/account"
	"github.com/2389/projectcamp/internal/project"
	"github.com/2389/projectcamp/internal/store"
)

type userView struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	FullName        string    `json:"fullName"`
	AvatarURL       string    `json:"avatarUrl"`
	Role            string    `json:"role"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func newUserView(u *store.User) userView {
	return userView{
		ID:              u.ID,
		Username:        u.Username,
		Email:           u.Email,
		FullName:        u.FullName,
		AvatarURL:       u.AvatarURL,
		Role:            u.Role,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

type loginView struct {
	User        userView `json:"user"`
	AccessToken string   `json:"token"`
}

func newLoginView(res *account.LoginResult) loginView {
	return loginView{User: newUserView(res.User), AccessToken: res.AccessToken}
}

type projectView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Set for listings only.
	Role        string `json:"role,omitempty"`
	MemberCount int    `json:"memberCount,omitempty"`
}

func newProjectView(p *store.Project) projectView {
	return projectView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func newProjectSummaryView(p *store.ProjectSummary) projectView {
	v := newProjectView(&p.Project)
	v.Role = p.Role
	v.MemberCount = p.MemberCount
	return v
}

type memberView struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	Username  string    `json:"username,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newMemberView(m *store.ProjectMember) memberView {
	return memberView{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
		Role:      m.Role,
		Username:  m.Username,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type taskView struct {
	ID          string             `json:"id"`
	ProjectID   string             `json:"projectId"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	AssignedTo  string             `json:"assignedTo"`
	AssignedBy  string             `json:"assignedBy"`
	Status      string             `json:"status"`
	Attachments []store.Attachment `json:"attachments"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

type taskDetailView struct {
	taskView
	SubTasks []subTaskView `json:"subTasks"`
}

func newTaskView(t *store.Task) taskView {
	attachments := t.Attachments
	if attachments == nil {
		attachments = []store.Attachment{}
	}
	return taskView{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  t.AssignedTo,
		AssignedBy:  t.AssignedBy,
		Status:      t.Status,
		Attachments: attachments,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func newTaskDetailView(d *project.TaskDetail) taskDetailView {
	return taskDetailView{
		taskView: newTaskView(d.Task),
		SubTasks: mapViews(d.SubTasks, newSubTaskView),
	}
}

type subTaskView struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsCompleted bool      `json:"isCompleted"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newSubTaskView(st *store.SubTask) subTaskView {
	return subTaskView{
		ID:          st.ID,
		TaskID:      st.TaskID,
		Title:       st.Title,
		Description: st.Description,
		IsCompleted: st.IsCompleted,
		CreatedBy:   st.CreatedBy,
		CreatedAt:   st.CreatedAt,
		UpdatedAt:   st.UpdatedAt,
	}
}

type noteView struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Content   string    `json:"content"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newNoteView(n *store.Note) noteView {
	return noteView{
		ID:        n.ID,
		ProjectID: n.ProjectID,
		Content:   n.Content,
		CreatedBy: n.CreatedBy,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

// mapViews converts a slice, returning an empty non-nil slice for no input.
func mapViews[T, V any](in []T, fn func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
