// ABOUTME: Route table for the /api/v1/users API
// ABOUTME: Each project route names the project roles admitted by the membership gate

package server

import (
	"net/http"

	"github.com/2389/projectcamp/internal/auth"
	"github.com/2389/projectcamp/internal/store"
)

const apiBase = "/api/v1/users"

var (
	adminOnly    = []string{store.RoleAdmin}
	anyRole      = store.AvailableRoles
	notesReaders = []string{store.RoleAdmin, store.RoleMember}
)

// authed requires a logged-in user.
func (s *Server) authed(h http.HandlerFunc) http.Handler {
	return auth.RequireUser(s.authn, s.writeError)(h)
}

// member requires a logged-in user whose role in {projectId} is in allowed.
func (s *Server) member(allowed []string, h http.HandlerFunc) http.Handler {
	gate := auth.RequireProjectRole(s.authz, s.writeError, allowed...)
	return s.authed(gate(h).ServeHTTP)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Account
	mux.HandleFunc("POST "+apiBase+"/register", s.handleRegister)
	mux.HandleFunc("POST "+apiBase+"/login", s.handleLogin)
	mux.Handle("GET "+apiBase+"/login/user", s.authed(s.handleCurrentUser))
	mux.Handle("POST "+apiBase+"/logout", s.authed(s.handleLogout))
	mux.HandleFunc("GET "+apiBase+"/verify/{token}", s.handleVerifyEmail)
	mux.HandleFunc("POST "+apiBase+"/password/resendVerificationEmail", s.handleResendVerification)
	mux.HandleFunc("GET "+apiBase+"/password/refreshAccessToken", s.handleRefresh)
	mux.Handle("PUT "+apiBase+"/password/change", s.authed(s.handleChangePassword))
	mux.HandleFunc("POST "+apiBase+"/password/reset", s.handleForgotPassword)
	mux.HandleFunc("POST "+apiBase+"/password/reset/{token}", s.handleResetPassword)
	mux.HandleFunc("POST "+apiBase+"/reset-password/{token}", s.handleResetPassword)

	// Projects
	p := apiBase + "/projects"
	mux.Handle("GET "+p, s.authed(s.handleListProjects))
	mux.Handle("POST "+p, s.authed(s.handleCreateProject))
	mux.Handle("GET "+p+"/{projectId}", s.member(anyRole, s.handleGetProject))
	mux.Handle("PUT "+p+"/{projectId}", s.member(adminOnly, s.handleUpdateProject))
	mux.Handle("DELETE "+p+"/{projectId}", s.member(adminOnly, s.handleDeleteProject))

	// Members
	mux.Handle("GET "+p+"/{projectId}/members", s.member(anyRole, s.handleListMembers))
	mux.Handle("POST "+p+"/{projectId}/members", s.member(adminOnly, s.handleAddMember))
	mux.Handle("PUT "+p+"/{projectId}/members/{memberId}", s.member(adminOnly, s.handleUpdateMemberRole))
	mux.Handle("DELETE "+p+"/{projectId}/members/{memberId}", s.member(adminOnly, s.handleRemoveMember))

	// Tasks
	t := p + "/{projectId}/task"
	mux.Handle("GET "+t, s.member(anyRole, s.handleListTasks))
	mux.Handle("POST "+t, s.member(adminOnly, s.handleCreateTask))
	mux.Handle("GET "+t+"/{taskId}", s.member(anyRole, s.handleGetTask))
	mux.Handle("PUT "+t+"/{taskId}", s.member(adminOnly, s.handleUpdateTask))
	mux.Handle("DELETE "+t+"/{taskId}", s.member(adminOnly, s.handleDeleteTask))

	// Subtasks
	st := t + "/{taskId}/subTask"
	mux.Handle("POST "+st, s.member(adminOnly, s.handleCreateSubTask))
	mux.Handle("PUT "+st+"/{subTaskId}", s.member(adminOnly, s.handleUpdateSubTask))
	mux.Handle("DELETE "+st+"/{subTaskId}", s.member(adminOnly, s.handleDeleteSubTask))

	// Notes
	n := p + "/{projectId}/notes"
	mux.Handle("GET "+n, s.member(notesReaders, s.handleListNotes))
	mux.Handle("POST "+n, s.member(adminOnly, s.handleCreateNote))
	mux.Handle("GET "+n+"/{noteId}", s.member(notesReaders, s.handleGetNote))
	mux.Handle("PUT "+n+"/{noteId}", s.member(adminOnly, s.handleUpdateNote))
	mux.Handle("DELETE "+n+"/{noteId}", s.member(adminOnly, s.handleDeleteNote))
}
