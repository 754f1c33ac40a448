// ABOUTME: HTTP handlers for projects, members, tasks, subtasks and notes
// ABOUTME: Handlers run behind the membership gate and only translate between JSON and the project service

package server

import (
	"net/http"

	"github.com/2389/projectcamp/internal/auth"
	"github.com/2389/projectcamp/internal/project"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	u := auth.MustUserFromContext(r.Context())
	projects, err := s.projects.ListProjects(r.Context(), u.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, mapViews(projects, newProjectSummaryView), "Projects fetched successfully")
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in project.ProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u := auth.MustUserFromContext(r.Context())
	p, err := s.projects.CreateProject(r.Context(), u.ID, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, newProjectSummaryView(p), "Project created successfully")
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.projects.GetProject(r.Context(), r.PathValue("projectId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, newProjectView(p), "Project fetched successfully")
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var in project.ProjectUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u := auth.MustUserFromContext(r.Context())
	p, err := s.projects.UpdateProject(r.Context(), u.ID, r.PathValue("projectId"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, newProjectView(p), "Project updated successfully")
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	u := auth.MustUserFromContext(r.Context())
	if err := s.projects.DeleteProject(r.Context(), u.ID, r.PathValue("projectId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, struct{}{}, "Project deleted successfully")
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.projects.ListMembers(r.Context(), r.PathValue("projectId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, mapViews(members, newMemberView), "Project members fetched successfully")
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var in project.AddMemberInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u := auth.MustUserFromContext(r.Context())
	m, err := s.projects.AddMember(r.Context(), u.ID, r.PathValue("projectId"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, newMemberView(m), "Project member added successfully")
}

// handleUpdateMemberRole addresses the member by user id.
func (s *Server) handleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	var in project.RoleInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u := auth.MustUserFromContext(r.Context())
	m, err := s.projects.UpdateMemberRole(r.Context(), u.ID, r.PathValue("projectId"), r.PathValue("memberId"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, newMemberView(m), "Project member role updated successfully")
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	u := auth.MustUserFromContext(r.Context())
	if err := s.projects.RemoveMember(r.Context(), u.ID, r.PathValue("projectId"), r.PathValue("memberId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, struct{}{}, "Project member deleted successfully")
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.projects.ListTasks(r.Context(), r.PathValue("projectId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, mapViews(tasks, newTaskView), "Tasks fetched successfully")
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in project.TaskInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u := auth.MustUserFromContext(r.Context())
	t, err := s.projects.CreateTask(r.Context(), u.ID, r.PathValue("projectId"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, newTaskView(t), "Task created successfully")
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	d, err := s.projects.GetTask(r.Context(), r.PathValue("projectId"), r.PathValue("taskId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, newTaskDetailView(d), "Task fetched successfully")
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var in project.TaskUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	t, err := s.projects.UpdateTask(r.Context(), r.PathValue("projectId"), r.PathValue("taskId"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, newTaskView(t), "Task updated successfully")
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.DeleteTask(r.Context(), r.PathValue("projectId"), r.PathValue("taskId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, struct{}{}, "Task deleted successfully")
}

func (s *Server) handleCreateSubTask(w http.ResponseWriter, r *http.Request) {
	var in project.SubTaskInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u := auth.MustUserFromContext(r.Context())
	st, err := s.projects.CreateSubTask(r.Context(), u.ID, r.PathValue("projectId"), r.PathValue("taskId"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, newSubTaskView(st), "Subtask created successfully")
}

func (s *Server) handleUpdateSubTask(w http.ResponseWriter, r *http.Request) {
	var in project.SubTaskUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.projects.UpdateSubTask(r.Context(), r.PathValue("projectId"), r.PathValue("taskId"), r.PathValue("subTaskId"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, newSubTaskView(st), "Subtask updated successfully")
}

func (s *Server) handleDeleteSubTask(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.DeleteSubTask(r.Context(), r.PathValue("projectId"), r.PathValue("taskId"), r.PathValue("subTaskId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, struct{}{}, "Subtask deleted successfully")
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.projects.ListNotes(r.Context(), r.PathValue("projectId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, mapViews(notes, newNoteView), "Notes fetched successfully")
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var in project.NoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u := auth.MustUserFromContext(r.Context())
	n, err := s.projects.CreateNote(r.Context(), u.ID, r.PathValue("projectId"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, newNoteView(n), "Note created successfully")
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.projects.GetNote(r.Context(), r.PathValue("projectId"), r.PathValue("noteId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, newNoteView(n), "Note fetched successfully")
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var in project.NoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	n, err := s.projects.UpdateNote(r.Context(), r.PathValue("projectId"), r.PathValue("noteId"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, newNoteView(n), "Note updated successfully")
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.projects.DeleteNote(r.Context(), r.PathValue("projectId"), r.PathValue("noteId")); err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, struct{}{}, "Note deleted successfully")
}
