// ABOUTME: Project and project membership persistence
// ABOUTME: Project creation inserts the creator's admin membership in the same transaction

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateProject inserts p and makes p.CreatedBy its first admin.
func (s *SQLStore) CreateProject(ctx context.Context, p *Project) (*ProjectMember, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt

	member := &ProjectMember{
		ID:        uuid.New().String(),
		ProjectID: p.ID,
		UserID:    p.CreatedBy,
		Role:      RoleAdmin,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.CreatedAt,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO projects (id, name, description, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), p.ID, p.Name, p.Description, p.CreatedBy, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO project_members (id, project_id, user_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), member.ID, member.ProjectID, member.UserID, member.Role, formatTime(member.CreatedAt), formatTime(member.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing project: %w", err)
	}

	s.logger.Debug("created project", "id", p.ID, "created_by", p.CreatedBy)
	return member, nil
}

// GetProject retrieves a project by ID.
func (s *SQLStore) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	var createdAtStr, updatedAtStr string

	err := s.queryRow(ctx, `
		SELECT id, name, description, created_by, created_at, updated_at
		FROM projects
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedBy, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying project: %w", err)
	}

	if p.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &p, nil
}

// ListProjectsForUser returns every project userID belongs to, newest first.
func (s *SQLStore) ListProjectsForUser(ctx context.Context, userID string) ([]*ProjectSummary, error) {
	rows, err := s.query(ctx, `
		SELECT p.id, p.name, p.description, p.created_by, p.created_at, p.updated_at, m.role,
			(SELECT COUNT(*) FROM project_members c WHERE c.project_id = p.id)
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.created_at DESC, p.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*ProjectSummary
	for rows.Next() {
		var ps ProjectSummary
		var createdAtStr, updatedAtStr string
		if err := rows.Scan(
			&ps.ID, &ps.Name, &ps.Description, &ps.CreatedBy,
			&createdAtStr, &updatedAtStr, &ps.Role, &ps.MemberCount,
		); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		if ps.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if ps.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		projects = append(projects, &ps)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}

	if projects == nil {
		projects = []*ProjectSummary{}
	}
	return projects, nil
}

// UpdateProject updates name and description.
func (s *SQLStore) UpdateProject(ctx context.Context, p *Project) error {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.exec(ctx, `
		UPDATE projects SET name = ?, description = ?, updated_at = ? WHERE id = ?
	`, p.Name, p.Description, formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	return requireAffected(result)
}

// DeleteProject deletes a project. Members, tasks, subtasks and notes go
// with it through ON DELETE CASCADE.
func (s *SQLStore) DeleteProject(ctx context.Context, id string) error {
	result, err := s.exec(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}

	s.logger.Debug("deleted project", "id", id)
	return nil
}

// GetMember returns the membership of userID in projectID.
func (s *SQLStore) GetMember(ctx context.Context, projectID, userID string) (*ProjectMember, error) {
	var m ProjectMember
	var createdAtStr, updatedAtStr string

	err := s.queryRow(ctx, `
		SELECT id, project_id, user_id, role, created_at, updated_at
		FROM project_members
		WHERE project_id = ? AND user_id = ?
	`, projectID, userID).Scan(&m.ID, &m.ProjectID, &m.UserID, &m.Role, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying member: %w", err)
	}

	if m.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if m.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &m, nil
}

// ListMembers returns the members of a project with their username and email.
func (s *SQLStore) ListMembers(ctx context.Context, projectID string) ([]*ProjectMember, error) {
	rows, err := s.query(ctx, `
		SELECT m.id, m.project_id, m.user_id, m.role, m.created_at, m.updated_at, u.username, u.email
		FROM project_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = ?
		ORDER BY m.created_at, u.username
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var members []*ProjectMember
	for rows.Next() {
		var m ProjectMember
		var createdAtStr, updatedAtStr string
		if err := rows.Scan(
			&m.ID, &m.ProjectID, &m.UserID, &m.Role,
			&createdAtStr, &updatedAtStr, &m.Username, &m.Email,
		); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		if m.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if m.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}
		members = append(members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}

	if members == nil {
		members = []*ProjectMember{}
	}
	return members, nil
}

// AddMember inserts a membership. Returns ErrDuplicateMember if the user
// already belongs to the project.
func (s *SQLStore) AddMember(ctx context.Context, m *ProjectMember) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO project_members (id, project_id, user_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.ProjectID, m.UserID, m.Role, formatTime(m.CreatedAt), formatTime(m.UpdatedAt))
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return ErrDuplicateMember
		}
		return fmt.Errorf("inserting member: %w", err)
	}

	s.logger.Debug("added member", "project_id", m.ProjectID, "user_id", m.UserID, "role", m.Role)
	return nil
}

// UpdateMemberRole changes a member's project role and returns the updated row.
func (s *SQLStore) UpdateMemberRole(ctx context.Context, projectID, userID, role string) (*ProjectMember, error) {
	result, err := s.exec(ctx, `
		UPDATE project_members SET role = ?, updated_at = ? WHERE project_id = ? AND user_id = ?
	`, role, formatTime(time.Now()), projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("updating member role: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return nil, err
	}
	return s.GetMember(ctx, projectID, userID)
}

// RemoveMember deletes a membership.
func (s *SQLStore) RemoveMember(ctx context.Context, projectID, userID string) error {
	result, err := s.exec(ctx, `DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	return requireAffected(result)
}
