// ABOUTME: Project note persistence
// ABOUTME: Every lookup is scoped by project so a note id from another project is not found

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateNote inserts a note.
func (s *SQLStore) CreateNote(ctx context.Context, n *Note) error {
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO notes (id, project_id, content, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, n.ProjectID, n.Content, nullString(n.CreatedBy), formatTime(n.CreatedAt), formatTime(n.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting note: %w", err)
	}
	return nil
}

// GetNote retrieves a note belonging to projectID.
func (s *SQLStore) GetNote(ctx context.Context, projectID, noteID string) (*Note, error) {
	row := s.queryRow(ctx, `
		SELECT id, project_id, content, created_by, created_at, updated_at
		FROM notes
		WHERE id = ? AND project_id = ?
	`, noteID, projectID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

// ListNotes returns a project's notes, newest first.
func (s *SQLStore) ListNotes(ctx context.Context, projectID string) ([]*Note, error) {
	rows, err := s.query(ctx, `
		SELECT id, project_id, content, created_by, created_at, updated_at
		FROM notes
		WHERE project_id = ?
		ORDER BY created_at DESC, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notes := []*Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notes: %w", err)
	}
	return notes, nil
}

// UpdateNote replaces the note content.
func (s *SQLStore) UpdateNote(ctx context.Context, n *Note) error {
	n.UpdatedAt = time.Now().UTC()
	result, err := s.exec(ctx, `
		UPDATE notes SET content = ?, updated_at = ? WHERE id = ? AND project_id = ?
	`, n.Content, formatTime(n.UpdatedAt), n.ID, n.ProjectID)
	if err != nil {
		return fmt.Errorf("updating note: %w", err)
	}
	return requireAffected(result)
}

// DeleteNote deletes a note belonging to projectID.
func (s *SQLStore) DeleteNote(ctx context.Context, projectID, noteID string) error {
	result, err := s.exec(ctx, `DELETE FROM notes WHERE id = ? AND project_id = ?`, noteID, projectID)
	if err != nil {
		return fmt.Errorf("deleting note: %w", err)
	}
	return requireAffected(result)
}

func scanNote(scanner rowScanner) (*Note, error) {
	var n Note
	var createdBy sql.NullString
	var createdAtStr, updatedAtStr string

	err := scanner.Scan(&n.ID, &n.ProjectID, &n.Content, &createdBy, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning note: %w", err)
	}

	n.CreatedBy = createdBy.String
	if n.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if n.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &n, nil
}
