// ABOUTME: Task and subtask persistence scoped to a project
// ABOUTME: Attachments are stored as a JSON array alongside each task

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const taskColumns = `id, project_id, title, description, assigned_to, assigned_by, status, attachments_json, created_at, updated_at`

// CreateTask inserts a task.
func (s *SQLStore) CreateTask(ctx context.Context, t *Task) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = TaskStatusTodo
	}

	attachments, err := marshalAttachments(t.Attachments)
	if err != nil {
		return err
	}

	_, err = s.exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.ProjectID, t.Title, t.Description,
		nullString(t.AssignedTo), nullString(t.AssignedBy), t.Status, attachments,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}

	s.logger.Debug("created task", "id", t.ID, "project_id", t.ProjectID)
	return nil
}

// GetTask retrieves a task belonging to projectID.
func (s *SQLStore) GetTask(ctx context.Context, projectID, taskID string) (*Task, error) {
	row := s.queryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND project_id = ?`, taskID, projectID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

// ListTasks returns all tasks of a project, oldest first.
func (s *SQLStore) ListTasks(ctx context.Context, projectID string) ([]*Task, error) {
	rows, err := s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask writes every mutable task field.
func (s *SQLStore) UpdateTask(ctx context.Context, t *Task) error {
	attachments, err := marshalAttachments(t.Attachments)
	if err != nil {
		return err
	}
	t.UpdatedAt = time.Now().UTC()

	result, err := s.exec(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, assigned_to = ?, status = ?, attachments_json = ?, updated_at = ?
		WHERE id = ? AND project_id = ?
	`, t.Title, t.Description, nullString(t.AssignedTo), t.Status, attachments, formatTime(t.UpdatedAt), t.ID, t.ProjectID)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return requireAffected(result)
}

// DeleteTask deletes a task; its subtasks cascade.
func (s *SQLStore) DeleteTask(ctx context.Context, projectID, taskID string) error {
	result, err := s.exec(ctx, `DELETE FROM tasks WHERE id = ? AND project_id = ?`, taskID, projectID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return requireAffected(result)
}

// CreateSubTask inserts a subtask.
func (s *SQLStore) CreateSubTask(ctx context.Context, st *SubTask) error {
	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	_, err := s.exec(ctx, `
		INSERT INTO subtasks (id, task_id, title, description, is_completed, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.TaskID, st.Title, st.Description, st.IsCompleted, nullString(st.CreatedBy),
		formatTime(st.CreatedAt), formatTime(st.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting subtask: %w", err)
	}
	return nil
}

// GetSubTask retrieves a subtask of taskID.
func (s *SQLStore) GetSubTask(ctx context.Context, taskID, subTaskID string) (*SubTask, error) {
	row := s.queryRow(ctx, `
		SELECT id, task_id, title, description, is_completed, created_by, created_at, updated_at
		FROM subtasks
		WHERE id = ? AND task_id = ?
	`, subTaskID, taskID)
	st, err := scanSubTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return st, err
}

// ListSubTasks returns the subtasks of a task, oldest first.
func (s *SQLStore) ListSubTasks(ctx context.Context, taskID string) ([]*SubTask, error) {
	rows, err := s.query(ctx, `
		SELECT id, task_id, title, description, is_completed, created_by, created_at, updated_at
		FROM subtasks
		WHERE task_id = ?
		ORDER BY created_at, id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying subtasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subtasks := []*SubTask{}
	for rows.Next() {
		st, err := scanSubTask(rows)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subtasks: %w", err)
	}
	return subtasks, nil
}

// UpdateSubTask writes title, description and completion state.
func (s *SQLStore) UpdateSubTask(ctx context.Context, st *SubTask) error {
	st.UpdatedAt = time.Now().UTC()
	result, err := s.exec(ctx, `
		UPDATE subtasks SET title = ?, description = ?, is_completed = ?, updated_at = ?
		WHERE id = ? AND task_id = ?
	`, st.Title, st.Description, st.IsCompleted, formatTime(st.UpdatedAt), st.ID, st.TaskID)
	if err != nil {
		return fmt.Errorf("updating subtask: %w", err)
	}
	return requireAffected(result)
}

// DeleteSubTask deletes a subtask of taskID.
func (s *SQLStore) DeleteSubTask(ctx context.Context, taskID, subTaskID string) error {
	result, err := s.exec(ctx, `DELETE FROM subtasks WHERE id = ? AND task_id = ?`, subTaskID, taskID)
	if err != nil {
		return fmt.Errorf("deleting subtask: %w", err)
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask returns sql.ErrNoRows unwrapped so callers can map it.
func scanTask(scanner rowScanner) (*Task, error) {
	var t Task
	var assignedTo, assignedBy sql.NullString
	var attachmentsJSON, createdAtStr, updatedAtStr string

	err := scanner.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description,
		&assignedTo, &assignedBy, &t.Status, &attachmentsJSON,
		&createdAtStr, &updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	t.AssignedTo = assignedTo.String
	t.AssignedBy = assignedBy.String
	if err := json.Unmarshal([]byte(attachmentsJSON), &t.Attachments); err != nil {
		return nil, fmt.Errorf("unmarshaling attachments: %w", err)
	}
	if t.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &t, nil
}

func scanSubTask(scanner rowScanner) (*SubTask, error) {
	var st SubTask
	var createdBy sql.NullString
	var createdAtStr, updatedAtStr string

	err := scanner.Scan(
		&st.ID, &st.TaskID, &st.Title, &st.Description, &st.IsCompleted,
		&createdBy, &createdAtStr, &updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning subtask: %w", err)
	}

	st.CreatedBy = createdBy.String
	if st.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if st.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &st, nil
}

func marshalAttachments(a []Attachment) (string, error) {
	if a == nil {
		a = []Attachment{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("marshaling attachments: %w", err)
	}
	return string(data), nil
}
