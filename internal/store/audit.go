// ABOUTME: Audit log entity and store methods for tracking account and project changes
// ABOUTME: Records who did what to which resource for compliance and debugging

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents an auditable action.
type AuditAction string

const (
	AuditUserRegistered         AuditAction = "user.register"
	AuditEmailVerified          AuditAction = "user.email_verified"
	AuditUserLogin              AuditAction = "user.login"
	AuditPasswordChanged        AuditAction = "user.password_changed"
	AuditPasswordResetRequested AuditAction = "user.password_reset_requested"
	AuditPasswordReset          AuditAction = "user.password_reset"
	AuditProjectCreated         AuditAction = "project.create"
	AuditProjectUpdated         AuditAction = "project.update"
	AuditProjectDeleted         AuditAction = "project.delete"
	AuditMemberAdded            AuditAction = "member.add"
	AuditMemberRoleUpdated      AuditAction = "member.update_role"
	AuditMemberRemoved          AuditAction = "member.remove"
)

// ValidAuditActions lists all valid audit actions.
var ValidAuditActions = []AuditAction{
	AuditUserRegistered,
	AuditEmailVerified,
	AuditUserLogin,
	AuditPasswordChanged,
	AuditPasswordResetRequested,
	AuditPasswordReset,
	AuditProjectCreated,
	AuditProjectUpdated,
	AuditProjectDeleted,
	AuditMemberAdded,
	AuditMemberRoleUpdated,
	AuditMemberRemoved,
}

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID          string         // UUID v4
	ActorUserID string         // who performed the action
	Action      AuditAction    // what action was performed
	TargetType  string         // "user", "project", "member"
	TargetID    string         // ID of the affected resource
	Timestamp   time.Time      // when it happened
	Detail      map[string]any // additional context
}

// AuditFilter specifies filtering options for listing audit entries.
type AuditFilter struct {
	Since       *time.Time   // entries after this time
	Until       *time.Time   // entries before this time
	ActorUserID *string      // filter by actor
	Action      *AuditAction // filter by action type
	TargetType  *string      // filter by target type
	TargetID    *string      // filter by target ID
	Limit       int          // max results (default 100, max 1000)
}

// AppendAuditLog appends a new entry to the audit log.
// Generates ID and Timestamp if not set.
func (s *SQLStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	prepareAuditEntry(e)

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling audit detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	_, err := s.exec(ctx, `
		INSERT INTO audit_log (audit_id, actor_user_id, action, target_type, target_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.ActorUserID,
		string(e.Action),
		e.TargetType,
		e.TargetID,
		formatTime(e.Timestamp),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	s.logger.Debug("appended audit log",
		"id", e.ID,
		"actor", e.ActorUserID,
		"action", e.Action,
		"target", e.TargetType+"/"+e.TargetID,
	)
	return nil
}

func prepareAuditEntry(e *AuditEntry) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

// normalizeAuditLimit applies default (100) and cap (1000) to audit limit.
func normalizeAuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// buildAuditWhere turns the filter into a WHERE clause and its arguments.
func buildAuditWhere(f AuditFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Since != nil {
		clauses = append(clauses, "ts >= ?")
		args = append(args, formatTime(*f.Since))
	}
	if f.Until != nil {
		clauses = append(clauses, "ts <= ?")
		args = append(args, formatTime(*f.Until))
	}
	if f.ActorUserID != nil {
		clauses = append(clauses, "actor_user_id = ?")
		args = append(args, *f.ActorUserID)
	}
	if f.Action != nil {
		clauses = append(clauses, "action = ?")
		args = append(args, string(*f.Action))
	}
	if f.TargetType != nil {
		clauses = append(clauses, "target_type = ?")
		args = append(args, *f.TargetType)
	}
	if f.TargetID != nil {
		clauses = append(clauses, "target_id = ?")
		args = append(args, *f.TargetID)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

// scanAuditEntry scans a row into an AuditEntry.
func scanAuditEntry(scanner rowScanner) (AuditEntry, error) {
	var e AuditEntry
	var actionStr, tsStr string
	var detailJSON *string

	if err := scanner.Scan(
		&e.ID,
		&e.ActorUserID,
		&actionStr,
		&e.TargetType,
		&e.TargetID,
		&tsStr,
		&detailJSON,
	); err != nil {
		return e, fmt.Errorf("scanning audit entry: %w", err)
	}

	e.Action = AuditAction(actionStr)
	var err error
	e.Timestamp, err = parseTime(tsStr)
	if err != nil {
		return e, fmt.Errorf("parsing timestamp: %w", err)
	}

	if detailJSON != nil {
		if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
			return e, fmt.Errorf("unmarshaling detail: %w", err)
		}
	}
	return e, nil
}

// ListAuditLog returns audit entries matching the filter criteria.
// Results are returned newest first (DESC by timestamp).
func (s *SQLStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	where, args := buildAuditWhere(f)
	args = append(args, normalizeAuditLimit(f.Limit))

	rows, err := s.query(ctx, `
		SELECT audit_id, actor_user_id, action, target_type, target_id, ts, detail_json
		FROM audit_log
		`+where+`
		ORDER BY ts DESC, audit_id
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	if entries == nil {
		entries = []AuditEntry{}
	}
	return entries, nil
}
