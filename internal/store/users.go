// ABOUTME: User persistence including single-use verification and password reset tokens
// ABOUTME: Token consumption is a conditional UPDATE ... RETURNING so each token is redeemed at most once

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const userColumns = `
	id, username, email, full_name, avatar_url, role, is_email_verified,
	password_hash, email_verification_token, password_reset_token, password_reset_expires_at,
	created_at, updated_at
`

// CreateUser inserts a new user.
func (s *SQLStore) CreateUser(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}

	var resetExpires any
	if u.PasswordResetExpiresAt != nil {
		resetExpires = formatTime(*u.PasswordResetExpiresAt)
	}

	_, err := s.exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		u.ID,
		u.Username,
		u.Email,
		u.FullName,
		u.AvatarURL,
		u.Role,
		u.IsEmailVerified,
		u.PasswordHash,
		nullString(u.EmailVerificationToken),
		nullString(u.PasswordResetToken),
		resetExpires,
		formatTime(u.CreatedAt),
		formatTime(u.UpdatedAt),
	)
	if err != nil {
		if what, ok := uniqueViolation(err); ok {
			if strings.Contains(what, "username") {
				return ErrDuplicateUsername
			}
			return ErrDuplicateEmail
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", u.ID)
	return nil
}

// GetUser retrieves a user by ID including secret fields.
func (s *SQLStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserProfile retrieves a user by ID without the password hash or tokens.
func (s *SQLStore) GetUserProfile(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, username, email, full_name, avatar_url, role, is_email_verified, created_at, updated_at
		FROM users
		WHERE id = ?
	`

	var u User
	var createdAtStr, updatedAtStr string
	err := s.queryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.Role,
		&u.IsEmailVerified,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user profile: %w", err)
	}

	if u.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if u.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &u, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// UpdatePasswordHash replaces the stored password hash.
func (s *SQLStore) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	result, err := s.exec(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, formatTime(time.Now()), userID,
	)
	if err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}
	return requireAffected(result)
}

// SetEmailVerificationToken stores a fresh verification token, replacing any previous one.
func (s *SQLStore) SetEmailVerificationToken(ctx context.Context, userID, token string) error {
	result, err := s.exec(ctx,
		`UPDATE users SET email_verification_token = ?, updated_at = ? WHERE id = ?`,
		token, formatTime(time.Now()), userID,
	)
	if err != nil {
		return fmt.Errorf("setting verification token: %w", err)
	}
	return requireAffected(result)
}

// ConsumeEmailVerificationToken verifies the user holding token and clears it.
func (s *SQLStore) ConsumeEmailVerificationToken(ctx context.Context, token string) (string, error) {
	query := `
		UPDATE users
		SET is_email_verified = ?, email_verification_token = NULL, updated_at = ?
		WHERE email_verification_token = ?
		RETURNING id
	`

	var userID string
	err := s.queryRow(ctx, query, true, formatTime(time.Now()), token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("consuming verification token: %w", err)
	}

	s.logger.Debug("email verified", "user_id", userID)
	return userID, nil
}

// SetPasswordResetToken stores a reset token with its expiry.
func (s *SQLStore) SetPasswordResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	result, err := s.exec(ctx, `
		UPDATE users
		SET password_reset_token = ?, password_reset_expires_at = ?, updated_at = ?
		WHERE id = ?
	`, token, formatTime(expiresAt), formatTime(time.Now()), userID)
	if err != nil {
		return fmt.Errorf("setting reset token: %w", err)
	}
	return requireAffected(result)
}

// ResetPasswordWithToken redeems a password reset token that has not yet expired.
// Expiry is compared at the one-second precision of formatTime.
func (s *SQLStore) ResetPasswordWithToken(ctx context.Context, token, hash string, now time.Time) (string, error) {
	query := `
		UPDATE users
		SET password_hash = ?, password_reset_token = NULL, password_reset_expires_at = NULL, updated_at = ?
		WHERE password_reset_token = ? AND password_reset_expires_at > ?
		RETURNING id
	`

	var userID string
	err := s.queryRow(ctx, query, hash, formatTime(now), token, formatTime(now)).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resetting password: %w", err)
	}

	s.logger.Debug("password reset", "user_id", userID)
	return userID, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var verifyToken, resetToken, resetExpires sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.Role,
		&u.IsEmailVerified,
		&u.PasswordHash,
		&verifyToken,
		&resetToken,
		&resetExpires,
		&createdAtStr,
		&updatedAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.EmailVerificationToken = verifyToken.String
	u.PasswordResetToken = resetToken.String
	if resetExpires.Valid {
		t, err := parseTime(resetExpires.String)
		if err != nil {
			return nil, fmt.Errorf("parsing password_reset_expires_at: %w", err)
		}
		u.PasswordResetExpiresAt = &t
	}
	if u.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if u.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &u, nil
}
