// ABOUTME: Account lifecycle: register, verify email, login, refresh, and password change/reset
// ABOUTME: Translates store outcomes into auth.Error kinds and records an audit entry per transition

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/projectcamp/internal/auth"
	"github.com/2389/projectcamp/internal/dedupe"
	"github.com/2389/projectcamp/internal/mail"
	"github.com/2389/projectcamp/internal/store"
)

// DefaultPasswordResetTTL is used when Config.PasswordResetTTL is zero.
const DefaultPasswordResetTTL = time.Hour

// maxCooldownEntries bounds the number of addresses tracked for the mail cooldown.
const maxCooldownEntries = 10000

// Client-facing messages.
const (
	msgUserExists           = "User with email or username already exists"
	msgVerificationMissing  = "Email verification token is missing"
	msgInvalidVerification  = "Invalid or expired token"
	msgUserNotFound         = "User not found"
	msgInvalidCredentials   = "Invalid user credentials"
	msgUnauthorized         = "Unauthorized request"
	msgInvalidRefreshToken  = "Invalid refresh token"
	msgInvalidOldPassword   = "Invalid old password"
	msgResetTokenMissing    = "Token and new password are required"
	msgInvalidResetToken    = "Token is invalid or expired"
)

// Store is the persistence the account flows need.
type Store interface {
	store.UserStore
	store.AuditStore
}

// Config holds explicit settings for the Service.
type Config struct {
	Codec            *auth.TokenCodec
	PasswordResetTTL time.Duration
	BaseURL          string // public origin used in emailed links, without trailing slash
	Product          string // name shown in emails

	// MailCooldown suppresses a second verification or reset email to the
	// same address within the window. Zero disables it.
	MailCooldown time.Duration

	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// Service implements the account lifecycle flows.
type Service struct {
	codec    *auth.TokenCodec
	resetTTL time.Duration
	baseURL  string
	store    Store
	mailer   mail.Mailer
	composer *mail.Composer
	logger   *slog.Logger
	now      func() time.Time
	cooldown *dedupe.Cache // nil when disabled
}

// LoginResult is a freshly issued access token and its owner.
type LoginResult struct {
	User        *store.User
	AccessToken string
}

// NewService creates a Service.
func NewService(cfg Config, s Store, mailer mail.Mailer, logger *slog.Logger) *Service {
	if cfg.PasswordResetTTL <= 0 {
		cfg.PasswordResetTTL = DefaultPasswordResetTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Product == "" {
		cfg.Product = "projectcamp"
	}
	svc := &Service{
		codec:    cfg.Codec,
		resetTTL: cfg.PasswordResetTTL,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		store:    s,
		mailer:   mailer,
		composer: mail.NewComposer(cfg.Product),
		logger:   logger.With("component", "account"),
		now:      cfg.Now,
	}
	if cfg.MailCooldown > 0 {
		svc.cooldown = dedupe.New(cfg.MailCooldown, maxCooldownEntries, cfg.Now)
	}
	return svc
}

// Close stops background work owned by the Service.
func (s *Service) Close() {
	if s.cooldown != nil {
		s.cooldown.Close()
	}
}

// TokenTTL returns the lifetime of issued access tokens.
func (s *Service) TokenTTL() time.Duration { return s.codec.TTL() }

// Register creates an unverified account and emails a verification link.
// If the email cannot be sent the account is kept and Internal is returned;
// the user can ask for a new link with ResendVerification.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*store.User, error) {
	in.normalize()
	if err := auth.Validate(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, auth.Internal(err)
	}
	token, err := auth.GenerateToken()
	if err != nil {
		return nil, auth.Internal(err)
	}

	now := s.now().UTC()
	u := &store.User{
		ID:                     uuid.New().String(),
		Username:               in.Username,
		Email:                  in.Email,
		FullName:               in.FullName,
		Role:                   in.Role,
		PasswordHash:           hash,
		EmailVerificationToken: token,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) || errors.Is(err, store.ErrDuplicateUsername) {
			return nil, auth.Conflict(msgUserExists)
		}
		return nil, auth.Internal(err)
	}

	s.logger.Info("user registered", "user_id", u.ID)
	s.audit(ctx, u.ID, store.AuditUserRegistered, u.ID, nil)

	if err := s.sendVerification(ctx, u, token); err != nil {
		s.logger.Error("verification email failed", "user_id", u.ID, "error", err)
		return nil, auth.Internal(err)
	}

	return u.Sanitized(), nil
}

// VerifyEmail redeems a verification token. Each token works once.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return auth.BadRequest(msgVerificationMissing)
	}

	userID, err := s.store.ConsumeEmailVerificationToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return auth.BadRequest(msgInvalidVerification)
	}
	if err != nil {
		return auth.Internal(err)
	}

	s.logger.Info("email verified", "user_id", userID)
	s.audit(ctx, userID, store.AuditEmailVerified, userID, nil)
	return nil
}

// ResendVerification issues a new verification token for email, replacing any
// previous one. It reports alreadyVerified without sending anything when the
// account needs no verification.
func (s *Service) ResendVerification(ctx context.Context, in EmailInput) (alreadyVerified bool, err error) {
	in.Email = normalizeEmail(in.Email)
	if err := auth.Validate(in); err != nil {
		return false, err
	}

	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return false, auth.NotFound(msgUserNotFound)
	}
	if err != nil {
		return false, auth.Internal(err)
	}
	if u.IsEmailVerified {
		return true, nil
	}

	key := "verify:" + u.Email
	if s.coolingDown(key) {
		s.logger.Info("verification email suppressed by cooldown", "user_id", u.ID)
		return false, nil
	}

	token, err := auth.GenerateToken()
	if err != nil {
		s.forget(key)
		return false, auth.Internal(err)
	}
	if err := s.store.SetEmailVerificationToken(ctx, u.ID, token); err != nil {
		s.forget(key)
		return false, auth.Internal(err)
	}
	if err := s.sendVerification(ctx, u, token); err != nil {
		s.forget(key)
		s.logger.Error("verification email failed", "user_id", u.ID, "error", err)
		return false, auth.Internal(err)
	}
	return false, nil
}

// Login checks credentials and issues an access token. Unknown email and
// wrong password fail identically.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := auth.Validate(in); err != nil {
		return nil, err
	}

	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		auth.BurnPasswordCheck(in.Password)
		return nil, auth.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return nil, auth.Internal(err)
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		s.logger.Warn("login failed", "user_id", u.ID)
		return nil, auth.Unauthorized(msgInvalidCredentials)
	}

	result, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", u.ID)
	s.audit(ctx, u.ID, store.AuditUserLogin, u.ID, nil)
	return result, nil
}

// Refresh exchanges a still-valid access token for a new one. The old token
// is not revoked and stays valid until it expires.
func (s *Service) Refresh(ctx context.Context, token string) (*LoginResult, error) {
	if token == "" {
		return nil, auth.Unauthorized(msgUnauthorized)
	}

	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, auth.Unauthorized(msgInvalidRefreshToken)
	}

	u, err := s.store.GetUserProfile(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, auth.Unauthorized(msgInvalidRefreshToken)
	}
	if err != nil {
		return nil, auth.Internal(err)
	}

	return s.issue(u)
}

// ChangePassword replaces the password of userID after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) error {
	if err := auth.Validate(in); err != nil {
		return err
	}

	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return auth.NotFound(msgUserNotFound)
	}
	if err != nil {
		return auth.Internal(err)
	}
	if !auth.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		return auth.BadRequest(msgInvalidOldPassword)
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return auth.Internal(err)
	}
	if err := s.store.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return auth.Internal(err)
	}

	s.logger.Info("password changed", "user_id", userID)
	s.audit(ctx, userID, store.AuditPasswordChanged, userID, nil)
	return nil
}

// ForgotPassword stores a reset token valid for the configured TTL and
// emails a reset link. Inside the mail cooldown it succeeds without sending,
// and the previously mailed link stays valid.
func (s *Service) ForgotPassword(ctx context.Context, in EmailInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := auth.Validate(in); err != nil {
		return err
	}

	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return auth.NotFound(msgUserNotFound)
	}
	if err != nil {
		return auth.Internal(err)
	}

	key := "reset:" + u.Email
	if s.coolingDown(key) {
		s.logger.Info("password reset email suppressed by cooldown", "user_id", u.ID)
		return nil
	}

	token, err := auth.GenerateToken()
	if err != nil {
		s.forget(key)
		return auth.Internal(err)
	}
	expiresAt := s.now().UTC().Add(s.resetTTL)
	if err := s.store.SetPasswordResetToken(ctx, u.ID, token, expiresAt); err != nil {
		s.forget(key)
		return auth.Internal(err)
	}

	s.audit(ctx, u.ID, store.AuditPasswordResetRequested, u.ID, nil)

	msg, err := s.composer.PasswordReset(u.Email, u.Username, s.link("reset-password", token), s.resetTTL.String())
	if err != nil {
		s.forget(key)
		return auth.Internal(err)
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.forget(key)
		s.logger.Error("password reset email failed", "user_id", u.ID, "error", err)
		return auth.Internal(err)
	}
	return nil
}

// ResetPassword sets a new password using a reset token. The token must be
// unexpired and works once.
func (s *Service) ResetPassword(ctx context.Context, token string, in ResetPasswordInput) error {
	if token == "" || in.NewPassword == "" {
		return auth.BadRequest(msgResetTokenMissing)
	}
	if err := auth.Validate(in); err != nil {
		return err
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return auth.Internal(err)
	}

	userID, err := s.store.ResetPasswordWithToken(ctx, token, hash, s.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return auth.BadRequest(msgInvalidResetToken)
	}
	if err != nil {
		return auth.Internal(err)
	}

	s.logger.Info("password reset", "user_id", userID)
	s.audit(ctx, userID, store.AuditPasswordReset, userID, nil)
	return nil
}

func (s *Service) issue(u *store.User) (*LoginResult, error) {
	token, err := s.codec.Issue(u.ID, u.Role)
	if err != nil {
		return nil, auth.Internal(err)
	}
	return &LoginResult{User: u.Sanitized(), AccessToken: token}, nil
}

func (s *Service) sendVerification(ctx context.Context, u *store.User, token string) error {
	msg, err := s.composer.Verification(u.Email, u.Username, s.link("verify", token))
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, msg)
}

// coolingDown reports whether key was mailed within the cooldown and marks it otherwise.
func (s *Service) coolingDown(key string) bool {
	return s.cooldown != nil && s.cooldown.CheckAndMark(key)
}

func (s *Service) forget(key string) {
	if s.cooldown != nil {
		s.cooldown.Forget(key)
	}
}

func (s *Service) link(kind, token string) string {
	return fmt.Sprintf("%s/api/v1/users/%s/%s", s.baseURL, kind, token)
}

// audit records a user transition. Failures are logged and never fail the flow.
func (s *Service) audit(ctx context.Context, actorID string, action store.AuditAction, userID string, detail map[string]any) {
	entry := &store.AuditEntry{
		ActorUserID: actorID,
		Action:      action,
		TargetType:  "user",
		TargetID:    userID,
		Timestamp:   s.now().UTC(),
		Detail:      detail,
	}
	if err := s.store.AppendAuditLog(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", "action", action, "error", err)
	}
}
