// ABOUTME: Request payloads for account flows and their validation rules
// ABOUTME: json tags name the fields reported in validation errors

package account

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/2389/projectcamp/internal/store"
)

// maxPasswordLength is the longest password bcrypt accepts.
const maxPasswordLength = 72

// RegisterInput is the payload for Register.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Role == "" {
		in.Role = store.RoleMember
	}
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, validation.Required, validation.Length(1, 50)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(1, maxPasswordLength)),
		validation.Field(&in.FullName, validation.Length(0, 200)),
		validation.Field(&in.Role, validation.Required, validation.In(roleValues()...)),
	)
}

// LoginInput is the payload for Login. Username is required but lookup is by email.
type LoginInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Username, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// ChangePasswordInput is the payload for ChangePassword.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (in ChangePasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.CurrentPassword, validation.Required),
		validation.Field(&in.NewPassword, validation.Required, validation.Length(1, maxPasswordLength)),
	)
}

// EmailInput is the payload for ForgotPassword and ResendVerification.
type EmailInput struct {
	Email string `json:"email"`
}

func (in EmailInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
	)
}

// ResetPasswordInput is the payload for ResetPassword. The token comes from the URL.
type ResetPasswordInput struct {
	NewPassword string `json:"newPassword"`
}

func (in ResetPasswordInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.NewPassword, validation.Required, validation.Length(1, maxPasswordLength)),
	)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func roleValues() []interface{} {
	out := make([]interface{}, len(store.AvailableRoles))
	for i, r := range store.AvailableRoles {
		out[i] = r
	}
	return out
}
