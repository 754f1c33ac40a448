// Package account implements the account lifecycle of projectcamp.
//
// # Flows
//
//   - Register: creates an unverified user and emails a verification link
//   - VerifyEmail / ResendVerification: single-use email verification tokens
//   - Login / Refresh: issue access tokens through auth.TokenCodec
//   - ChangePassword: requires the current password
//   - ForgotPassword / ResetPassword: single-use reset tokens with an expiry
//
// Logout is stateless and lives entirely in the HTTP layer: it clears the
// token cookie. Issued tokens remain valid until they expire.
//
// # Errors
//
// Every method returns nil or an *auth.Error. Store failures become Internal
// and keep their cause for logging.
//
// # Emails
//
// Links point at {BaseURL}/api/v1/users/verify/{token} and
// {BaseURL}/api/v1/users/reset-password/{token}. When delivery fails after
// registration, the account is kept and Register returns Internal; the user
// recovers through ResendVerification.
//
// With Config.MailCooldown set, a second verification or reset email to the
// same address inside the window is skipped and the call still succeeds.
package account
