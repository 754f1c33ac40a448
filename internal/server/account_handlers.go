// ABOUTME: HTTP handlers for registration, login, email verification and password flows
// ABOUTME: Login and refresh set the token cookie; logout expires it

package server

import (
	"net/http"

	"github.com/2389/projectcamp/internal/account"
	"github.com/2389/projectcamp/internal/auth"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.accounts.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, newUserView(u), "User registered successfully and verification email has been sent on your email")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in account.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.accounts.Login(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setTokenCookie(w, res.AccessToken, s.accounts.TokenTTL())
	respond(w, http.StatusOK, newLoginView(res), "User logged in successfully")
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	u := auth.MustUserFromContext(r.Context())
	respond(w, http.StatusOK, newUserView(u), "Current user fetched successfully")
}

// handleLogout only expires the cookie. Issued tokens stay valid until they expire.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearTokenCookie(w)
	respond(w, http.StatusOK, struct{}{}, "User logged out successfully")
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.VerifyEmail(r.Context(), r.PathValue("token")); err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"isEmailVerified": true}, "Email is verified")
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var in account.EmailInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	alreadyVerified, err := s.accounts.ResendVerification(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if alreadyVerified {
		respond(w, http.StatusOK, map[string]bool{"isEmailVerified": true}, "Email is already verified")
		return
	}
	respond(w, http.StatusOK, struct{}{}, "Mail has been sent to your mail ID")
}

// handleRefresh reads the token from the cookie only.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(auth.TokenCookieName); err == nil {
		token = c.Value
	}

	res, err := s.accounts.Refresh(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setTokenCookie(w, res.AccessToken, s.accounts.TokenTTL())
	respond(w, http.StatusOK, map[string]string{"token": res.AccessToken}, "Access token refreshed")
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in account.ChangePasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	u := auth.MustUserFromContext(r.Context())
	if err := s.accounts.ChangePassword(r.Context(), u.ID, in); err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, struct{}{}, "Password changed successfully")
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in account.EmailInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.accounts.ForgotPassword(r.Context(), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, struct{}{}, "Password reset mail has been sent on your mail id")
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in account.ResetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.accounts.ResetPassword(r.Context(), r.PathValue("token"), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	respond(w, http.StatusOK, struct{}{}, "Password reset successfully")
}
