package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sbilab/dataviz/internal/domain"
	"github.com/sbilab/dataviz/internal/service"
	"github.com/sbilab/dataviz/pkg/httpx"
	"github.com/sbilab/dataviz/pkg/idx"
	"github.com/sbilab/dataviz/pkg/jwtx"
	"github.com/sbilab/dataviz/pkg/slogx"
)

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		FullName:  u.FullName,
		IsActive:  u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// authEnvelope is the response shape of register, login and google login.
type authEnvelope struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
}

type AuthHandler struct {
	Users  *service.UserService
	OAuth  *service.OAuthService
	Signer jwtx.Signer
	Issuer string
	TTL    time.Duration
}

func (h *AuthHandler) issueToken(u domain.User) (string, error) {
	claims := jwtx.NewAccessClaims(u.Email, h.Issuer, h.TTL, time.Now())
	return h.Signer.Sign(claims)
}

func (h *AuthHandler) writeEnvelope(w http.ResponseWriter, log *slog.Logger, message string, u domain.User) {
	token, err := h.issueToken(u)
	if err != nil {
		log.Error("token signing failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authEnvelope{
		Success:   true,
		Message:   message,
		User:      newUserResponse(u),
		Token:     token,
		TokenType: "bearer",
	})
}

// HandleRegister creates an account from a JSON body and issues a token.
//
//	@Summary		Register a new user
//	@Description	Creates an account and returns an access token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	authEnvelope
//	@Failure		400	{object}	httpx.ErrorResponse	"duplicate email or invalid body"
//	@Router			/api/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var body struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if body.Email == "" || body.Username == "" || body.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "email, username and password are required")
		return
	}

	user, err := h.Users.Create(ctx, body.Email, body.Username, body.FullName, body.Password)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	h.writeEnvelope(w, log, "User registered successfully", user)
}

// HandleLogin authenticates a JSON email/password pair.
//
//	@Summary		Log in with email and password
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	authEnvelope
//	@Failure		401	{object}	httpx.ErrorResponse	"bad credentials"
//	@Router			/api/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	user, err := h.Users.Authenticate(ctx, body.Email, body.Password)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	h.writeEnvelope(w, log, "Login successful", user)
}

// HandleLoginForm authenticates an OAuth2-style password form. The username
// form field carries the email address.
//
//	@Summary		Log in with a password form
//	@Tags			Auth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string	true	"Email address"
//	@Param			password	formData	string	true	"Password"
//	@Success		200	{object}	map[string]string	"access_token, token_type"
//	@Failure		401	{object}	httpx.ErrorResponse	"bad credentials"
//	@Router			/api/auth/login-form [post].
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid form data")
		return
	}

	user, err := h.Users.Authenticate(ctx, r.FormValue("username"), r.FormValue("password"))
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		log.Error("token signing failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// HandleGoogle verifies a Google token and signs the holder in, creating the
// local account on first sight. The generated account takes the email local
// part as username and an unguessable placeholder password, so it can only
// ever be entered through Google.
//
//	@Summary		Log in with a Google token
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	authEnvelope
//	@Failure		401	{object}	httpx.ErrorResponse	"token rejected by Google"
//	@Router			/api/auth/google [post].
func (h *AuthHandler) HandleGoogle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	identity, err := h.OAuth.VerifyExternalToken(ctx, body.Token)
	if err != nil {
		writeServiceError(w, log, err)
		return
	}

	user, err := h.Users.GetByEmail(ctx, identity.Email)
	if errors.Is(err, service.ErrNotFound) {
		username, _, _ := strings.Cut(identity.Email, "@")
		user, err = h.Users.Create(ctx, identity.Email, username, identity.Name, "google-oauth:"+idx.New().String())
	}
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	h.writeEnvelope(w, log, "Google login successful", user)
}

type MeHandler struct {
	Users *service.UserService
}

// HandleGet returns the authenticated user's profile.
//
//	@Summary		Get current user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	userResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Router			/api/auth/me [get].
func (h *MeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated user")
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newUserResponse(user))
}

// HandlePut applies a partial profile update. Absent fields stay untouched.
//
//	@Summary		Update current user
//	@Tags			Auth
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	userResponse
//	@Failure		400	{object}	httpx.ErrorResponse	"duplicate email or invalid body"
//	@Router			/api/auth/me [put].
func (h *MeHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated user")
		return
	}

	var body struct {
		Email    *string `json:"email"`
		FullName *string `json:"full_name"`
		IsActive *bool   `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	updated, err := h.Users.Update(ctx, user.ID, domain.UserUpdate{
		Email:    body.Email,
		FullName: body.FullName,
		Active:   body.IsActive,
	})
	if err != nil {
		writeServiceError(w, log, err)
		return
	}
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newUserResponse(updated))
}
