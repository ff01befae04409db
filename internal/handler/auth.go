package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/auth"
	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/service"
)

const stateCookie = "oauth_state"

// Authenticator is the slice of service.AuthService the handlers need.
type Authenticator interface {
	Signup(ctx context.Context, in service.SignupInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*service.TokenResult, error)
	ProfileBySubject(ctx context.Context, email string) (*model.UserProfile, error)
	LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*service.AuthResult, error)
}

// OAuthProvider is implemented by *auth.GitHubProvider.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves signup, password login, the profile endpoint and the
// optional GitHub sign-in flow.
//
//   - HandleSignup         → POST /api/signup
//   - HandleToken          → POST /api/token
//   - HandleProfile        → GET  /api/profile (RequireAuth)
//   - HandleGitHubLogin    → GET  /auth/github/login
//   - HandleGitHubCallback → GET  /auth/github/callback
//   - HandleLogout         → POST /auth/logout
type AuthHandler struct {
	auth        Authenticator
	github      OAuthProvider
	cookieTTL   time.Duration
	frontendURL string
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil, in which case the
// GitHub routes are simply not registered.
func NewAuthHandler(a Authenticator, github OAuthProvider, cookieTTL time.Duration, frontendURL string, logger *slog.Logger) *AuthHandler {
	if frontendURL == "" {
		frontendURL = "/"
	}
	return &AuthHandler{
		auth:        a,
		github:      github,
		cookieTTL:   cookieTTL,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// GitHubEnabled reports whether a GitHub provider was configured.
func (h *AuthHandler) GitHubEnabled() bool {
	return h.github != nil
}

type signupRequest struct {
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Password string  `json:"password"`
	College  *string `json:"college"`
	Branch   *string `json:"branch"`
	Semester *string `json:"semester"`
}

type signupResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// HandleSignup creates an account.
//
// HTTP: POST /api/signup
// Body: {"email", "name", "password", "college"?, "branch"?, "semester"?}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.auth.Signup(r.Context(), service.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		College:  req.College,
		Branch:   req.Branch,
		Semester: req.Semester,
	})
	if err != nil {
		logFailure(h.logger, "signup failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		Message: "User created successfully",
		Email:   user.Email,
	})
}

type tokenRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleToken exchanges credentials for an access token.
//
// HTTP: POST /api/token
// Body: form fields username and password (OAuth2 password grant style), or
// JSON {"username" | "email", "password"}.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var email, password string

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req tokenRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, err)
			return
		}
		email, password = req.Username, req.Password
		if email == "" {
			email = req.Email
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			writeError(w, apperror.ValidationFailed("body", "invalid form body"))
			return
		}
		email, password = r.PostForm.Get("username"), r.PostForm.Get("password")
	}

	token, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		logFailure(h.logger, "login failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, token)
}

// HandleProfile returns the caller's profile.
//
// HTTP: GET /api/profile
// Auth: required; RequireAuth has already put the subject in the context.
func (h *AuthHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		writeError(w, apperror.InvalidToken("valid authentication required"))
		return
	}

	profile, err := h.auth.ProfileBySubject(r.Context(), subject)
	if err != nil {
		logFailure(h.logger, "profile lookup failed", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// A random state value goes into a short-lived HttpOnly cookie and into the
// authorization URL; the callback only proceeds if both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the sign-in:
//  1. check the state against the cookie
//  2. exchange the code for the GitHub profile
//  3. find or create the User and issue a token
//  4. store the token in the token cookie and redirect to the frontend
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || query.Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.frontendURL+"?auth=denied", http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.InvalidCredentials())
		return
	}

	result, err := h.auth.LoginGitHub(r.Context(), ghUser)
	if err != nil {
		logFailure(h.logger, "auth callback: sign-in failed", err)
		writeError(w, err)
		return
	}

	h.logger.Info("user authenticated via GitHub",
		slog.String("userID", result.User.ID),
		slog.String("login", ghUser.Login),
	)

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.frontendURL, http.StatusSeeOther)
}

// HandleLogout deletes the token cookie. Bearer tokens held by API clients
// stay valid until they expire.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}
