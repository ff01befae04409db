package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/resource-hub/internal/apperror"
	"github.com/sakif/resource-hub/internal/auth"
	"github.com/sakif/resource-hub/internal/model"
	"github.com/sakif/resource-hub/internal/repository"
)

const minPasswordLength = 6

// Profile values given to accounts created by a master-passphrase login.
const (
	demoCollege  = "Demo University"
	demoBranch   = "General"
	demoSemester = "1"
)

// AuthService issues credentials and resolves them back to users.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	// masterPassphrase, when non-empty, is accepted as the password of any
	// email and provisions the account if it does not exist yet.
	masterPassphrase string
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// WithMasterPassphrase enables the demo login shortcut. An empty passphrase
// leaves it disabled.
func (s *AuthService) WithMasterPassphrase(passphrase string) *AuthService {
	s.masterPassphrase = passphrase
	return s
}

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Email    string
	Name     string
	Password string
	College  *string
	Branch   *string
	Semester *string
}

// TokenResult is the body of a successful login.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthResult pairs a user with a freshly issued token, so a handler can set
// a cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an account. The email is the account key: a second signup
// with the same email fails with apperror.ErrConflict.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.ValidationFailed("email", "email is not a valid address")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		Name:         name,
		College:      in.College,
		Branch:       in.Branch,
		Semester:     in.Semester,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{Err: apperror.ErrConflict, Message: "email already registered", Field: "email"}
		}
		return nil, writeFailure("creating user", err)
	}

	s.logger.Info("user created", slog.String("userID", user.ID), slog.String("email", user.Email))
	return user, nil
}

// Login checks the password and issues a token whose subject is the email.
//
// With a master passphrase configured, that passphrase logs in as any email;
// an unknown email is provisioned on the spot with a demo profile. Two
// concurrent first logins race on the unique email, and the loser treats the
// conflict as "already provisioned".
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.InvalidCredentials()
	}

	if s.isMasterPassphrase(password) {
		if err := s.provision(ctx, email, password); err != nil {
			return nil, err
		}
		return s.issue(email)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, apperror.StoreUnavailable("looking up user", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Debug("password verify failed", slog.String("email", email), slog.Any("error", err))
		}
		return nil, apperror.InvalidCredentials()
	}

	return s.issue(email)
}

func (s *AuthService) isMasterPassphrase(password string) bool {
	if s.masterPassphrase == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.masterPassphrase)) == 1
}

func (s *AuthService) provision(ctx context.Context, email, passphrase string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return apperror.StoreUnavailable("looking up user", err)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperror.ValidationFailed("email", "email is not a valid address")
	}

	hash, err := s.passwords.Hash(passphrase)
	if err != nil {
		return err
	}
	college, branch, semester := demoCollege, demoBranch, demoSemester
	user := &model.User{
		Email:        email,
		Name:         localPart(email),
		College:      &college,
		Branch:       &branch,
		Semester:     &semester,
		PasswordHash: hash,
	}

	err = s.users.Create(ctx, user)
	switch {
	case err == nil:
		s.logger.Info("user provisioned by master passphrase", slog.String("email", email))
		return nil
	case errors.Is(err, apperror.ErrConflict):
		return nil
	default:
		return writeFailure("provisioning user", err)
	}
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func (s *AuthService) issue(subject string) (*TokenResult, error) {
	token, err := s.tokens.Generate(subject)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token: %w", err)
	}
	return &TokenResult{AccessToken: token, TokenType: "bearer"}, nil
}

// Profile resolves a token to the user's public profile.
func (s *AuthService) Profile(ctx context.Context, token string) (*model.UserProfile, error) {
	email, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return s.ProfileBySubject(ctx, email)
}

// ProfileBySubject is Profile for callers that already validated the token,
// such as handlers behind auth.RequireAuth.
func (s *AuthService) ProfileBySubject(ctx context.Context, email string) (*model.UserProfile, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, apperror.StoreUnavailable("looking up user", err)
	}
	profile := user.Profile()
	return &profile, nil
}

// LoginGitHub signs in a GitHub identity, creating the account on first
// use. Accounts created this way have no password hash, so password login
// never succeeds for them.
func (s *AuthService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	email := gh.AccountEmail()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.StoreUnavailable("looking up user", err)
		}
		name := strings.TrimSpace(gh.Name)
		if name == "" {
			name = gh.Login
		}
		user = &model.User{Email: email, Name: name}
		if err := s.users.Create(ctx, user); err != nil {
			if !errors.Is(err, apperror.ErrConflict) {
				return nil, writeFailure("creating user", err)
			}
			if user, err = s.users.GetByEmail(ctx, email); err != nil {
				return nil, apperror.StoreUnavailable("looking up user", err)
			}
		} else {
			s.logger.Info("user created via GitHub",
				slog.String("userID", user.ID),
				slog.String("login", gh.Login),
			)
		}
	}

	token, err := s.tokens.Generate(user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for %s: %w", user.Email, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// ValidateToken returns the email a token was issued to.
func (s *AuthService) ValidateToken(token string) (string, error) {
	return s.tokens.Validate(token)
}
