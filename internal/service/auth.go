package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/marense/feedline/internal/authz"
	"github.com/marense/feedline/internal/config"
	"github.com/marense/feedline/internal/model"
	"github.com/marense/feedline/internal/queue"
	"github.com/marense/feedline/internal/repository"
	"github.com/marense/feedline/internal/utils"
)

// UserStore is the account persistence port used by the auth use-cases.
// *repository.UserRepo satisfies it; tests supply in-memory fakes.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// SessionStore is the session persistence port.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	GetByID(ctx context.Context, id string) (model.Session, error)
	GetByTokenHash(ctx context.Context, hash string) (model.Session, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// EventPublisher emits domain events for downstream modules.
type EventPublisher func(ctx context.Context, ev queue.UserSignedUpEvent) error

// AuthService orchestrates signup, login, refresh rotation, logout and
// password change.
type AuthService struct {
	Cfg      config.Config
	Users    UserStore
	Sessions SessionStore
	Publish  EventPublisher
	Log      zerolog.Logger
}

func NewAuthService(cfg config.Config, users UserStore, sessions SessionStore,
	publish EventPublisher, log zerolog.Logger) *AuthService {
	if publish == nil {
		publish = func(context.Context, queue.UserSignedUpEvent) error { return nil }
	}
	return &AuthService{Cfg: cfg, Users: users, Sessions: sessions, Publish: publish, Log: log}
}

// SignupResult is returned by Signup. No session is created at signup.
type SignupResult struct {
	UserID      string
	Email       string
	DisplayName string
}

// TokenPair is returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// SessionMeta carries optional client metadata recorded on the session row.
type SessionMeta struct {
	UserAgent string
	IP        string
}

// Signup validates the credential, creates the account and publishes the
// signup event. The email is case-normalized before the uniqueness check so
// addresses differing only in case collide.
func (s *AuthService) Signup(ctx context.Context, email, password, displayName string) (SignupResult, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return SignupResult{}, ErrInvalidEmail
	}
	if err := validatePassword(password); err != nil {
		return SignupResult{}, err
	}
	if err := validateDisplayName(displayName); err != nil {
		return SignupResult{}, err
	}

	hash, err := utils.HashPassword(password, s.Cfg.BcryptCost)
	if err != nil {
		return SignupResult{}, err
	}

	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		Status:       model.StatusActive,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return SignupResult{}, ErrEmailAlreadyUsed
		}
		return SignupResult{}, err
	}

	// Publish failures must not fail the signup; downstream modules catch up.
	if err := s.Publish(ctx, queue.UserSignedUpEvent{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		SignedUpAt:  time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		s.Log.Warn().Err(err).Str("user_id", u.ID).Msg("signup event publish failed")
	}

	s.Log.Info().Str("user_id", u.ID).Msg("user signed up")
	return SignupResult{UserID: u.ID, Email: u.Email, DisplayName: u.DisplayName}, nil
}

// Login validates credentials and issues a fresh access/refresh pair with a
// new session row. Unknown email and wrong password return the same error so
// the response does not leak which one failed.
func (s *AuthService) Login(ctx context.Context, email, password string, meta SessionMeta) (TokenPair, error) {
	email = normalizeEmail(email)

	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if u.Status != model.StatusActive {
		return TokenPair{}, ErrUserDisabled
	}

	pair, err := s.issuePair(ctx, u, meta)
	if err != nil {
		return TokenPair{}, err
	}
	s.Log.Info().Str("user_id", u.ID).Msg("login")
	return pair, nil
}

// Refresh rotates a refresh token: the presented token's session is revoked
// and a brand-new session and pair are issued. A refresh token is therefore
// single-use; presenting an already-consumed one hits the revoked session
// and is logged as a replay signal.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (TokenPair, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(rawRefresh))

	sess, err := s.Sessions.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrSessionNotFound
		}
		return TokenPair{}, err
	}
	if sess.RevokedAt != nil {
		s.Log.Warn().Str("user_id", sess.UserID).Str("session_id", sess.ID).
			Msg("refresh token replay detected")
		return TokenPair{}, ErrSessionRevoked
	}
	if !time.Now().UTC().Before(sess.ExpiresAt) {
		return TokenPair{}, ErrInvalidToken
	}

	u, err := s.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, err
	}
	if u.Status != model.StatusActive {
		return TokenPair{}, ErrUserDisabled
	}

	// Revoke-then-create is deliberately not transactional: a crash between
	// the two steps leaves no usable session and the client re-logs in.
	if err := s.Sessions.Revoke(ctx, sess.ID); err != nil {
		return TokenPair{}, err
	}

	meta := SessionMeta{}
	if sess.UserAgent != nil {
		meta.UserAgent = *sess.UserAgent
	}
	if sess.IP != nil {
		meta.IP = *sess.IP
	}
	pair, err := s.issuePair(ctx, u, meta)
	if err != nil {
		return TokenPair{}, err
	}
	s.Log.Info().Str("user_id", u.ID).Str("old_session_id", sess.ID).Msg("refresh rotated")
	return pair, nil
}

// Logout revokes one session (when sessionID is given and owned by the
// caller) or every session of the account.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return s.Sessions.RevokeAllForUser(ctx, userID)
	}
	sess, err := s.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if sess.UserID != userID {
		return ErrForbidden
	}
	return s.Sessions.Revoke(ctx, sess.ID)
}

// ChangePassword verifies the current password, stores the new hash and
// revokes every session of the account so all devices must log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(newPassword, s.Cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.Users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}
	if err := s.Sessions.RevokeAllForUser(ctx, u.ID); err != nil {
		return err
	}
	s.Log.Info().Str("user_id", u.ID).Msg("password changed, all sessions revoked")
	return nil
}

// SweepExpiredSessions deletes expired session rows. Run from the background
// ticker, off the request path.
func (s *AuthService) SweepExpiredSessions(ctx context.Context) {
	n, err := s.Sessions.DeleteExpired(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("session sweep failed")
		return
	}
	if n > 0 {
		s.Log.Info().Int64("deleted", n).Msg("expired sessions swept")
	}
}

// issuePair creates a session for a new refresh token and signs an access
// token with the embedded default permissions.
func (s *AuthService) issuePair(ctx context.Context, u model.User, meta SessionMeta) (TokenPair, error) {
	refresh := utils.NewRefreshToken(s.Cfg.RefreshTTLDays)
	sess := &model.Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: utils.HashRefreshRaw(refresh.Raw),
		ExpiresAt: refresh.Exp,
	}
	if meta.UserAgent != "" {
		sess.UserAgent = &meta.UserAgent
	}
	if meta.IP != "" {
		sess.IP = &meta.IP
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		return TokenPair{}, err
	}

	access, err := utils.NewAccessToken(s.Cfg.JWTSecret, u.ID, u.Email,
		authz.DefaultPermissions, s.Cfg.AccessTTLSec)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Raw,
		ExpiresIn:    s.Cfg.AccessTTLSec,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validatePassword enforces the complexity rules: at least 8 characters with
// one uppercase letter, one lowercase letter and one digit.
func validatePassword(pw string) error {
	if len(pw) < 8 {
		return errors.Join(ErrInvalidPassword, errors.New("must be at least 8 characters long"))
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return errors.Join(ErrInvalidPassword, errors.New("must contain an uppercase letter"))
	}
	if !lower {
		return errors.Join(ErrInvalidPassword, errors.New("must contain a lowercase letter"))
	}
	if !digit {
		return errors.Join(ErrInvalidPassword, errors.New("must contain a digit"))
	}
	return nil
}

// validateDisplayName enforces the 2-100 character constraint.
func validateDisplayName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 2 || len(trimmed) > 100 {
		return ErrInvalidDisplayName
	}
	return nil
}
