package identity

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/tenantauth/internal/apperr"
	"github.com/daap14/tenantauth/internal/audit"
	"github.com/daap14/tenantauth/internal/session"
	"github.com/daap14/tenantauth/internal/token"
)

var (
	// ErrInvalidCredentials is the single login failure. It never says
	// whether the email, the password or the tenant was wrong.
	ErrInvalidCredentials = apperr.New(apperr.KindAuthentication, "INVALID_CREDENTIALS", "Invalid email or password")
	ErrSessionRevoked     = apperr.New(apperr.KindAuthentication, "SESSION_REVOKED", "Session is no longer active")
	ErrTenantRequired     = apperr.Validation("tenantId or tenantSlug is required")
	ErrInvalidSlug        = apperr.Validation("tenantSlug must be 3-63 lowercase letters, digits or hyphens")
	ErrPasswordUnchanged  = apperr.Validation("New password must differ from the current password")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

// PasswordHasher is implemented by *credential.Hasher.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encoded string) bool
	DummyVerify(ctx context.Context, password string)
	NeedsRehash(encoded string) bool
}

// LoginObserver counts login outcomes. metrics.Collectors satisfies it.
type LoginObserver interface {
	LoginAttempt(outcome string)
}

// Service orchestrates registration, login and session lifecycle. It is the
// only component that mutates credentials or sessions.
type Service struct {
	repo     Repository
	sessions session.Store
	hasher   PasswordHasher
	tokens   *token.Codec
	audit    audit.Recorder
	observer LoginObserver

	allowGlobalEmailLogin bool
	now                   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithGlobalEmailLogin allows login by email alone when the address maps to
// exactly one active tenant.
func WithGlobalEmailLogin(enabled bool) Option {
	return func(s *Service) { s.allowGlobalEmailLogin = enabled }
}

func WithLoginObserver(o LoginObserver) Option {
	return func(s *Service) { s.observer = o }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new identity Service.
func NewService(repo Repository, sessions session.Store, hasher PasswordHasher, tokens *token.Codec, rec audit.Recorder, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		audit:    rec,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a tenant together with its owner, then opens a session.
// The tenant and user are committed atomically; session and audit writes
// happen after commit.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	slug := strings.ToLower(strings.TrimSpace(in.TenantSlug))
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	t := &Tenant{
		Name:   strings.TrimSpace(in.TenantName),
		Slug:   slug,
		Status: StatusActive,
		Plan:   "free",
	}
	u := &User{
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         RoleOwner,
		Status:       StatusActive,
	}

	if err := s.repo.CreateTenantWithOwner(ctx, t, u); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			return nil, err
		}
		return nil, apperr.Internal("failed to create tenant", err)
	}

	result, err := s.openSession(ctx, u, t, in.IPAddress, in.UserAgent)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID:     t.ID,
		UserID:       &u.ID,
		Action:       audit.ActionUserRegistered,
		ResourceType: "user",
		ResourceID:   u.ID.String(),
		Details:      map[string]any{"tenantSlug": t.Slug},
	})
	slog.Info("tenant registered", "tenantId", t.ID, "userId", u.ID)

	return result, nil
}

// Login verifies credentials and opens a session.
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)

	u, t, err := s.resolveLoginUser(ctx, in, email)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.hasher.DummyVerify(ctx, in.Password)
			s.observe("invalid_credentials")
		}
		return nil, err
	}

	if !s.hasher.Verify(ctx, in.Password, u.PasswordHash) {
		s.observe("invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	if u.Status != StatusActive || t.Status != StatusActive {
		s.observe("inactive")
		return nil, ErrInvalidCredentials
	}

	if s.hasher.NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u, in.Password)
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, t.ID, u.ID, now); err != nil {
		slog.Warn("failed to update last login", "tenantId", t.ID, "userId", u.ID, "error", err)
	} else {
		u.LastLoginAt = &now
	}

	result, err := s.openSession(ctx, u, t, in.IPAddress, in.UserAgent)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Event{
		TenantID:     t.ID,
		UserID:       &u.ID,
		Action:       audit.ActionUserLogin,
		ResourceType: "session",
		ResourceID:   result.SessionID.String(),
	})
	s.observe("success")

	return result, nil
}

func (s *Service) resolveLoginUser(ctx context.Context, in LoginInput, email string) (*User, *Tenant, error) {
	var (
		t   *Tenant
		err error
	)
	switch {
	case in.TenantID != nil:
		t, err = s.repo.GetTenantByID(ctx, *in.TenantID)
	case in.TenantSlug != "":
		t, err = s.repo.GetTenantBySlug(ctx, strings.ToLower(strings.TrimSpace(in.TenantSlug)))
	case s.allowGlobalEmailLogin:
		return s.resolveGlobal(ctx, email)
	default:
		return nil, nil, ErrTenantRequired
	}
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, apperr.Internal("failed to load tenant", err)
	}

	u, err := s.repo.FindUserByEmail(ctx, t.ID, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, apperr.Internal("failed to load user", err)
	}
	return u, t, nil
}

// resolveGlobal accepts an email only when it identifies a single user.
func (s *Service) resolveGlobal(ctx context.Context, email string) (*User, *Tenant, error) {
	users, err := s.repo.FindUsersByEmail(ctx, email, 2)
	if err != nil {
		return nil, nil, apperr.Internal("failed to look up user", err)
	}
	if len(users) != 1 {
		return nil, nil, ErrInvalidCredentials
	}

	u := &users[0]
	t, err := s.repo.GetTenantByID(ctx, u.TenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, apperr.Internal("failed to load tenant", err)
	}
	return u, t, nil
}

// rehash upgrades a legacy hash. Passwords that no longer meet the policy
// keep their old hash until the user changes them.
func (s *Service) rehash(ctx context.Context, u *User, password string) {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		slog.Debug("skipping rehash", "userId", u.ID, "error", err)
		return
	}
	if err := s.repo.UpdatePasswordHash(ctx, u.TenantID, u.ID, hash); err != nil {
		slog.Warn("failed to store upgraded password hash", "userId", u.ID, "error", err)
		return
	}
	u.PasswordHash = hash
}

func (s *Service) openSession(ctx context.Context, u *User, t *Tenant, ip, ua *string) (*AuthResult, error) {
	sessionID := uuid.New()
	p := token.Principal{
		UserID:    u.ID.String(),
		TenantID:  t.ID.String(),
		Role:      u.Role,
		SessionID: sessionID.String(),
	}

	access, err := s.tokens.IssueAccess(p)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(p)
	if err != nil {
		return nil, err
	}

	sess := &session.Session{
		ID:               sessionID,
		TenantID:         t.ID,
		UserID:           u.ID,
		AccessTokenHash:  session.HashToken(access),
		RefreshTokenHash: session.HashToken(refresh),
		IPAddress:        ip,
		UserAgent:        ua,
		ExpiresAt:        s.now().Add(s.tokens.RefreshTTL()),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, apperr.Unavailable("failed to create session", err)
	}

	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
		SessionID:    sessionID,
		User:         u,
		Tenant:       t,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.tokens.Verify(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, err
	}

	p, err := principalFromClaims(claims)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.GetByID(ctx, p.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, apperr.Internal("failed to load session", err)
	}
	if sess.UserID != p.UserID || sess.TenantID != p.TenantID || sess.RefreshTokenHash != session.HashToken(refreshToken) {
		return nil, token.ErrTokenInvalid
	}

	u, err := s.activeUser(ctx, p.TenantID, p.UserID)
	if err != nil {
		return nil, err
	}

	access, err := s.tokens.IssueAccess(token.Principal{
		UserID:    u.ID.String(),
		TenantID:  u.TenantID.String(),
		Role:      u.Role,
		SessionID: sess.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken: access,
		ExpiresIn:   int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// Authenticate resolves an access token to a Principal. The session named
// in the token must still be active, so logout takes effect immediately.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*Principal, error) {
	claims, err := s.tokens.Verify(accessToken, token.TypeAccess)
	if err != nil {
		return nil, err
	}

	p, err := principalFromClaims(claims)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.GetByID(ctx, p.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, apperr.Internal("failed to load session", err)
	}
	if sess.UserID != p.UserID || sess.TenantID != p.TenantID {
		return nil, token.ErrTokenInvalid
	}

	return p, nil
}

// Logout revokes a session owned by the caller. Unknown, expired and
// already revoked sessions succeed without effect.
func (s *Service) Logout(ctx context.Context, sessionID, tenantID, userID uuid.UUID) error {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil
		}
		return apperr.Internal("failed to load session", err)
	}
	if sess.TenantID != tenantID || sess.UserID != userID {
		slog.Warn("logout for foreign session ignored", "tenantId", tenantID, "userId", userID, "sessionId", sessionID)
		return nil
	}

	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return apperr.Internal("failed to revoke session", err)
	}

	s.audit.Record(ctx, audit.Event{
		TenantID:     tenantID,
		UserID:       &userID,
		Action:       audit.ActionUserLogout,
		ResourceType: "session",
		ResourceID:   sessionID.String(),
	})
	return nil
}

// Me returns the caller's user and tenant.
func (s *Service) Me(ctx context.Context, tenantID, userID uuid.UUID) (*User, *Tenant, error) {
	u, err := s.activeUser(ctx, tenantID, userID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.repo.GetTenantByID(ctx, tenantID)
	if err != nil {
		return nil, nil, apperr.Internal("failed to load tenant", err)
	}
	return u, t, nil
}

// Tenant returns a tenant by ID.
func (s *Service) Tenant(ctx context.Context, tenantID uuid.UUID) (*Tenant, error) {
	t, err := s.repo.GetTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, err
		}
		return nil, apperr.Internal("failed to load tenant", err)
	}
	return t, nil
}

// ChangePassword replaces the caller's password and revokes all of their
// sessions, including the current one.
func (s *Service) ChangePassword(ctx context.Context, tenantID, userID uuid.UUID, current, next string) error {
	u, err := s.activeUser(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(ctx, current, u.PasswordHash) {
		return ErrInvalidCredentials
	}
	if current == next {
		return ErrPasswordUnchanged
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, tenantID, userID, hash); err != nil {
		return apperr.Internal("failed to update password", err)
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, tenantID, userID)
	if err != nil {
		return apperr.Internal("failed to revoke sessions", err)
	}

	s.audit.Record(ctx, audit.Event{
		TenantID:     tenantID,
		UserID:       &userID,
		Action:       audit.ActionPasswordChanged,
		ResourceType: "user",
		ResourceID:   userID.String(),
		Details:      map[string]any{"revokedSessions": revoked},
	})
	return nil
}

// ListSessions returns the caller's active sessions.
func (s *Service) ListSessions(ctx context.Context, tenantID, userID uuid.UUID) ([]session.Session, error) {
	sessions, err := s.sessions.ListActiveForUser(ctx, tenantID, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list sessions", err)
	}
	return sessions, nil
}

func (s *Service) activeUser(ctx context.Context, tenantID, userID uuid.UUID) (*User, error) {
	u, err := s.repo.GetUserByID(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.Authentication("User no longer exists")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	if u.Status != StatusActive {
		return nil, apperr.Authentication("User is not active")
	}
	return u, nil
}

func (s *Service) observe(outcome string) {
	if s.observer != nil {
		s.observer.LoginAttempt(outcome)
	}
}

func principalFromClaims(c *token.Claims) (*Principal, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return nil, token.ErrTokenInvalid
	}
	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return nil, token.ErrTokenInvalid
	}
	sessionID, err := uuid.Parse(c.SessionID)
	if err != nil {
		return nil, token.ErrTokenInvalid
	}
	return &Principal{
		UserID:    userID,
		TenantID:  tenantID,
		SessionID: sessionID,
		Role:      c.Role,
	}, nil
}
