// Package identity establishes, resolves and ends portal sessions against the
// hosted identity service, with a built-in demo directory for development.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/authprovider"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/changefeed"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/sessionstore"
)

var (
	// ErrInvalidCredentials never says whether the email or the password was
	// wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrServiceUnavailable = errors.New("identity service unavailable")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidRole        = errors.New("invalid role")
	ErrRegistrationFailed = errors.New("registration rejected")

	errUnconfigured = errors.New("identity service not configured")
)

// RemoteIdentity is the hosted identity service. *authprovider.Client
// implements it.
type RemoteIdentity interface {
	SignInWithPassword(ctx context.Context, email, password string) (*authprovider.Grant, error)
	SignUp(ctx context.Context, email, password, name, role string) (*authprovider.Grant, error)
	GetUser(ctx context.Context, accessToken string) (*authprovider.RemoteUser, error)
	SignOut(ctx context.Context, accessToken string) error
	FetchProfile(ctx context.Context, accessToken, userID string) (*authprovider.Profile, error)
}

type Config struct {
	// Demo enables the demo directory fallback.
	Demo       bool
	SessionTTL time.Duration
	// Timeout bounds each remote call.
	Timeout time.Duration
	// Events, when set, receives a TopicSessions event for every ended
	// session so open streams can close.
	Events changefeed.Publisher
}

// Login is an established session with its bearer token.
type Login struct {
	Session *auth.Session `json:"session"`
	Token   string        `json:"token"`
}

// Registration is the outcome of Register. Login is nil when the identity
// service requires email confirmation before the first sign-in.
type Registration struct {
	Login                *Login `json:"login,omitempty"`
	ConfirmationRequired bool   `json:"confirmation_required"`
}

type Service struct {
	remote   RemoteIdentity
	store    sessionstore.Store
	issuer   *auth.TokenIssuer
	accounts *DemoDirectory
	cfg      Config
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService wires the resolver. remote may be nil when no identity service
// is configured; accounts may be nil when demo mode is off.
func NewService(remote RemoteIdentity, store sessionstore.Store, issuer *auth.TokenIssuer, accounts *DemoDirectory, cfg Config, logger zerolog.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Service{
		remote:   remote,
		store:    store,
		issuer:   issuer,
		accounts: accounts,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// Authenticate makes a single attempt against the identity service and, in
// demo mode only, falls back to the demo directory.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Login, error) {
	remoteErr := errUnconfigured
	if s.remote != nil {
		user, grant, err := s.remoteSignIn(ctx, email, password)
		if err == nil {
			return s.establish(ctx, user, auth.SourceRemote, grant)
		}
		remoteErr = err
		s.logger.Debug().Err(err).Msg("remote sign-in failed")
	}

	if s.cfg.Demo {
		if user, ok := s.accounts.Match(email, password); ok {
			s.logger.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("demo account login")
			return s.establish(ctx, user, auth.SourceDemo, nil)
		}
	}

	switch {
	case errors.Is(remoteErr, authprovider.ErrRejected):
		return nil, ErrInvalidCredentials
	case errors.Is(remoteErr, errUnconfigured) && s.cfg.Demo:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, remoteErr)
	}
}

func (s *Service) remoteSignIn(ctx context.Context, email, password string) (auth.User, *authprovider.Grant, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	grant, err := s.remote.SignInWithPassword(ctx, email, password)
	if err != nil {
		return auth.User{}, nil, err
	}

	name, role := grant.User.Name, grant.User.Role
	profile, err := s.remote.FetchProfile(ctx, grant.AccessToken, grant.User.ID)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("user_id", grant.User.ID).Msg("profile lookup failed, using account metadata")
	case profile != nil:
		if profile.Name != "" {
			name = profile.Name
		}
		if profile.Role != "" {
			role = profile.Role
		}
	}

	r, err := auth.ParseRole(role)
	if err != nil {
		return auth.User{}, nil, fmt.Errorf("%w: %v", authprovider.ErrMalformed, err)
	}
	if name == "" {
		name = grant.User.Email
	}
	return auth.User{ID: grant.User.ID, Email: grant.User.Email, Name: name, Role: r}, grant, nil
}

// Register creates an account. Without an identity service, demo mode
// creates a local session instead. Local sessions are not demo accounts and
// see live data.
func (s *Service) Register(ctx context.Context, email, password, name string, role auth.Role) (*Registration, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	if s.remote == nil {
		if !s.cfg.Demo {
			return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, errUnconfigured)
		}
		if s.accounts.Has(email) {
			return nil, ErrEmailTaken
		}
		user := auth.User{ID: uuid.NewString(), Email: email, Name: name, Role: role}
		login, err := s.establish(ctx, user, auth.SourceLocal, nil)
		if err != nil {
			return nil, err
		}
		return &Registration{Login: login}, nil
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	grant, err := s.remote.SignUp(rctx, email, password, name, string(role))
	switch {
	case errors.Is(err, authprovider.ErrRejected):
		if strings.Contains(strings.ToLower(err.Error()), "already") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrRegistrationFailed, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	if grant.AccessToken == "" {
		return &Registration{ConfirmationRequired: true}, nil
	}
	user := auth.User{ID: grant.User.ID, Email: grant.User.Email, Name: name, Role: role}
	login, err := s.establish(ctx, user, auth.SourceRemote, grant)
	if err != nil {
		return nil, err
	}
	return &Registration{Login: login}, nil
}

func (s *Service) establish(ctx context.Context, user auth.User, source auth.SessionSource, grant *authprovider.Grant) (*Login, error) {
	now := s.now().UTC()
	sess := &auth.Session{
		ID:        uuid.NewString(),
		User:      user,
		Source:    source,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if grant != nil {
		sess.AccessToken = grant.AccessToken
		sess.RefreshToken = grant.RefreshToken
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: save session: %v", ErrServiceUnavailable, err)
	}
	token, err := s.issuer.Issue(sess)
	if err != nil {
		_ = s.store.Delete(ctx, sess.ID)
		return nil, err
	}
	s.logger.Info().Str("session_id", sess.ID).Str("user_id", user.ID).Str("source", string(source)).Msg("session established")
	return &Login{Session: sess, Token: token}, nil
}

// ResolveSession loads a stored session. Remote sessions are re-validated
// with the identity service: an explicit rejection ends the session, an
// unreachable service keeps it.
func (s *Service) ResolveSession(ctx context.Context, sessionID string) (*auth.Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Expired(s.now()) {
		return nil, nil
	}
	if s.remote == nil || sess.Source != auth.SourceRemote || sess.AccessToken == "" {
		return sess, nil
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	if _, err := s.remote.GetUser(rctx, sess.AccessToken); err != nil {
		if errors.Is(err, authprovider.ErrRejected) {
			s.logger.Info().Str("session_id", sess.ID).Msg("remote session revoked")
			_ = s.store.Delete(ctx, sess.ID)
			return nil, nil
		}
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("session re-validation skipped")
	}
	return sess, nil
}

// EndSession signs out remotely on a best-effort basis and removes the
// stored session.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess != nil && s.remote != nil && sess.Source == auth.SourceRemote && sess.AccessToken != "" {
		rctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		if err := s.remote.SignOut(rctx, sess.AccessToken); err != nil {
			s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("remote sign-out failed")
		}
		cancel()
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	if s.cfg.Events != nil {
		_ = s.cfg.Events.Publish(ctx, changefeed.Event{
			Type:      changefeed.EventSessionEnded,
			Topic:     changefeed.TopicSessions,
			RecordID:  sessionID,
			Timestamp: s.now().UTC(),
		})
	}
	return nil
}
