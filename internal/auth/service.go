package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/conduit-storefront/internal/repo"
	"github.com/angelmondragon/conduit-storefront/internal/users"
	pkgAuth "github.com/angelmondragon/conduit-storefront/pkg/auth"
	"github.com/angelmondragon/conduit-storefront/pkg/auth/session"
	"github.com/angelmondragon/conduit-storefront/pkg/config"
	"github.com/angelmondragon/conduit-storefront/pkg/db"
	"github.com/angelmondragon/conduit-storefront/pkg/db/models"
	"github.com/angelmondragon/conduit-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/conduit-storefront/pkg/errors"
	"github.com/angelmondragon/conduit-storefront/pkg/logger"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox"
	"github.com/angelmondragon/conduit-storefront/pkg/outbox/payloads"
	"github.com/angelmondragon/conduit-storefront/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	magicLinkTokenBytes       = 32

	methodPassword  = "password"
	methodMagicLink = "magic_link"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Logout(ctx context.Context, principal *pkgAuth.Principal) error
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
	SendMagicLink(ctx context.Context, req MagicLinkRequest) error
	CompleteMagicLink(ctx context.Context, req MagicLinkCompleteRequest) (*TokenResponse, error)
}

// Sessions issues, rotates and revokes refresh sessions keyed by the access jti.
type Sessions interface {
	Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error)
	Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Users          users.Repository
	Sessions       Sessions
	MagicLinks     MagicLinks
	Tx             db.TxRunner
	Outbox         outbox.Emitter
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	AuthConfig     config.AuthConfig
	Logger         *logger.Logger
}

type service struct {
	users       users.Repository
	sessions    Sessions
	magicLinks  MagicLinks
	tx          db.TxRunner
	outbox      outbox.Emitter
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	authCfg     config.AuthConfig
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.MagicLinks == nil {
		return nil, fmt.Errorf("magic link store is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		users:       params.Users,
		sessions:    params.Sessions,
		magicLinks:  params.MagicLinks,
		tx:          params.Tx,
		outbox:      params.Outbox,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		authCfg:     params.AuthConfig,
		logg:        logg,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	role, err := enums.ParseUserRole(req.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	if err := security.ValidatePassword(req.Password, s.passwordCfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.createUser(ctx, users.CreateUserDTO{Email: email, PasswordHash: &hash, Role: role}, methodPassword)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return users.FromModel(user), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

func (s *service) Logout(ctx context.Context, principal *pkgAuth.Principal) error {
	if principal == nil || strings.TrimSpace(principal.SessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.sessions.Revoke(ctx, principal.SessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	accessID, refreshToken, err := s.sessions.Rotate(ctx, claims.UserID, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	// the role is re-read so a changed account is reflected in the new token
	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		_ = s.sessions.Revoke(ctx, accessID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if !user.IsActive {
		_ = s.sessions.Revoke(ctx, accessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, s.now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtCfg.AccessTokenTTL().Seconds()),
		User:         users.FromModel(user),
	}, nil
}

// SendMagicLink stores a hashed single-use token and hands the link to the
// mailer through the outbox. It succeeds whether or not the account exists.
func (s *service) SendMagicLink(ctx context.Context, req MagicLinkRequest) error {
	email := normalizeEmail(req.Email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	token, err := security.GenerateToken(magicLinkTokenBytes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate token")
	}
	link, err := buildMagicLink(s.authCfg.MagicLinkBaseURL, email, token, req.Redirect)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build magic link")
	}

	ttl := s.magicLinkTTL()
	if err := s.magicLinks.Put(ctx, security.HashToken(token), email, ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store magic link")
	}

	now := s.now()
	err = s.outbox.Emit(ctx, outbox.DomainEvent{
		EventType:     enums.EventMagicLinkRequested,
		AggregateType: enums.AggregateUser,
		AggregateID:   uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)),
		OccurredAt:    now,
		Data: payloads.MagicLinkRequestedEvent{
			Email:     email,
			Link:      link,
			ExpiresAt: now.Add(ttl),
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue magic link")
	}
	s.logg.Info(s.logg.WithField(ctx, "email_hash", security.HashToken(email)), "magic link requested")
	return nil
}

func (s *service) CompleteMagicLink(ctx context.Context, req MagicLinkCompleteRequest) (*TokenResponse, error) {
	email := normalizeEmail(req.Email)
	token := strings.TrimSpace(req.Token)
	if email == "" || token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and token are required")
	}

	stored, err := s.magicLinks.Consume(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, ErrMagicLinkInvalid) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, err.Error())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume magic link")
	}
	if stored != email {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, ErrMagicLinkInvalid.Error())
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		user, err = s.createUser(ctx, users.CreateUserDTO{Email: email, Role: enums.UserRoleClient}, methodMagicLink)
		if errors.Is(err, repo.ErrDuplicate) {
			// a concurrent completion created the account first
			user, err = s.users.FindByEmail(ctx, email)
		}
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve magic link account")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return s.issue(ctx, user)
}

func (s *service) createUser(ctx context.Context, dto users.CreateUserDTO, method string) (*models.User, error) {
	var user *models.User
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		created, err := s.users.Create(ctx, dto)
		if err != nil {
			return err
		}
		user = created
		return s.outbox.Emit(ctx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{UserID: &created.ID, Role: string(created.Role)},
			OccurredAt:    s.now(),
			Data: payloads.UserRegisteredEvent{
				UserID: created.ID,
				Email:  created.Email,
				Role:   created.Role,
				Method: method,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := normalizeEmail(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, input)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	// magic-link-only accounts cannot sign in with a password
	if user.PasswordHash == nil || *user.PasswordHash == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	valid, err := security.VerifyPassword(password, *user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) issue(ctx context.Context, user *models.User) (*TokenResponse, error) {
	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update last login")
	}
	user.LastLoginAt = &now

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.sessions.Generate(ctx, user.ID, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id": user.ID.String(),
		"role":    string(user.Role),
	}), "user signed in")
	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtCfg.AccessTokenTTL().Seconds()),
		User:         users.FromModel(user),
	}, nil
}

func (s *service) magicLinkTTL() time.Duration {
	if s.authCfg.MagicLinkTTL > 0 {
		return s.authCfg.MagicLinkTTL
	}
	return 15 * time.Minute
}

// buildMagicLink appends the token, email and an optional in-app redirect to
// base. Only relative redirect paths are kept.
func buildMagicLink(base, email, token, redirect string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("magic link base url %q must be absolute", base)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("email", email)
	if r := strings.TrimSpace(redirect); strings.HasPrefix(r, "/") && !strings.HasPrefix(r, "//") {
		q.Set("redirect", r)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
