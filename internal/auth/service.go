package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/oggyb/galatea/internal/app"
	"github.com/oggyb/galatea/internal/db"
	svcErr "github.com/oggyb/galatea/internal/errors"
	"github.com/oggyb/galatea/internal/repository"
)

const minPasswordLength = 8

// CurrentUser is the identity view of the signed-in user.
type CurrentUser struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	LastLoginAt *string         `json:"last_login_at,omitempty"`
	Metadata    *db.UserProfile `json:"metadata,omitempty"`
}

// Service is the identity and session boundary: local accounts with JWT sessions.
type Service struct {
	appCtx   *app.AppContext
	tokens   *TokenIssuer
	userRepo *repository.UserRepository
}

func NewService(appCtx *app.AppContext) *Service {
	cfg := appCtx.Config.JWT
	return &Service{
		appCtx:   appCtx,
		tokens:   NewTokenIssuer(cfg.Secret, cfg.Issuer, cfg.TTL),
		userRepo: repository.NewUserRepository(appCtx.DB),
	}
}

// SignUp creates the account with its profile, preferences and stats rows,
// then starts a session.
//
// Behavior:
//   - Email must parse as an address; password needs 8+ characters.
//   - An email already registered returns Conflict.
//   - The display name defaults to the local part of the email.
func (s *Service) SignUp(ctx context.Context, email, password string) (Session, string, error) {
	s.appCtx.Logger.Debug("SignUp called")

	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, "", svcErr.InvalidArgument("a valid email is required")
	}
	if len(password) < minPasswordLength {
		return Session{}, "", svcErr.InvalidArgument("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, "", svcErr.Map(err)
	}

	user := &db.User{Email: email, PasswordHash: string(hash), Active: true}
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewUserRepository(tx).Create(ctx, user); err != nil {
			return err
		}
		return db.CreateAccountRows(tx, user.ID, strings.SplitN(email, "@", 2)[0])
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Session{}, "", svcErr.Conflict("email already registered")
		}
		s.appCtx.Logger.Error("SignUp failed", "err", err)
		return Session{}, "", svcErr.Map(err)
	}

	return s.startSession(ctx, user)
}

// SignIn checks credentials and starts a session.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, string, error) {
	s.appCtx.Logger.Debug("SignIn called")

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Session{}, "", svcErr.Unauthenticated("invalid email or password")
		}
		return Session{}, "", svcErr.Map(err)
	}
	if !user.Active {
		return Session{}, "", svcErr.Unauthenticated("account disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, "", svcErr.Unauthenticated("invalid email or password")
	}
	return s.startSession(ctx, user)
}

func (s *Service) startSession(ctx context.Context, user *db.User) (Session, string, error) {
	token, session, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return Session{}, "", svcErr.Map(err)
	}
	if err := s.userRepo.TouchLogin(ctx, user.ID, db.Now()); err != nil {
		s.appCtx.Logger.Warn("failed to record login", "user_id", user.ID, "err", err)
	}
	return session, token, nil
}

// SignOut revokes the session's token until it expires.
func (s *Service) SignOut(ctx context.Context, session Session) error {
	if err := s.appCtx.RedisCache.RevokeToken(ctx, session.TokenID, session.ExpiresAt); err != nil {
		s.appCtx.Logger.Error("SignOut failed", "user_id", session.UserID, "err", err)
		return svcErr.Map(err)
	}
	return nil
}

// Authenticate turns a bearer token into a Session.
// A Redis failure while checking revocation is logged and the token accepted.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, svcErr.Unauthenticated("missing token")
	}
	session, err := s.tokens.Parse(token)
	if err != nil {
		return Session{}, svcErr.Unauthenticated("invalid or expired token")
	}
	revoked, err := s.appCtx.RedisCache.IsRevoked(ctx, session.TokenID)
	if err != nil {
		s.appCtx.Logger.Warn("revocation check failed", "err", err)
	} else if revoked {
		return Session{}, svcErr.Unauthenticated("session signed out")
	}
	return session, nil
}

// GetCurrentUser returns the signed-in user with the profile as metadata.
func (s *Service) GetCurrentUser(ctx context.Context) (*CurrentUser, error) {
	session, ok := FromContext(ctx)
	if !ok {
		return nil, svcErr.Unauthenticated("not signed in")
	}
	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, svcErr.Unauthenticated("account no longer exists")
		}
		return nil, svcErr.Map(err)
	}

	out := &CurrentUser{ID: user.ID, Email: user.Email}
	if user.LastLoginAt != nil {
		ts := user.LastLoginAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")
		out.LastLoginAt = &ts
	}
	profile, err := s.userRepo.Profile(ctx, user.ID)
	switch {
	case err == nil:
		out.Metadata = profile
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, svcErr.Map(err)
	}
	return out, nil
}
