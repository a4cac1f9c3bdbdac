// Package service contains the backend's application services for accounts
// and the course catalog.
package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/and161185/learnkeeper/internal/crypto"
	"github.com/and161185/learnkeeper/internal/errs"
	"github.com/and161185/learnkeeper/internal/limiter"
	"github.com/and161185/learnkeeper/internal/model"
	"github.com/and161185/learnkeeper/internal/repository"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

// ResetTTL is how long a password-reset token stays valid.
const ResetTTL = time.Hour

// AuthService defines account and session operations.
type AuthService interface {
	// SignUp creates an account and signs it in.
	SignUp(ctx context.Context, email, password, name string) (model.AuthResult, error)
	// SignIn applies rate limiting by (email, ip) and authenticates the user.
	SignIn(ctx context.Context, email, password, ip string) (model.AuthResult, error)
	// VerifyToken checks signature and expiry and returns the session it proves.
	VerifyToken(token string) (model.Session, error)
	// GetUser returns the profile of userID.
	GetUser(ctx context.Context, userID uuid.UUID) (model.User, error)
	// UpdateUser changes name and/or password.
	UpdateUser(ctx context.Context, userID uuid.UUID, upd model.UserUpdate) (model.User, error)
	// RequestPasswordReset issues a one-time reset token. Unknown emails are
	// not reported.
	RequestPasswordReset(ctx context.Context, email string) error
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	log       *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter, log *zap.Logger) *AuthServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, log: log, now: time.Now}
}

func validateEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errs.Validation("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", errs.Validation("invalid email address")
	}
	return email, nil
}

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLen {
		return errs.Validation("password must be at least 6 characters")
	}
	return nil
}

// SignUp creates a student account with an argon2id password hash.
func (s *AuthServiceImpl) SignUp(ctx context.Context, email, password, name string) (model.AuthResult, error) {
	email, err := validateEmail(email)
	if err != nil {
		return model.AuthResult{}, err
	}
	if err := validatePassword(password); err != nil {
		return model.AuthResult{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.AuthResult{}, errs.Validation("name is required")
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return model.AuthResult{}, err
	}
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return model.AuthResult{}, err
	}
	a := &model.Account{
		User:    model.User{ID: uid.String(), Email: email, Name: name, Role: model.RoleStudent},
		PwdHash: hash,
	}
	if err := s.users.Create(ctx, a); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			return model.AuthResult{}, errs.WithMessage(errs.ErrAlreadyExists, "user already registered")
		}
		return model.AuthResult{}, err
	}
	return s.issue(a.User)
}

// SignIn authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) SignIn(ctx context.Context, email, password, ip string) (model.AuthResult, error) {
	key := limiter.NormalizeEmail(email)
	ipHash := limiter.HashIP(ip)
	badCreds := errs.WithMessage(errs.ErrUnauthorized, "invalid login credentials")

	allowed, _, err := s.lim.Allow(ctx, key, ipHash)
	if err != nil {
		return model.AuthResult{}, err
	}
	if !allowed {
		return model.AuthResult{}, errs.WithMessage(errs.ErrRateLimited, "too many sign-in attempts, try again later")
	}

	a, err := s.users.GetByEmail(ctx, key)
	ok := false
	if err == nil {
		ok, err = pkgcrypto.VerifyPassword(password, a.PwdHash)
	}
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		s.log.Warn("sign-in lookup failed", zap.Error(err))
	}
	if !ok {
		if blocked, _, ferr := s.lim.Failure(ctx, key, ipHash); ferr == nil && blocked {
			return model.AuthResult{}, errs.WithMessage(errs.ErrRateLimited, "too many sign-in attempts, try again later")
		}
		// unknown user and wrong password look the same
		return model.AuthResult{}, badCreds
	}

	_ = s.lim.Success(ctx, key, ipHash)
	return s.issue(a.User)
}

func (s *AuthServiceImpl) issue(u model.User) (model.AuthResult, error) {
	tok, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.AuthResult{}, err
	}
	return model.AuthResult{
		User:    u,
		Session: model.Session{UserID: u.ID, Token: tok, ExpiresAt: exp},
	}, nil
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp.UTC().Truncate(time.Second), err
}

// VerifyToken verifies an HS256 token and returns the session it carries.
func (s *AuthServiceImpl) VerifyToken(token string) (model.Session, error) {
	invalid := errs.WithMessage(errs.ErrUnauthorized, "invalid or expired session")

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	}, jwt.WithLeeway(30*time.Second), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return model.Session{}, invalid
	}
	if _, err := uuid.FromString(claims.Subject); err != nil {
		return model.Session{}, invalid
	}
	return model.Session{UserID: claims.Subject, Token: token, ExpiresAt: claims.ExpiresAt.UTC()}, nil
}

// GetUser returns the profile without credentials.
func (s *AuthServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (model.User, error) {
	a, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, errs.WithMessage(errs.ErrNotFound, "user not found")
		}
		return model.User{}, err
	}
	return a.User, nil
}

// UpdateUser applies the non-nil fields of upd.
func (s *AuthServiceImpl) UpdateUser(ctx context.Context, userID uuid.UUID, upd model.UserUpdate) (model.User, error) {
	if upd.Name == nil && upd.Password == nil {
		return model.User{}, errs.Validation("nothing to update")
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return model.User{}, errs.Validation("name is required")
	}
	if upd.Password != nil {
		if err := validatePassword(*upd.Password); err != nil {
			return model.User{}, err
		}
		hash, err := pkgcrypto.HashPassword(*upd.Password)
		if err != nil {
			return model.User{}, err
		}
		if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
			return model.User{}, err
		}
	}
	if upd.Name != nil {
		u, err := s.users.UpdateName(ctx, userID, strings.TrimSpace(*upd.Name))
		if err != nil {
			return model.User{}, err
		}
		return *u, nil
	}
	return s.GetUser(ctx, userID)
}

// RequestPasswordReset stores the digest of a fresh one-time token; the
// plaintext token is never persisted.
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := validateEmail(email)
	if err != nil {
		return err
	}
	a, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, digest, err := pkgcrypto.NewResetToken()
	if err != nil {
		return err
	}
	uid, err := uuid.FromString(a.User.ID)
	if err != nil {
		return err
	}
	if err := s.users.CreatePasswordReset(ctx, uid, digest, s.now().Add(ResetTTL)); err != nil {
		return err
	}
	s.log.Info("password reset requested", zap.String("user_id", a.User.ID))
	return nil
}
