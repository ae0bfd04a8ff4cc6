package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/storage"
)

const (
	minPasswordLen = 8
	minNameLen     = 2
	maxNameLen     = 100
)

// IssuedToken is what a successful login or registration hands back.
type IssuedToken struct {
	AccessToken string
	ExpiresAt   time.Time
	ExpiresIn   int64
}

type AuthService struct {
	storage    storage.Storage
	revocation storage.RevokedTokenRepository
	hasher     *PasswordHasher
	tokens     *TokenCodec
	limiter    *RateLimiter
	notifier   *SecurityNotifier
	log        *zap.SugaredLogger
}

// NewAuthService wires the auth core. revocation may be nil, in which case
// the revoked-token repository of st is used.
func NewAuthService(
	st storage.Storage,
	revocation storage.RevokedTokenRepository,
	hasher *PasswordHasher,
	tokens *TokenCodec,
	limiter *RateLimiter,
	notifier *SecurityNotifier,
	log *zap.SugaredLogger,
) *AuthService {
	if revocation == nil {
		revocation = st
	}
	return &AuthService{
		storage:    st,
		revocation: revocation,
		hasher:     hasher,
		tokens:     tokens,
		limiter:    limiter,
		notifier:   notifier,
		log:        log,
	}
}

func (s *AuthService) Tokens() *TokenCodec { return s.tokens }

// Authenticate looks the identifier up as a username, then as an email.
// Unknown identifiers still cost one hash verification.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*models.User, bool, error) {
	user, err := s.findUser(ctx, identifier)
	if errors.Is(err, storage.ErrUserNotFound) {
		s.hasher.DummyVerify(password)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, false, nil
	}
	return user, true, nil
}

// Register stores a new user. The caller is expected to have checked that
// email is free; a race is still reported as ErrDuplicateEmail.
func (s *AuthService) Register(ctx context.Context, username, email string, name *string, password string) (*models.User, error) {
	if err := ValidateRegistration(email, password, name); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.storage.RegisterUser(ctx, models.User{
		Username:     username,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	})
	if errors.Is(err, storage.ErrUserExists) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.log.Infow("user registered", "user_id", user.ID)
	return user, nil
}

// RegisterAndIssue is the HTTP registration flow: username equals email and
// the new user is logged in immediately.
func (s *AuthService) RegisterAndIssue(ctx context.Context, req models.RegisterRequest) (*models.User, *IssuedToken, error) {
	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)

	if _, err := s.storage.GetUserByEmail(ctx, email); err == nil {
		return nil, nil, ErrDuplicateEmail
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}

	user, err := s.Register(ctx, email, email, &name, req.Password)
	if err != nil {
		return nil, nil, err
	}

	issued, err := s.issue(user.Username)
	if err != nil {
		return nil, nil, err
	}
	return user, issued, nil
}

// Login admits the attempt through the limiter before touching the password.
// A denied attempt is not counted; a successful one clears the key. The
// lockout webhook fires once per lockout, not per denied request.
func (s *AuthService) Login(ctx context.Context, clientKey, username, password string) (*IssuedToken, error) {
	allowed, lockedOut := s.limiter.Attempt(clientKey)
	if !allowed {
		s.log.Warnw("login rate limited", "client", clientKey)
		if lockedOut && s.notifier != nil {
			s.notifier.NotifyLockout(ctx, clientKey, username)
		}
		return nil, ErrRateLimited
	}

	user, ok, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	issued, err := s.issue(user.Username)
	if err != nil {
		return nil, err
	}

	s.limiter.Reset(clientKey)
	return issued, nil
}

// ResolveCurrentUser returns the token subject once the token has verified
// and is not revoked.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}

	revoked, err := s.revocation.IsRevoked(ctx, token)
	if err != nil {
		return "", fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		s.log.Debugw("revoked token presented", "subject", claims.Subject)
		return "", ErrTokenRevoked
	}

	return claims.Subject, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return err
	}

	if err := s.revocation.Revoke(ctx, token, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.log.Infow("token revoked", "subject", claims.Subject)
	return nil
}

func (s *AuthService) Profile(ctx context.Context, subject string) (*models.User, error) {
	user, err := s.findUser(ctx, subject)
	if errors.Is(err, storage.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) findUser(ctx context.Context, identifier string) (*models.User, error) {
	user, err := s.storage.GetUserByUsername(ctx, identifier)
	if errors.Is(err, storage.ErrUserNotFound) {
		return s.storage.GetUserByEmail(ctx, identifier)
	}
	return user, err
}

func (s *AuthService) issue(subject string) (*IssuedToken, error) {
	token, expiresAt, err := s.tokens.Issue(subject)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &IssuedToken{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// ValidateRegistration checks the rules the request schema cannot express.
func ValidateRegistration(email, password string, name *string) error {
	at := strings.Index(email, "@")
	if at <= 0 || !strings.Contains(email[at+1:], ".") || strings.HasSuffix(email, ".") {
		return fmt.Errorf("%w: email is not valid", ErrValidation)
	}

	if utf8.RuneCountInString(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	var hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return fmt.Errorf("%w: password must contain an uppercase letter", ErrValidation)
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain a digit", ErrValidation)
	}

	if name != nil {
		n := utf8.RuneCountInString(strings.TrimSpace(*name))
		if n < minNameLen || n > maxNameLen {
			return fmt.Errorf("%w: name must be %d to %d characters", ErrValidation, minNameLen, maxNameLen)
		}
	}
	return nil
}
