package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/rryowa/weq_api/internal/util"
)

const kidHeader = "kid"

// Claims is the decoded content of a verified session token.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Audience  string
	Issuer    string
	KeyID     string
}

type jwtClaims struct {
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies session tokens. The key registry is read
// only after construction.
type TokenCodec struct {
	keys        map[string][]byte
	activeKeyID string
	method      jwt.SigningMethod
	audience    string
	issuer      string
	accessTTL   time.Duration
	now         func() time.Time
	log         *zap.SugaredLogger
}

func NewTokenCodec(cfg *util.TokenConfig, log *zap.SugaredLogger) (*TokenCodec, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing method %q", cfg.Algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("signing method %q is not HMAC", cfg.Algorithm)
	}
	if _, ok := cfg.Keys[cfg.ActiveKeyID]; !ok {
		return nil, fmt.Errorf("active key %q is not registered", cfg.ActiveKeyID)
	}

	keys := make(map[string][]byte, len(cfg.Keys))
	for kid, secret := range cfg.Keys {
		keys[kid] = secret
	}

	return &TokenCodec{
		keys:        keys,
		activeKeyID: cfg.ActiveKeyID,
		method:      method,
		audience:    cfg.Audience,
		issuer:      cfg.Issuer,
		accessTTL:   cfg.AccessTTL,
		now:         time.Now,
		log:         log,
	}, nil
}

func (tc *TokenCodec) TTL() time.Duration { return tc.accessTTL }

// Issue signs a token for subject with the configured lifetime.
func (tc *TokenCodec) Issue(subject string) (string, time.Time, error) {
	return tc.IssueWithTTL(subject, tc.accessTTL)
}

// IssueWithTTL signs with the active key and puts its id in the kid header.
func (tc *TokenCodec) IssueWithTTL(subject string, ttl time.Duration) (string, time.Time, error) {
	return tc.sign(tc.activeKeyID, subject, ttl)
}

func (tc *TokenCodec) sign(kid, subject string, ttl time.Duration) (string, time.Time, error) {
	secret, ok := tc.keys[kid]
	if !ok {
		return "", time.Time{}, fmt.Errorf("signing key %q is not registered", kid)
	}

	now := tc.now()
	expiresAt := now.Add(ttl)
	claims := &jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Audience:  jwt.ClaimStrings{tc.audience},
			Issuer:    tc.issuer,
		},
	}

	token := jwt.NewWithClaims(tc.method, claims)
	token.Header[kidHeader] = kid

	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signed string: %w", err)
	}

	return signedToken, expiresAt, nil
}

// Verify checks signature, expiry, audience and issuer in one pass. Any
// failure is reported as ErrTokenInvalid; the cause is only logged.
func (tc *TokenCodec) Verify(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{tc.method.Alg()}),
		jwt.WithLeeway(util.JWTLeeWay),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(tc.audience),
		jwt.WithIssuer(tc.issuer),
		jwt.WithTimeFunc(tc.now),
	)

	var kid string
	parsed, err := parser.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		kid, _ = t.Header[kidHeader].(string)
		return tc.keyFor(kid), nil
	})
	if err != nil {
		tc.log.Debugw("token verification failed", "kid", kid, "reason", err)
		return nil, ErrTokenInvalid
	}
	if parsed == nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || claims.Subject == "" || claims.ExpiresAt == nil {
		tc.log.Debugw("token verification failed", "kid", kid, "reason", "missing subject or expiry")
		return nil, ErrTokenInvalid
	}

	out := &Claims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
		Issuer:    claims.Issuer,
		KeyID:     kid,
	}
	if len(claims.Audience) > 0 {
		out.Audience = claims.Audience[0]
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// keyFor trusts kid only to pick a secret; unknown or missing ids fall back
// to the active key.
func (tc *TokenCodec) keyFor(kid string) []byte {
	if secret, ok := tc.keys[kid]; ok {
		return secret
	}
	return tc.keys[tc.activeKeyID]
}

func IsTokenError(err error) bool {
	return errors.Is(err, ErrTokenInvalid) || errors.Is(err, ErrTokenRevoked)
}
