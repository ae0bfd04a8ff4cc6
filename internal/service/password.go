package service

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// MaxPasswordBytes is bcrypt's input limit. Longer passwords are cut
	// silently, both when hashing and when verifying.
	MaxPasswordBytes = 72

	pbkdf2Prefix     = "$pbkdf2-sha256$"
	pbkdf2Iterations = 600_000
	pbkdf2SaltLen    = 16
	pbkdf2KeyLen     = 32

	selfTestPassword = "self-test-Passw0rd"
	dummyPassword    = "dummy-Passw0rd-for-timing"
)

type HashScheme int

const (
	SchemeBcrypt HashScheme = iota
	SchemePBKDF2
)

func (s HashScheme) String() string {
	switch s {
	case SchemeBcrypt:
		return "bcrypt"
	case SchemePBKDF2:
		return "pbkdf2-sha256"
	default:
		return "unknown"
	}
}

// PasswordHasher hashes with one scheme for the lifetime of the process.
type PasswordHasher struct {
	scheme     HashScheme
	cost       int
	iterations int
	dummyHash  string
}

// NewPasswordHasher prefers bcrypt and falls back to PBKDF2-SHA256 when the
// bcrypt self-test fails. It fails only if the chosen scheme cannot produce
// the timing dummy hash.
func NewPasswordHasher(cost int, log *zap.SugaredLogger) (*PasswordHasher, error) {
	h := newPasswordHasher(SchemeBcrypt, cost, pbkdf2Iterations)
	if err := h.selfTest(); err != nil {
		log.Warnw("bcrypt self-test failed, falling back to pbkdf2-sha256", "error", err)
		h = newPasswordHasher(SchemePBKDF2, cost, pbkdf2Iterations)
	}
	if err := h.initDummy(); err != nil {
		return nil, err
	}
	log.Infow("password hasher ready", "scheme", h.scheme.String())
	return h, nil
}

func newPasswordHasher(scheme HashScheme, cost, iterations int) *PasswordHasher {
	return &PasswordHasher{scheme: scheme, cost: cost, iterations: iterations}
}

func (h *PasswordHasher) Scheme() HashScheme { return h.scheme }

func (h *PasswordHasher) Hash(password string) (string, error) {
	pw := []byte(TruncatePassword(password))

	switch h.scheme {
	case SchemeBcrypt:
		b, err := bcrypt.GenerateFromPassword(pw, h.cost)
		if err != nil {
			return "", fmt.Errorf("bcrypt hash: %w", err)
		}
		return string(b), nil
	default:
		salt := make([]byte, pbkdf2SaltLen)
		if _, err := rand.Read(salt); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		return h.encodePBKDF2(pw, salt, h.iterations), nil
	}
}

func (h *PasswordHasher) Verify(password, hash string) bool {
	pw := []byte(TruncatePassword(password))

	switch h.scheme {
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(hash), pw) == nil
	default:
		salt, iterations, digest, ok := decodePBKDF2(hash)
		if !ok {
			return false
		}
		got := pbkdf2.Key(pw, salt, iterations, len(digest), sha256.New)
		return subtle.ConstantTimeCompare(got, digest) == 1
	}
}

// DummyVerify spends the same work as a real verification. Used when the
// identifier is unknown so both failure paths cost the same.
func (h *PasswordHasher) DummyVerify(password string) {
	_ = h.Verify(password, h.dummyHash)
}

func (h *PasswordHasher) selfTest() error {
	hash, err := h.Hash(selfTestPassword)
	if err != nil {
		return err
	}
	if !h.Verify(selfTestPassword, hash) {
		return fmt.Errorf("%s self-test: verify failed", h.scheme)
	}
	return nil
}

func (h *PasswordHasher) initDummy() error {
	hash, err := h.Hash(dummyPassword)
	if err != nil {
		return fmt.Errorf("%s dummy hash: %w", h.scheme, err)
	}
	h.dummyHash = hash
	return nil
}

func (h *PasswordHasher) encodePBKDF2(pw, salt []byte, iterations int) string {
	digest := pbkdf2.Key(pw, salt, iterations, pbkdf2KeyLen, sha256.New)
	return pbkdf2Prefix + strconv.Itoa(iterations) + "$" +
		base64.RawStdEncoding.EncodeToString(salt) + "$" +
		base64.RawStdEncoding.EncodeToString(digest)
}

func decodePBKDF2(hash string) (salt []byte, iterations int, digest []byte, ok bool) {
	rest, found := strings.CutPrefix(hash, pbkdf2Prefix)
	if !found {
		return nil, 0, nil, false
	}
	parts := strings.Split(rest, "$")
	if len(parts) != 3 {
		return nil, 0, nil, false
	}
	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return nil, 0, nil, false
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, 0, nil, false
	}
	digest, err = base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(digest) == 0 {
		return nil, 0, nil, false
	}
	return salt, iterations, digest, true
}

// TruncatePassword cuts the UTF-8 encoding to MaxPasswordBytes and drops a
// trailing partial rune.
func TruncatePassword(password string) string {
	if len(password) <= MaxPasswordBytes {
		return password
	}
	b := []byte(password[:MaxPasswordBytes])
	for len(b) > 0 {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size > 1 {
			break
		}
		b = b[:len(b)-1]
	}
	return string(b)
}
