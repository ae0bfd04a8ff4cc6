package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rryowa/weq_api/internal/controller"
	"github.com/rryowa/weq_api/internal/models"
	"github.com/rryowa/weq_api/internal/service"
	"github.com/rryowa/weq_api/internal/storage/memory"
	"github.com/rryowa/weq_api/internal/util"
)

const testPassword = "Secretpass1"

type testServer struct {
	handler http.Handler
	auth    *service.AuthService
}

func testConfig() *util.Config {
	return &util.Config{
		App:    &util.AppConfig{Name: "WEQ API", Env: util.EnvDev, Version: "test"},
		Server: &util.ServerConfig{ServerAddr: "127.0.0.1:0"},
		Token: &util.TokenConfig{
			Keys:        map[string][]byte{"key-1": []byte("test-secret")},
			ActiveKeyID: "key-1",
			Algorithm:   "HS256",
			Audience:    "weq-api",
			Issuer:      "weq-auth-service",
			AccessTTL:   30 * time.Minute,
		},
		LoginLimiter: &util.RateLimiterConfig{Limit: 5, Window: time.Minute},
		Throttle:     &util.ThrottleConfig{Enabled: false},
		Password:     &util.PasswordConfig{BcryptCost: bcrypt.MinCost},
	}
}

func newTestServer(t *testing.T, cfg *util.Config) *testServer {
	t.Helper()
	logger := zap.NewNop().Sugar()

	store := memory.NewStorage(logger)
	codec, err := service.NewTokenCodec(cfg.Token, logger)
	require.NoError(t, err)
	hasher, err := service.NewPasswordHasher(cfg.Password.BcryptCost, logger)
	require.NoError(t, err)

	authService := service.NewAuthService(
		store, nil,
		hasher,
		codec,
		service.NewRateLimiter(cfg.LoginLimiter),
		service.NewSecurityNotifier(logger, ""),
		logger,
	)
	health := service.NewHealthService(logger)
	health.AddCheck("storage", store)

	ctrl := controller.NewController(logger, authService, service.NewNoteService(store), health, service.NewInfoService(cfg.App))
	a, err := NewAPI(ctrl, authService, logger, cfg)
	require.NoError(t, err)

	return &testServer{handler: a.Handler(), auth: authService}
}

type call struct {
	method string
	path   string
	body   interface{}
	token  string
	ip     string
}

func (s *testServer) do(t *testing.T, c call) (*httptest.ResponseRecorder, models.Envelope) {
	t.Helper()

	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.ip != "" {
		req.Header.Set(models.MwForwardedFor, c.ip)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env models.Envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func dataMap(t *testing.T, env models.Envelope) map[string]interface{} {
	t.Helper()
	m, ok := env.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", env.Data)
	return m
}

func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	rec, env := s.do(t, call{method: http.MethodPost, path: "/auth/register", body: models.RegisterRequest{
		Email: email, Password: testPassword, Name: "Alice",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return dataMap(t, env)["access_token"].(string)
}

func TestAPI_RegisterLoginLogout(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.register(t, "alice@example.com")

	rec, env := s.do(t, call{method: http.MethodPost, path: "/auth/token", body: models.TokenRequest{
		Username: "alice@example.com", Password: testPassword,
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, env.Success)
	data := dataMap(t, env)
	assert.Equal(t, "bearer", data["token_type"])
	assert.EqualValues(t, 1800, data["expires_in"])
	token := data["access_token"].(string)

	rec, env = s.do(t, call{method: http.MethodGet, path: "/protected", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@example.com", dataMap(t, env)["user"])
	assert.Equal(t, "Hello, alice@example.com", dataMap(t, env)["message"])

	rec, _ = s.do(t, call{method: http.MethodPost, path: "/auth/logout", token: token})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = s.do(t, call{method: http.MethodGet, path: "/protected", token: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", env.Error)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	// logging out twice is rejected the same way
	rec, _ = s.do(t, call{method: http.MethodPost, path: "/auth/logout", token: token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPI_MissingOrMalformedBearer(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec, env := s.do(t, call{method: http.MethodGet, path: "/protected"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", env.Error)

	rec, env = s.do(t, call{method: http.MethodGet, path: "/protected", token: "not.a.jwt"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Could not validate credentials", env.Error)
}

func TestAPI_LoginRateLimit(t *testing.T) {
	s := newTestServer(t, testConfig())
	s.register(t, "bob@example.com")

	var codes []int
	for i := 0; i < 6; i++ {
		rec, _ := s.do(t, call{
			method: http.MethodPost, path: "/auth/token", ip: "203.0.113.7",
			body: models.TokenRequest{Username: "bob@example.com", Password: "Wrongpass1"},
		})
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{401, 401, 401, 401, 401, 429}, codes)

	// the correct password is still refused while the key is locked out
	rec, _ := s.do(t, call{
		method: http.MethodPost, path: "/auth/token", ip: "203.0.113.7",
		body: models.TokenRequest{Username: "bob@example.com", Password: testPassword},
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other clients are unaffected
	rec, _ = s.do(t, call{
		method: http.MethodPost, path: "/auth/token", ip: "198.51.100.1",
		body: models.TokenRequest{Username: "bob@example.com", Password: testPassword},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_BoomIsSanitized(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec, env := s.do(t, call{method: http.MethodGet, path: "/boom"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Internal server error", env.Error)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, rec.Header().Get(models.MwRequestIDHeader))

	body := strings.ToLower(rec.Body.String())
	assert.NotContains(t, body, "traceback")
	assert.NotContains(t, body, "boom")
	assert.NotContains(t, body, "goroutine")

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestAPI_BoomAbsentInProd(t *testing.T) {
	cfg := testConfig()
	cfg.App.Env = util.EnvProd
	s := newTestServer(t, cfg)

	rec, _ := s.do(t, call{method: http.MethodGet, path: "/boom"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_RequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health/ping", nil)
	req.Header.Set(models.MwRequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(models.MwRequestIDHeader))
	var env models.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "req-123", env.RequestID)
	assert.Equal(t, "pong", env.Data)
}

func TestAPI_RegisterValidation(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing name", body: map[string]string{"email": "a@example.com", "password": testPassword}},
		{name: "short password", body: models.RegisterRequest{Email: "a@example.com", Password: "Ab1", Name: "Al"}},
		{name: "no uppercase", body: models.RegisterRequest{Email: "a@example.com", Password: "secretpass1", Name: "Al"}},
		{name: "no digit", body: models.RegisterRequest{Email: "a@example.com", Password: "Secretpass", Name: "Al"}},
		{name: "bad email", body: models.RegisterRequest{Email: "not-an-email", Password: testPassword, Name: "Al"}},
		{name: "short name", body: models.RegisterRequest{Email: "a@example.com", Password: testPassword, Name: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, call{method: http.MethodPost, path: "/auth/register", body: tt.body})
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestAPI_RegisterDuplicateAndProfile(t *testing.T) {
	s := newTestServer(t, testConfig())
	token := s.register(t, "carol@example.com")

	rec, env := s.do(t, call{method: http.MethodPost, path: "/auth/register", body: models.RegisterRequest{
		Email: "carol@example.com", Password: testPassword, Name: "Carol",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already registered", env.Error)

	rec, env = s.do(t, call{method: http.MethodGet, path: "/auth/profile", token: token})
	require.Equal(t, http.StatusOK, rec.Code)
	profile := dataMap(t, env)
	assert.Equal(t, "carol@example.com", profile["email"])
	assert.Equal(t, "Alice", profile["name"])

	ghost, _, err := s.auth.Tokens().Issue("ghost@example.com")
	require.NoError(t, err)
	rec, env = s.do(t, call{method: http.MethodGet, path: "/auth/profile", token: ghost})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", env.Error)
}

func TestAPI_Notes(t *testing.T) {
	s := newTestServer(t, testConfig())

	for _, title := range []string{"first", "second", "third"} {
		rec, env := s.do(t, call{method: http.MethodPost, path: "/notes", body: models.NoteCreateRequest{Title: title, Content: "c"}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, title, dataMap(t, env)["title"])
	}

	rec, env := s.do(t, call{method: http.MethodGet, path: "/notes?skip=1&limit=1"})
	require.Equal(t, http.StatusOK, rec.Code)
	page, ok := env.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0].(map[string]interface{})["title"])

	rec, env = s.do(t, call{method: http.MethodGet, path: "/notes/3"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "third", dataMap(t, env)["title"])

	rec, _ = s.do(t, call{method: http.MethodGet, path: "/notes/99"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, path := range []string{"/notes?limit=0", "/notes?limit=1001", "/notes?skip=-1"} {
		rec, _ = s.do(t, call{method: http.MethodGet, path: path})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, path)
	}

	rec, _ = s.do(t, call{method: http.MethodPost, path: "/notes", body: models.NoteCreateRequest{Title: ""}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestAPI_NotesDefaultPageSize(t *testing.T) {
	s := newTestServer(t, testConfig())

	for i := 0; i < 12; i++ {
		rec, _ := s.do(t, call{method: http.MethodPost, path: "/notes", body: models.NoteCreateRequest{Title: fmt.Sprintf("n%d", i)}})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := s.do(t, call{method: http.MethodGet, path: "/notes"})
	require.Equal(t, http.StatusOK, rec.Code)
	page, ok := env.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, page, service.DefaultNotesLimit)
	assert.Equal(t, 10, service.DefaultNotesLimit)
}

func TestAPI_HealthAndServiceInfo(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec, env := s.do(t, call{method: http.MethodGet, path: "/health"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", dataMap(t, env)["status"])

	rec, env = s.do(t, call{method: http.MethodGet, path: "/health/ready"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, dataMap(t, env)["ready"])

	rec, env = s.do(t, call{method: http.MethodGet, path: "/service/info"})
	require.Equal(t, http.StatusOK, rec.Code)
	info := dataMap(t, env)
	assert.Equal(t, "WEQ API", info["name"])
	assert.Equal(t, util.EnvDev, info["environment"])

	rec, env = s.do(t, call{method: http.MethodGet, path: "/service/time"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "UTC", dataMap(t, env)["timezone"])
}
