package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/assettrack/internal/auth"
	"github.com/odyssey-erp/assettrack/internal/rbac"
	"github.com/odyssey-erp/assettrack/internal/shared"
	_ "github.com/odyssey-erp/assettrack/testing"
)

type stubRepo struct {
	mu     sync.Mutex
	users  map[string]auth.User
	resets map[string]resetEntry
}

type resetEntry struct {
	email     string
	expiresAt time.Time
}

func newStubRepo() *stubRepo {
	return &stubRepo{users: map[string]auth.User{}, resets: map[string]resetEntry{}}
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return auth.User{}, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) Create(ctx context.Context, user auth.User) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return auth.User{}, shared.ErrDuplicate
	}
	user.ID = uuid.New()
	s.users[user.Email] = user
	return user, nil
}

func (s *stubRepo) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, u := range s.users {
		if u.ID == userID {
			s.resets[tokenHash] = resetEntry{email: email, expiresAt: expiresAt}
			return nil
		}
	}
	return shared.ErrNotFound
}

func (s *stubRepo) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.resets[tokenHash]
	if !ok || !entry.expiresAt.After(now) {
		return shared.ErrNotFound
	}
	u := s.users[entry.email]
	u.PasswordHash = passwordHash
	s.users[entry.email] = u
	delete(s.resets, tokenHash)
	return nil
}

func (s *stubRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, entry := range s.resets {
		if !entry.expiresAt.After(now) {
			delete(s.resets, hash)
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) expireAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, entry := range s.resets {
		entry.expiresAt = time.Now().Add(-time.Minute)
		s.resets[hash] = entry
	}
}

type captureMailer struct {
	mu   sync.Mutex
	sent []auth.ResetMail
}

func (c *captureMailer) SendPasswordReset(ctx context.Context, mail auth.ResetMail) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, mail)
	return nil
}

func (c *captureMailer) last(t *testing.T) auth.ResetMail {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent)
	return c.sent[len(c.sent)-1]
}

type fixture struct {
	router http.Handler
	repo   *stubRepo
	mailer *captureMailer
	tokens *auth.TokenIssuer
	mr     *miniredis.Miniredis
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	revocations := auth.NewRedisRevocations(redisClient)
	tokens, err := auth.NewTokenIssuer("test-secret", time.Hour, revocations)
	require.NoError(t, err)

	repo := newStubRepo()
	mailer := &captureMailer{}
	svc := auth.NewService(repo, tokens, revocations, mailer, auth.Config{
		FrontendURL: "http://frontend.local/",
		HashCost:    bcrypt.MinCost,
	}, nil)

	gate := rbac.Middleware{Service: rbac.NewService(), Verifier: tokens}
	handler := auth.NewHandler(nil, svc, gate)

	r := chi.NewRouter()
	r.Use(gate.Authenticate)
	r.Route("/api/auth", handler.MountRoutes)
	return fixture{router: r, repo: repo, mailer: mailer, tokens: tokens, mr: mr}
}

func (f fixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(rbac.LegacyTokenHeader, token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeToken(t *testing.T, rr *httptest.ResponseRecorder) auth.Token {
	t.Helper()
	var tok auth.Token
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&tok))
	require.NotEmpty(t, tok.Value)
	return tok
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	rr := f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "Ana@Example.com", "password": "correct horse",
	}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	tok := decodeToken(t, rr)

	principal, err := f.tokens.Verify(context.Background(), tok.Value)
	require.NoError(t, err)
	require.Equal(t, rbac.RoleUser, principal.Role)

	rr = f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@example.com", "password": "correct horse",
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	decodeToken(t, rr)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	body := map[string]string{"name": "Ana", "email": "ana@example.com", "password": "password1"}
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/auth/register", body, "").Code)

	rr := f.do(t, http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegisterRejectsAdminSelfSignup(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Eve", "email": "eve@example.com", "password": "password1", "role": "Admin",
	}, "")
	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "not-an-email", "password": "short",
	}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "email")
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "correctpass",
	}, "").Code)

	rr := f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@example.com", "password": "wrongpass",
	}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "invalid_credentials")

	rr = f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "wrongpass",
	}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "password1",
	}, "")
	tok := decodeToken(t, rr)

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/auth/logout", nil, "").Code)
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/auth/logout", nil, tok.Value).Code)

	_, err := f.tokens.Verify(context.Background(), tok.Value)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/auth/logout", nil, tok.Value).Code)

	// The denylist entry lives only as long as the token.
	require.Len(t, f.mr.Keys(), 1)
	require.Greater(t, f.mr.TTL(f.mr.Keys()[0]), time.Duration(0))
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "oldpassword",
	}, "").Code)

	rr := f.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ana@example.com"}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	mail := f.mailer.last(t)
	require.Equal(t, "ana@example.com", mail.To)
	require.True(t, strings.HasPrefix(mail.URL, "http://frontend.local/reset-password/"), mail.URL)
	token := strings.TrimPrefix(mail.URL, "http://frontend.local/reset-password/")
	require.Len(t, token, 64)

	rr = f.do(t, http.MethodPost, "/api/auth/reset-password/"+token, map[string]string{"password": "newpassword"}, "")
	require.Equal(t, http.StatusOK, rr.Code)

	// Single use.
	rr = f.do(t, http.MethodPost, "/api/auth/reset-password/"+token, map[string]string{"password": "newpassword"}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "invalid_reset_token")

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@example.com", "password": "oldpassword",
	}, "").Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "ana@example.com", "password": "newpassword",
	}, "").Code)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "oldpassword",
	}, "").Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ana@example.com"}, "").Code)
	token := strings.TrimPrefix(f.mailer.last(t).URL, "http://frontend.local/reset-password/")

	f.repo.expireAll()
	rr := f.do(t, http.MethodPost, "/api/auth/reset-password/"+token, map[string]string{"password": "newpassword"}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newFixture(t)
	rr := f.do(t, http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": "ghost@example.com"}, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPasswordLengthBounds(t *testing.T) {
	f := newFixture(t)
	tooLong := strings.Repeat("a", 80)
	// 40 runes pass the tag but encode to 80 bytes.
	wide := strings.Repeat("ü", 40)

	for _, pw := range []string{tooLong, wide} {
		rr := f.do(t, http.MethodPost, "/api/auth/register", map[string]string{
			"name": "Ana", "email": "ana@example.com", "password": pw,
		}, "")
		require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	}

	rr := f.do(t, http.MethodPost, "/api/auth/reset-password/sometoken", map[string]string{"password": tooLong}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	rr = f.do(t, http.MethodPost, "/api/auth/reset-password/sometoken", map[string]string{"password": wide}, "")
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	_, err := auth.HashPassword(wide, bcrypt.MinCost)
	require.ErrorIs(t, err, shared.ErrValidation)
	hash, err := auth.HashPassword(strings.Repeat("a", auth.MaxPasswordBytes), bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
}
