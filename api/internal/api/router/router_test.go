package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irgordon/locker/api/internal/api/handlers"
	"github.com/irgordon/locker/api/internal/api/middleware"
	"github.com/irgordon/locker/api/internal/api/router"
	"github.com/irgordon/locker/api/internal/core/domain"
	"github.com/irgordon/locker/api/internal/core/services"
	"github.com/irgordon/locker/api/internal/db/memory"
	"github.com/irgordon/locker/api/internal/infrastructure/crypto"
	"github.com/irgordon/locker/api/internal/telemetry"
)

type testServer struct {
	*httptest.Server
	handler http.Handler
	users   *memory.UserRepository
	hub     *telemetry.Hub
	healthy atomic.Bool
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	atRest, err := crypto.NewAtRestCipher(strings.Repeat("ab", 32))
	require.NoError(t, err)

	users := memory.NewUserRepository()
	hub := telemetry.NewHub()
	authService := services.NewAuthService(users, services.NewTokenService(strings.Repeat("s", 32)), logger)
	entryService := services.NewEntryService(memory.NewEntryRepository(), atRest, hub, logger)

	ts := &testServer{users: users, hub: hub}
	ts.healthy.Store(true)
	mux := router.NewRouter(router.RouterConfig{
		AllowedOrigins: []string{"http://localhost:5173"},
		AuthHandler:    handlers.NewAuthHandler(authService, logger, false),
		EntryHandler:   handlers.NewEntryHandler(entryService, logger),
		FeedHandler:    handlers.NewEntryFeedHandler(hub, []string{"http://localhost:5173"}, logger),
		HealthHandler: handlers.NewHealthHandler(func(context.Context) error {
			if !ts.healthy.Load() {
				return errors.New("db down")
			}
			return nil
		}, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(authService, users, logger),
		Logger:         logger,
	})
	ts.handler = mux
	ts.Server = httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (ts *testServer) login(t *testing.T, email string) domain.Session {
	t.Helper()
	creds := map[string]string{"email": email, "password": "correct-horse"}

	resp, _ := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := ts.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session domain.Session
	require.NoError(t, json.Unmarshal(body, &session))
	return session
}

func TestPingAndHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))

	resp, _ = ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ts.healthy.Store(false)
	resp, _ = ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	creds := map[string]string{"email": "Alice@Example.com", "password": "correct-horse"}

	resp, body := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotContains(t, string(body), "correct-horse")
	assert.NotContains(t, string(body), "passwordHash")

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", creds)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "not-an-email", "password": "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", creds)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session domain.Session
	require.NoError(t, json.Unmarshal(body, &session))
	assert.NotEqual(t, uuid.Nil, session.UserID)
	assert.NotEmpty(t, session.AccessToken)

	var cookieNames []string
	for _, c := range resp.Cookies() {
		cookieNames = append(cookieNames, c.Name)
		assert.True(t, c.HttpOnly)
	}
	assert.ElementsMatch(t, []string{middleware.AccessTokenCookie, "locker_refresh_token"}, cookieNames)

	resp, body = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": session.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rotated domain.Session
	require.NoError(t, json.Unmarshal(body, &rotated))
	assert.Equal(t, session.UserID, rotated.UserID)

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refreshToken": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEntries_RequireAuthentication(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api/v1/entries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), `"message"`)

	resp, _ = ts.do(t, http.MethodGet, "/api/v1/entries", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEntries_CRUD(t *testing.T) {
	ts := newTestServer(t)
	session := ts.login(t, "bob@example.com")
	token := session.AccessToken

	blob, err := crypto.Seal("hunter2", session.UserID.String())
	require.NoError(t, err)

	// Create
	resp, body := ts.do(t, http.MethodPost, "/api/v1/entries", token, map[string]string{
		"title": "GitHub", "username": "bob", "encryptedPassword": blob, "notes": "2fa on",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created domain.Entry
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, session.UserID, created.UserID)
	assert.Equal(t, blob, created.EncryptedPassword)
	assert.Equal(t, "2fa on", created.Notes)

	// List
	resp, body = ts.do(t, http.MethodGet, "/api/v1/entries", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Entry
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)

	password, err := crypto.Open(list[0].EncryptedPassword, session.UserID.String())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	// Update
	newBlob, err := crypto.Seal("n3w", session.UserID.String())
	require.NoError(t, err)
	resp, body = ts.do(t, http.MethodPut, "/api/v1/entries/"+created.ID.String(), token, map[string]string{
		"title": "GitHub", "username": "bob2", "encryptedPassword": newBlob,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	// Get
	resp, body = ts.do(t, http.MethodGet, "/api/v1/entries/"+created.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got domain.Entry
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "bob2", got.Username)
	assert.Empty(t, got.Notes)

	// Delete
	resp, body = ts.do(t, http.MethodDelete, "/api/v1/entries/"+created.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(body))

	resp, _ = ts.do(t, http.MethodGet, "/api/v1/entries/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEntries_Validation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "carol@example.com").AccessToken

	tests := []struct {
		name string
		body any
	}{
		{"missing title", map[string]string{"username": "u", "encryptedPassword": "AAAA"}},
		{"plaintext password", map[string]string{"title": "t", "username": "u", "encryptedPassword": "hunter2"}},
		{"short blob", map[string]string{"title": "t", "username": "u", "encryptedPassword": "AAAA"}},
		{"unknown field", map[string]string{"title": "t", "username": "u", "encryptedPassword": "AAAA", "password": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(t, http.MethodPost, "/api/v1/entries", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
		})
	}

	resp, _ := ts.do(t, http.MethodGet, "/api/v1/entries/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEntries_BodyLimit(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "erin@example.com").AccessToken

	huge, err := json.Marshal(map[string]string{"title": "t", "username": "u", "encryptedPassword": strings.Repeat("A", 2<<20)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", bytes.NewReader(huge))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestEntries_IsolatedBetweenUsers(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice@example.com")
	mallory := ts.login(t, "mallory@example.com")

	blob, err := crypto.Seal("secret", alice.UserID.String())
	require.NoError(t, err)
	resp, body := ts.do(t, http.MethodPost, "/api/v1/entries", alice.AccessToken, map[string]string{
		"title": "Bank", "username": "alice", "encryptedPassword": blob,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created domain.Entry
	require.NoError(t, json.Unmarshal(body, &created))

	path := "/api/v1/entries/" + created.ID.String()
	resp, _ = ts.do(t, http.MethodGet, path, mallory.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodDelete, path, mallory.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = ts.do(t, http.MethodGet, "/api/v1/entries", mallory.AccessToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestEntries_SuspendedAccount(t *testing.T) {
	ts := newTestServer(t)
	session := ts.login(t, "dan@example.com")

	require.NoError(t, ts.users.SetActive(session.UserID, false))

	resp, _ := ts.do(t, http.MethodGet, "/api/v1/entries", session.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEntryFeed(t *testing.T) {
	ts := newTestServer(t)
	session := ts.login(t, "frank@example.com")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/entries"
	header := http.Header{"Authorization": []string{"Bearer " + session.AccessToken}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()
	resp.Body.Close()

	blob, err := crypto.Seal("pw", session.UserID.String())
	require.NoError(t, err)

	// The subscription is registered after the upgrade completes
	require.Eventually(t, func() bool {
		return ts.hub.Subscribers(session.UserID) == 1
	}, 5*time.Second, 10*time.Millisecond)

	resp, _ = ts.do(t, http.MethodPost, "/api/v1/entries", session.AccessToken, map[string]string{
		"title": "feed", "username": "u", "encryptedPassword": blob,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var event domain.EntryEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&event))

	assert.Equal(t, domain.EventEntryCreated, event.Type)
	assert.NotEqual(t, uuid.Nil, event.EntryID)
}

func TestEntryFeed_RejectsForeignOrigin(t *testing.T) {
	ts := newTestServer(t)
	session := ts.login(t, "gina@example.com")

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/entries"
	header := http.Header{
		"Authorization": []string{"Bearer " + session.AccessToken},
		"Origin":        []string{"https://evil.example"},
	}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
