package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/projectcamp/internal/auth"
	"github.com/2389/projectcamp/internal/config"
	"github.com/2389/projectcamp/internal/mail"
	"github.com/2389/projectcamp/internal/store"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) last(t *testing.T) mail.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no email sent")
	return f.sent[len(f.sent)-1]
}

var (
	verifyLinkRe = regexp.MustCompile(`/verify/([0-9a-f]{64})`)
	resetLinkRe  = regexp.MustCompile(`/reset-password/([0-9a-f]{64})`)
)

type testServer struct {
	srv    *Server
	store  *store.MockStore
	mailer *fakeMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{
			HTTPAddr: "127.0.0.1:0",
			BaseURL:  "https://camp.example.com",
		},
		Auth: config.AuthConfig{
			JWTSecret:        "server-test-secret-0123456789abcdef",
			TokenTTL:         time.Hour,
			PasswordResetTTL: time.Hour,
		},
	}
	ts := &testServer{store: store.NewMockStore(), mailer: &fakeMailer{}}
	srv, err := NewWithStore(cfg, ts.store, ts.mailer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	ts.srv = srv
	return ts
}

type response struct {
	StatusCode int               `json:"statusCode"`
	Data       json.RawMessage   `json:"data"`
	Message    string            `json:"message"`
	Success    bool              `json:"success"`
	Errors     map[string]string `json:"errors"`
}

func withCookie(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: auth.TokenCookieName, Value: token})
	}
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body: %s", rec.Body.String())
	return resp
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	resp := decode(t, rec)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func tokenCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.TokenCookieName {
			return c
		}
	}
	return nil
}

func (ts *testServer) register(t *testing.T, username, email, password string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var u userView
	decodeData(t, rec, &u)
	return u.ID
}

func (ts *testServer) login(t *testing.T, username, email, password string) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var lv loginView
	decodeData(t, rec, &lv)
	require.NotEmpty(t, lv.AccessToken)
	return lv.AccessToken
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterVerifyLogin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"username": "alice",
		"email":    "a@x.com",
		"password": "pw123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(resp.Data), "pw123")
	assert.NotContains(t, strings.ToLower(string(resp.Data)), "password")
	assert.NotContains(t, strings.ToLower(string(resp.Data)), "token")

	m := verifyLinkRe.FindStringSubmatch(ts.mailer.last(t).Text)
	require.Len(t, m, 2, "verification link missing from email")

	rec = ts.do(t, http.MethodGet, "/api/v1/users/verify/"+m[1], nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/v1/users/verify/"+m[1], nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "alice",
		"email":    "a@x.com",
		"password": "pw123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	decodeData(t, rec, &body)
	assert.Contains(t, body, "token")
	assert.Contains(t, body, "user")

	c := tokenCookie(rec)
	require.NotNil(t, c, "login did not set the token cookie")
	assert.Equal(t, body["token"], c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int(time.Hour.Seconds()), c.MaxAge)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/login/user", nil, withCookie(c.Value))
	require.Equal(t, http.StatusOK, rec.Code)
	var u userView
	decodeData(t, rec, &u)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.IsEmailVerified)
	assert.Equal(t, store.RoleMember, u.Role)

	rec = ts.do(t, http.MethodPost, "/api/v1/users/logout", nil, withCookie(c.Value))
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := tokenCookie(rec)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
	assert.Empty(t, cleared.Value)
}

func TestRegisterDuplicateIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com", "pw123")

	rec := ts.do(t, http.MethodPost, "/api/v1/users/register", map[string]string{
		"username": "alice2",
		"email":    "A@X.com",
		"password": "pw123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestErrorEnvelope(t *testing.T) {
	ts := newTestServer(t)

	t.Run("validation", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/users/register", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode(t, rec)
		assert.False(t, resp.Success)
		assert.Equal(t, auth.MsgInvalidInput, resp.Message)
		assert.Contains(t, resp.Errors, "username")
		assert.Contains(t, resp.Errors, "email")
		assert.Contains(t, resp.Errors, "password")
	})

	t.Run("malformed json", func(t *testing.T) {
		rec := ts.do(t, http.MethodPost, "/api/v1/users/login", "{not json")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decode(t, rec)
		assert.Equal(t, msgInvalidJSON, resp.Message)
		assert.NotNil(t, resp.Errors)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/v1/users/login/user", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.False(t, decode(t, rec).Success)
	})
}

func TestLoginFailuresAreUniform(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com", "pw123")

	wrongPassword := ts.do(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "nope",
	})
	unknownEmail := ts.do(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "ghost", "email": "ghost@x.com", "password": "pw123",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, decode(t, wrongPassword).Message, decode(t, unknownEmail).Message)
	assert.Nil(t, tokenCookie(wrongPassword))
}

func TestCookieTakesPrecedenceOverBearer(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com", "pw123")
	ts.register(t, "bob", "b@x.com", "pw456")
	aliceToken := ts.login(t, "alice", "a@x.com", "pw123")
	bobToken := ts.login(t, "bob", "b@x.com", "pw456")

	rec := ts.do(t, http.MethodGet, "/api/v1/users/login/user", nil, withCookie(aliceToken), withBearer(bobToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var u userView
	decodeData(t, rec, &u)
	assert.Equal(t, "alice", u.Username)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/login/user", nil, withBearer(bobToken))
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &u)
	assert.Equal(t, "bob", u.Username)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/login/user", nil, withCookie("garbage"), withBearer(bobToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshReadsCookieOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com", "pw123")
	token := ts.login(t, "alice", "a@x.com", "pw123")

	rec := ts.do(t, http.MethodGet, "/api/v1/users/password/refreshAccessToken", nil, withBearer(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/password/refreshAccessToken", nil, withCookie(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var data map[string]string
	decodeData(t, rec, &data)
	assert.NotEmpty(t, data["token"])
	require.NotNil(t, tokenCookie(rec))
	assert.Equal(t, data["token"], tokenCookie(rec).Value)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/password/refreshAccessToken", nil, withCookie("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPasswordChangeAndReset(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com", "pw123")
	token := ts.login(t, "alice", "a@x.com", "pw123")

	rec := ts.do(t, http.MethodPut, "/api/v1/users/password/change", map[string]string{
		"currentPassword": "wrong", "newPassword": "pw789",
	}, withCookie(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/v1/users/password/change", map[string]string{
		"newPassword": "pw789",
	}, withCookie(token))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec).Errors, "currentPassword")

	rec = ts.do(t, http.MethodPut, "/api/v1/users/password/change", map[string]string{
		"currentPassword": "pw123", "newPassword": "pw789",
	}, withCookie(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ts.login(t, "alice", "a@x.com", "pw789")

	rec = ts.do(t, http.MethodPost, "/api/v1/users/password/reset", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	m := resetLinkRe.FindStringSubmatch(ts.mailer.last(t).Text)
	require.Len(t, m, 2, "reset link missing from email")

	rec = ts.do(t, http.MethodPost, "/api/v1/users/password/reset/"+m[1], map[string]string{"newPassword": "fresh1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/v1/users/reset-password/"+m[1], map[string]string{"newPassword": "again"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "reset token must be single use")

	rec = ts.do(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "pw789",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	ts.login(t, "alice", "a@x.com", "fresh1")
}

func TestResendVerification(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com", "pw123")
	first := verifyLinkRe.FindStringSubmatch(ts.mailer.last(t).Text)
	require.Len(t, first, 2)

	rec := ts.do(t, http.MethodPost, "/api/v1/users/password/resendVerificationEmail", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := verifyLinkRe.FindStringSubmatch(ts.mailer.last(t).Text)
	require.Len(t, second, 2)
	assert.NotEqual(t, first[1], second[1])

	rec = ts.do(t, http.MethodGet, "/api/v1/users/verify/"+first[1], nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "replaced token must no longer work")

	rec = ts.do(t, http.MethodGet, "/api/v1/users/verify/"+second[1], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/users/password/resendVerificationEmail", map[string]string{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email is already verified", decode(t, rec).Message)
}

func TestProjectAccessScenario(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com", "pw-alice")
	bobID := ts.register(t, "bob", "b@x.com", "pw-bob")
	ts.register(t, "carol", "c@x.com", "pw-carol")
	alice := withCookie(ts.login(t, "alice", "a@x.com", "pw-alice"))
	bob := withCookie(ts.login(t, "bob", "b@x.com", "pw-bob"))
	carol := withCookie(ts.login(t, "carol", "c@x.com", "pw-carol"))

	rec := ts.do(t, http.MethodPost, "/api/v1/users/projects", map[string]string{
		"name": "P1", "description": "first project",
	}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p projectView
	decodeData(t, rec, &p)
	assert.Equal(t, store.RoleAdmin, p.Role)
	base := "/api/v1/users/projects/" + p.ID

	rec = ts.do(t, http.MethodPost, base+"/members", map[string]string{"email": "b@x.com", "role": store.RoleMember}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, base+"/members", map[string]string{"email": "b@x.com"}, alice)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, base+"/task", map[string]string{
		"title": "T1", "description": "do it", "assignedTo": bobID,
	}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task taskView
	decodeData(t, rec, &task)
	assert.Equal(t, store.TaskStatusTodo, task.Status)
	assert.NotNil(t, task.Attachments)

	rec = ts.do(t, http.MethodPost, base+"/notes", map[string]string{"content": "hello"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// bob reads P1
	for _, path := range []string{base, base + "/members", base + "/task", base + "/task/" + task.ID, base + "/notes"} {
		rec = ts.do(t, http.MethodGet, path, nil, bob)
		assert.Equal(t, http.StatusOK, rec.Code, "bob GET %s: %s", path, rec.Body.String())
	}

	// bob is forbidden on admin-only routes
	adminOnlyCalls := []struct {
		method, path string
		body         any
	}{
		{http.MethodPut, base, map[string]string{"name": "renamed"}},
		{http.MethodDelete, base, nil},
		{http.MethodPost, base + "/members", map[string]string{"email": "c@x.com"}},
		{http.MethodPost, base + "/task", map[string]string{"title": "T2", "description": "x", "assignedTo": bobID}},
		{http.MethodDelete, base + "/task/" + task.ID, nil},
		{http.MethodPost, base + "/notes", map[string]string{"content": "mine"}},
	}
	for _, c := range adminOnlyCalls {
		rec = ts.do(t, c.method, c.path, c.body, bob)
		assert.Equal(t, http.StatusForbidden, rec.Code, "bob %s %s", c.method, c.path)
	}

	// carol is forbidden everywhere in P1
	for _, path := range []string{base, base + "/members", base + "/task", base + "/task/" + task.ID, base + "/notes"} {
		rec = ts.do(t, http.MethodGet, path, nil, carol)
		assert.Equal(t, http.StatusForbidden, rec.Code, "carol GET %s", path)
	}

	// carol's own listing does not show P1
	rec = ts.do(t, http.MethodGet, "/api/v1/users/projects", nil, carol)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []projectView
	decodeData(t, rec, &list)
	assert.Empty(t, list)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/projects", nil, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, store.RoleMember, list[0].Role)
	assert.Equal(t, 2, list[0].MemberCount)
}

func TestProjectRoleChangeTakesEffectImmediately(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com", "pw-alice")
	bobID := ts.register(t, "bob", "b@x.com", "pw-bob")
	alice := withCookie(ts.login(t, "alice", "a@x.com", "pw-alice"))
	bob := withCookie(ts.login(t, "bob", "b@x.com", "pw-bob"))

	rec := ts.do(t, http.MethodPost, "/api/v1/users/projects", map[string]string{"name": "P1", "description": "d"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p projectView
	decodeData(t, rec, &p)
	base := "/api/v1/users/projects/" + p.ID

	rec = ts.do(t, http.MethodPost, base+"/members", map[string]string{"userId": bobID}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPut, base, map[string]string{"name": "by bob"}, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPut, base+"/members/"+bobID, map[string]string{"role": store.RoleAdmin}, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPut, base, map[string]string{"name": "by bob"}, bob)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodDelete, base+"/members/"+bobID, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, base, nil, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProjectIDValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice", "a@x.com", "pw123")
	alice := withCookie(ts.login(t, "alice", "a@x.com", "pw123"))

	rec := ts.do(t, http.MethodGet, "/api/v1/users/projects/not-a-uuid", nil, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/projects/00000000-0000-0000-0000-000000000000", nil, alice)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSubTasksAndEmptyLists(t *testing.T) {
	ts := newTestServer(t)
	aliceID := ts.register(t, "alice", "a@x.com", "pw123")
	alice := withCookie(ts.login(t, "alice", "a@x.com", "pw123"))

	rec := ts.do(t, http.MethodPost, "/api/v1/users/projects", map[string]string{"name": "P1", "description": "d"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	var p projectView
	decodeData(t, rec, &p)
	base := "/api/v1/users/projects/" + p.ID

	rec = ts.do(t, http.MethodGet, base+"/task", nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", string(decode(t, rec).Data))

	rec = ts.do(t, http.MethodPost, base+"/task", map[string]string{"title": "T", "description": "d", "assignedTo": aliceID}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task taskView
	decodeData(t, rec, &task)

	rec = ts.do(t, http.MethodPost, base+"/task/"+task.ID+"/subTask", map[string]string{"title": "S"}, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub subTaskView
	decodeData(t, rec, &sub)

	rec = ts.do(t, http.MethodPut, base+"/task/"+task.ID+"/subTask/"+sub.ID, map[string]any{"isCompleted": true}, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, base+"/task/"+task.ID, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail taskDetailView
	decodeData(t, rec, &detail)
	require.Len(t, detail.SubTasks, 1)
	assert.True(t, detail.SubTasks[0].IsCompleted)

	rec = ts.do(t, http.MethodDelete, base+"/task/"+task.ID, nil, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, base+"/task/"+task.ID, nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoverPanics(t *testing.T) {
	ts := newTestServer(t)
	h := ts.srv.recoverPanics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.NotContains(t, resp.Message, "boom")
}

func TestRedactPath(t *testing.T) {
	mux := http.NewServeMux()
	var got string
	mux.HandleFunc("GET /verify/{token}", func(w http.ResponseWriter, r *http.Request) {})
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		got = redactPath(r)
	})

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/verify/abc123", nil))
	assert.Equal(t, "/verify/REDACTED", got)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "/health", got)
}

func TestResolveTailscaleAuthKey(t *testing.T) {
	t.Setenv("TS_AUTHKEY", "")
	_, err := resolveTailscaleAuthKey("")
	assert.Error(t, err)

	key, err := resolveTailscaleAuthKey("tskey-config")
	require.NoError(t, err)
	assert.Equal(t, "tskey-config", key)

	t.Setenv("TS_AUTHKEY", "tskey-env")
	key, err = resolveTailscaleAuthKey("")
	require.NoError(t, err)
	assert.Equal(t, "tskey-env", key)
}

func TestResolveTailscaleStateDir(t *testing.T) {
	dir, err := resolveTailscaleStateDir("/var/lib/camp")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/camp", dir)

	t.Setenv("HOME", "/home/tester")
	dir, err = resolveTailscaleStateDir("")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/.local/share/projectcamp/tailscale", dir)
}

func TestNewWithStoreRejectsShortSecret(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{JWTSecret: "short", TokenTTL: time.Hour}}
	_, err := NewWithStore(cfg, store.NewMockStore(), &fakeMailer{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
