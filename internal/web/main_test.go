package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacehome/spacehome/internal/cache/cachetest"
	"github.com/spacehome/spacehome/internal/colorsample"
	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/db/controller/sitesettings"
	"github.com/spacehome/spacehome/internal/db/dbtest"
	"github.com/spacehome/spacehome/internal/logger"
	"github.com/spacehome/spacehome/internal/web/handler"
	"github.com/spacehome/spacehome/internal/web/session"
)

const adminPassword = "correct-horse-battery"

type testServer struct {
	svc  *Service
	deps *handler.Deps
}

type response struct {
	status  int
	header  http.Header
	cookies []*http.Cookie
	body    map[string]any
	raw     string
}

func testConfig() *config.Config {
	return &config.Config{
		Title: "spacehome",
		Log:   logger.Log{LogLevel: "info", AppName: "test", ServiceName: "test"},
		Webserver: config.Webserver{
			Port:     3000,
			URL:      "http://localhost:3000",
			BasePath: "/api",
			Session:  config.Session{ExpiryTime: time.Hour},
		},
		Admin: config.Admin{
			Password:    adminPassword,
			DisplayName: "owner",
			Avatar:      "https://i.pinimg.com/736x/owner.jpg",
		},
		ColorSample: config.ColorSample{Timeout: 2 * time.Second},
		Chat:        config.Chat{Timeout: 2 * time.Second},
	}
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	deps, err := NewDeps(cfg, dbtest.Open(t), nil)
	require.NoError(t, err)

	svc, err := New(cfg, deps, nil)
	require.NoError(t, err)

	return &testServer{svc: svc, deps: deps}
}

func (ts *testServer) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := ts.svc.App.Test(req, -1)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{status: resp.StatusCode, header: resp.Header, cookies: resp.Cookies(), raw: string(raw)}
	_ = json.Unmarshal(raw, &out.body)

	return out
}

func cookie(t *testing.T, r response, name string) *http.Cookie {
	t.Helper()

	for _, c := range r.cookies {
		if c.Name == name && c.Value != "" {
			return &http.Cookie{Name: c.Name, Value: c.Value}
		}
	}

	require.Failf(t, "cookie missing", "no %s in response", name)

	return nil
}

func (ts *testServer) loginAdmin(t *testing.T) *http.Cookie {
	t.Helper()

	r := ts.do(t, http.MethodPost, "/api/auth", `{"password":"`+adminPassword+`"}`)
	require.Equal(t, http.StatusOK, r.status, r.raw)

	return cookie(t, r, session.AdminCookie)
}

func (ts *testServer) loginUser(t *testing.T, name string) *http.Cookie {
	t.Helper()

	r := ts.do(t, http.MethodPost, "/api/user-auth", `{"name":"`+name+`","avatar":"https://i.imgur.com/a.jpg"}`)
	require.Equal(t, http.StatusOK, r.status, r.raw)

	return cookie(t, r, session.UserCookie)
}

func commentIDs(t *testing.T, r response) []string {
	t.Helper()

	list, ok := r.body["comments"].([]any)
	require.True(t, ok, r.raw)

	ids := make([]string, 0, len(list))
	for _, item := range list {
		ids = append(ids, item.(map[string]any)["id"].(string))
	}

	return ids
}

func TestCommentBoardScenario(t *testing.T) {
	ts := newTestServer(t)

	r := ts.do(t, http.MethodPost, "/api/user-auth", `{"name":"Ann","avatar":"https://i.imgur.com/a.jpg"}`)
	require.Equal(t, http.StatusOK, r.status, r.raw)
	assert.Equal(t, true, r.body["success"])
	assert.Equal(t, map[string]any{"name": "Ann", "avatar": "https://i.imgur.com/a.jpg"}, r.body["user"])

	userCookie := cookie(t, r, session.UserCookie)
	assert.Len(t, userCookie.Value, 64)

	r = ts.do(t, http.MethodPost, "/api/comments", `{"content":"hi <b>there</b>"}`, userCookie)
	require.Equal(t, http.StatusOK, r.status, r.raw)

	created := r.body["comment"].(map[string]any)
	annID := created["id"].(string)
	assert.Equal(t, "hi &lt;b&gt;there&lt;/b&gt;", created["content"])
	assert.Equal(t, "Ann", created["author"])
	assert.Equal(t, false, created["isAdmin"])

	// a later comment is listed first until Ann's is pinned
	bob := ts.loginUser(t, "Bob")
	r = ts.do(t, http.MethodPost, "/api/comments", `{"content":"second"}`, bob)
	require.Equal(t, http.StatusOK, r.status, r.raw)

	r = ts.do(t, http.MethodGet, "/api/comments", "")
	require.Equal(t, http.StatusOK, r.status)
	ids := commentIDs(t, r)
	require.Len(t, ids, 2)
	assert.Contains(t, ids, annID)

	admin := ts.loginAdmin(t)

	r = ts.do(t, http.MethodPatch, "/api/comments", `{"id":"`+annID+`"}`, admin)
	require.Equal(t, http.StatusOK, r.status, r.raw)
	assert.Equal(t, true, r.body["comment"].(map[string]any)["pinned"])

	r = ts.do(t, http.MethodGet, "/api/comments", "")
	ids = commentIDs(t, r)
	require.Len(t, ids, 2)
	assert.Equal(t, annID, ids[0])
}

func TestAdminAuth(t *testing.T) {
	ts := newTestServer(t)

	r := ts.do(t, http.MethodGet, "/api/auth", "")
	assert.Equal(t, map[string]any{"authenticated": false}, r.body)

	// same length as the real password
	r = ts.do(t, http.MethodPost, "/api/auth", `{"password":"correct-horse-batterx"}`)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, map[string]any{"success": false, "error": "Invalid password"}, r.body)

	r = ts.do(t, http.MethodPost, "/api/auth", `{}`)
	assert.Equal(t, http.StatusUnauthorized, r.status)

	admin := ts.loginAdmin(t)

	r = ts.do(t, http.MethodGet, "/api/auth", "", admin)
	assert.Equal(t, map[string]any{"authenticated": true}, r.body)

	r = ts.do(t, http.MethodDelete, "/api/auth", "", admin)
	assert.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, map[string]any{"success": true}, r.body)

	r = ts.do(t, http.MethodGet, "/api/auth", "", admin)
	assert.Equal(t, map[string]any{"authenticated": false}, r.body)

	// logout without a session still succeeds
	r = ts.do(t, http.MethodDelete, "/api/auth", "")
	assert.Equal(t, map[string]any{"success": true}, r.body)
}

func TestAdminCookieAttributes(t *testing.T) {
	ts := newTestServer(t)

	r := ts.do(t, http.MethodPost, "/api/auth", `{"password":"`+adminPassword+`"}`)
	require.Equal(t, http.StatusOK, r.status)

	var c *http.Cookie

	for _, rc := range r.cookies {
		if rc.Name == session.AdminCookie {
			c = rc
		}
	}

	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
}

func TestUserAuthValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{name: "missing avatar", body: `{"name":"Ann"}`, wantMsg: "Name and avatar are required"},
		{name: "missing name", body: `{"avatar":"https://i.imgur.com/a.jpg"}`, wantMsg: "Name and avatar are required"},
		{name: "name only markup", body: `{"name":"<b></b>","avatar":"https://i.imgur.com/a.jpg"}`, wantMsg: "Name and avatar are required"},
		{name: "http avatar", body: `{"name":"Ann","avatar":"http://i.imgur.com/a.jpg"}`, wantMsg: "Avatar must be a valid HTTPS image URL (gif, jpg, png, webp)"},
		{name: "private avatar", body: `{"name":"Ann","avatar":"https://192.168.1.2/a.jpg"}`, wantMsg: "Avatar must be a valid HTTPS image URL (gif, jpg, png, webp)"},
		{name: "no extension", body: `{"name":"Ann","avatar":"https://example.com/a"}`, wantMsg: "Avatar must be a valid HTTPS image URL (gif, jpg, png, webp)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ts.do(t, http.MethodPost, "/api/user-auth", tt.body)
			assert.Equal(t, http.StatusBadRequest, r.status)
			assert.Equal(t, map[string]any{"success": false, "error": tt.wantMsg}, r.body)
		})
	}
}

func TestUserAuthStatusAndLogout(t *testing.T) {
	ts := newTestServer(t)

	r := ts.do(t, http.MethodGet, "/api/user-auth", "")
	assert.Equal(t, map[string]any{"authenticated": false, "user": nil}, r.body)

	user := ts.loginUser(t, "<i>Ann</i>")

	r = ts.do(t, http.MethodGet, "/api/user-auth", "", user)
	assert.Equal(t, true, r.body["authenticated"])
	assert.Equal(t, "Ann", r.body["user"].(map[string]any)["name"])

	r = ts.do(t, http.MethodDelete, "/api/user-auth", "", user)
	assert.Equal(t, map[string]any{"success": true}, r.body)

	r = ts.do(t, http.MethodGet, "/api/user-auth", "", user)
	assert.Equal(t, false, r.body["authenticated"])
}

func TestCommentAuthorization(t *testing.T) {
	ts := newTestServer(t)
	user := ts.loginUser(t, "Ann")
	admin := ts.loginAdmin(t)

	r := ts.do(t, http.MethodPost, "/api/comments", `{"content":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, map[string]any{"success": false, "error": "Not authenticated"}, r.body)

	r = ts.do(t, http.MethodPost, "/api/comments", `{"content":42}`, user)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "Comment content required", r.body["error"])

	r = ts.do(t, http.MethodPost, "/api/comments", `{"content":"   "}`, user)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "Comment cannot be empty", r.body["error"])

	r = ts.do(t, http.MethodPatch, "/api/comments", `{"id":"x"}`, user)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, map[string]any{"success": false, "error": "Admin only"}, r.body)

	r = ts.do(t, http.MethodPatch, "/api/comments", `{}`, admin)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "Missing comment ID", r.body["error"])

	r = ts.do(t, http.MethodDelete, "/api/comments", "", admin)
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = ts.do(t, http.MethodDelete, "/api/comments?id=nope", "", admin)
	assert.Equal(t, http.StatusNotFound, r.status)

	r = ts.do(t, http.MethodPost, "/api/comments", `{"content":"from the owner"}`, admin)
	require.Equal(t, http.StatusOK, r.status)

	created := r.body["comment"].(map[string]any)
	assert.Equal(t, "owner", created["author"])
	assert.Equal(t, true, created["isAdmin"])
	assert.Equal(t, "https://i.pinimg.com/736x/owner.jpg", created["avatar"])

	r = ts.do(t, http.MethodDelete, "/api/comments?id="+created["id"].(string), "", admin)
	assert.Equal(t, map[string]any{"success": true}, r.body)

	r = ts.do(t, http.MethodGet, "/api/comments", "")
	assert.Empty(t, commentIDs(t, r))
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.loginAdmin(t)
	user := ts.loginUser(t, "Ann")

	r := ts.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "#b07ded", r.body["settings"].(map[string]any)["primaryColor"])

	r = ts.do(t, http.MethodPut, "/api/settings", `{"profileName":"x"}`, user)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, map[string]any{"error": "Admin access required"}, r.body)

	r = ts.do(t, http.MethodPut, "/api/settings", `{"profilePic":"javascript:alert(1)"}`, admin)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, map[string]any{"error": "Invalid URL for profilePic"}, r.body)

	r = ts.do(t, http.MethodPut, "/api/settings",
		`{"profileName":"Neo","openrouterApiKey":"sk-or-secret","musicYoutubeUrl":"https://youtu.be/hI302pJcB5Y"}`, admin)
	require.Equal(t, http.StatusOK, r.status, r.raw)
	assert.Equal(t, true, r.body["success"])
	assert.NotContains(t, r.raw, "sk-or-secret")

	s := r.body["settings"].(map[string]any)
	assert.Equal(t, "Neo", s["profileName"])
	assert.Equal(t, sitesettings.SecretMask, s["openrouterApiKey"])
	assert.Equal(t, "hI302pJcB5Y", s["musicYoutubeId"])

	// sending the mask back keeps the stored key
	r = ts.do(t, http.MethodPut, "/api/settings", `{"openrouterApiKey":"`+sitesettings.SecretMask+`"}`, admin)
	require.Equal(t, http.StatusOK, r.status)

	stored, err := ts.deps.Settings.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-or-secret", stored.OpenrouterAPIKey)
}

func TestColorExtract(t *testing.T) {
	img := make([]byte, 4000)
	for i := range img {
		img[i] = 100
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(img)
	}))
	t.Cleanup(srv.Close)

	ts := newTestServer(t)
	ts.deps.AllowImage = func(raw string) bool { return strings.HasPrefix(raw, srv.URL) }
	// the production client refuses loopback addresses
	ts.deps.Sampler = colorsample.New(ts.deps.Cfg.ColorSample, srv.Client(), nil, 0)

	// handlers were initialised before the override, rebuild the app
	svc, err := New(ts.deps.Cfg, ts.deps, nil)
	require.NoError(t, err)
	ts.svc = svc

	r := ts.do(t, http.MethodGet, "/api/color-extract", "")
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, map[string]any{"error": "Image URL required"}, r.body)

	r = ts.do(t, http.MethodGet, "/api/color-extract?url=https://127.0.0.1/x.png", "")
	assert.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "#1a0a2e", r.body["hex"])
	assert.Equal(t, true, r.body["fallback"])

	r = ts.do(t, http.MethodGet, "/api/color-extract?url="+srv.URL+"/a.png", "")
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "#464646", r.body["hex"])
	assert.Equal(t, map[string]any{"r": float64(70), "g": float64(70), "b": float64(70)}, r.body["rgb"])
	assert.NotContains(t, r.body, "fallback")
	assert.Equal(t, "public, max-age=3600", r.header.Get("Cache-Control"))
}

func TestChat(t *testing.T) {
	var gotAuth string

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"yo"}}]}`))
	}))
	t.Cleanup(upstream.Close)

	ts := newTestServer(t, func(c *config.Config) { c.Chat.Endpoint = upstream.URL })
	admin := ts.loginAdmin(t)
	user := ts.loginUser(t, "Ann")

	r := ts.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, map[string]any{"error": "Please login to chat"}, r.body)

	r = ts.do(t, http.MethodPost, "/api/chat", `{}`, user)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "Message is required", r.body["error"])

	r = ts.do(t, http.MethodPost, "/api/chat", `{"message":"   "}`, user)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "Message cannot be empty", r.body["error"])

	r = ts.do(t, http.MethodPost, "/api/chat", `{"message":"hi"}`, user)
	assert.Equal(t, http.StatusServiceUnavailable, r.status)

	r = ts.do(t, http.MethodPut, "/api/settings", `{"openrouterApiKey":"sk-or-secret"}`, admin)
	require.Equal(t, http.StatusOK, r.status)

	r = ts.do(t, http.MethodPost, "/api/chat",
		`{"message":"hi","history":[{"role":"user","content":"earlier"},{"role":"system","content":"x"}]}`, user)
	require.Equal(t, http.StatusOK, r.status, r.raw)
	assert.Equal(t, true, r.body["success"])
	assert.Equal(t, "yo", r.body["response"])
	assert.Equal(t, map[string]any{"name": "Ann", "avatar": "https://i.imgur.com/a.jpg"}, r.body["user"])
	assert.Equal(t, "Bearer sk-or-secret", gotAuth)
}

func TestRateLimit(t *testing.T) {
	store := cachetest.New()

	cfg := testConfig()
	cfg.Webserver.RateLimit = config.RateLimit{Enabled: true, AuthMax: 2, ChatMax: 2, Expiration: time.Minute}

	deps, err := NewDeps(cfg, dbtest.Open(t), store)
	require.NoError(t, err)

	svc, err := New(cfg, deps, store)
	require.NoError(t, err)

	ts := &testServer{svc: svc, deps: deps}

	for range 2 {
		r := ts.do(t, http.MethodPost, "/api/auth", `{"password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, r.status)
	}

	r := ts.do(t, http.MethodPost, "/api/auth", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusTooManyRequests, r.status)
	assert.Contains(t, r.body, "error")
	assert.NotZero(t, store.Sets())

	// reads are not limited
	r = ts.do(t, http.MethodGet, "/api/auth", "")
	assert.Equal(t, http.StatusOK, r.status)
}

func TestOperationalEndpoints(t *testing.T) {
	ts := newTestServer(t)

	r := ts.do(t, http.MethodGet, CheckAlivePath, "")
	assert.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "OK", r.raw)

	ts.svc.alive.Store(false)

	r = ts.do(t, http.MethodGet, CheckAlivePath, "")
	assert.Equal(t, http.StatusServiceUnavailable, r.status)
	assert.False(t, ts.svc.Alive())

	r = ts.do(t, http.MethodGet, MetricsPath, "")
	assert.Equal(t, http.StatusOK, r.status)
	assert.Contains(t, r.raw, "spacehome_")

	r = ts.do(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, r.status)
	assert.Contains(t, r.body, "error")
}

func TestNewRejectsNil(t *testing.T) {
	_, err := New(nil, nil, nil)
	require.ErrorIs(t, err, handler.ErrNilDeps)

	_, err = NewDeps(testConfig(), nil, nil)
	require.ErrorIs(t, err, handler.ErrNilDeps)
}
