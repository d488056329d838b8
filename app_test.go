package shire_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/eringen/shire"
	"github.com/eringen/shire/views"
)

const (
	testPassword = "speak-friend-and-enter"
	testIdentity = "identity-secret-for-tests"
)

type testEnv struct {
	t      *testing.T
	app    *shire.App
	store  *shire.Store
	server *httptest.Server
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := shire.NewStore(filepath.Join(t.TempDir(), "shire.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := shire.SiteConfig{
		Name:           "Shire Test",
		URL:            "http://shire.test",
		Description:    "Tales from the Shire",
		Author:         "Bilbo Baggins",
		AdminPassword:  testPassword,
		AdminEmail:     "bilbo@shire.test",
		SessionSecret:  "0123456789abcdef0123456789abcdef",
		IdentitySecret: testIdentity,
	}
	app := shire.New(cfg, views.Default(),
		shire.WithStore(store),
		shire.WithLogger(zerolog.Nop()),
		shire.WithStaticDir(t.TempDir()),
	)
	require.NoError(t, app.Setup())
	t.Cleanup(func() { app.Close() })

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{t: t, app: app, store: store, server: srv, client: client}
}

type response struct {
	code     int
	body     string
	header   http.Header
	location string
}

func (e *testEnv) do(req *http.Request) response {
	e.t.Helper()
	res, err := e.client.Do(req)
	require.NoError(e.t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(e.t, err)
	return response{code: res.StatusCode, body: string(b), header: res.Header, location: res.Header.Get("Location")}
}

func (e *testEnv) request(method, path string, body io.Reader, headers map[string]string) response {
	e.t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, e.server.URL+path, body)
	require.NoError(e.t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return e.do(req)
}

func (e *testEnv) get(path string) response {
	e.t.Helper()
	return e.request(http.MethodGet, path, nil, nil)
}

// postForm submits a form with the current CSRF token.
func (e *testEnv) postForm(path string, form url.Values) response {
	e.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get("_csrf") == "" {
		form.Set("_csrf", e.csrfToken())
	}
	return e.request(http.MethodPost, path, strings.NewReader(form.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
}

// csrfToken returns the token cookie, visiting a page first if needed.
func (e *testEnv) csrfToken() string {
	e.t.Helper()
	u, err := url.Parse(e.server.URL)
	require.NoError(e.t, err)
	for i := 0; i < 2; i++ {
		for _, c := range e.client.Jar.Cookies(u) {
			if c.Name == "_csrf" {
				return c.Value
			}
		}
		e.get("/about/")
	}
	e.t.Fatal("no _csrf cookie issued")
	return ""
}

func (e *testEnv) login() {
	e.t.Helper()
	res := e.postForm("/admin/login/", url.Values{"password": {testPassword}})
	require.Equal(e.t, http.StatusSeeOther, res.code, res.body)
	require.Equal(e.t, "/admin/", res.location)
}

func (e *testEnv) token(id string) string {
	e.t.Helper()
	tok, err := shire.IssueToken(testIdentity, shire.User{ID: id, Email: id + "@shire.test", FirstName: "Samwise"}, time.Hour)
	require.NoError(e.t, err)
	return tok
}

// api sends a JSON request, authenticated with a bearer token when tok is set.
func (e *testEnv) api(method, path, tok string, body any) response {
	e.t.Helper()
	var r io.Reader
	headers := map[string]string{}
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = strings.NewReader(string(b))
		headers["Content-Type"] = "application/json"
	}
	if tok != "" {
		headers["Authorization"] = "Bearer " + tok
	}
	return e.request(method, path, r, headers)
}

func decode[T any](t *testing.T, res response) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(res.body), &v), res.body)
	return v
}

func (e *testEnv) createPost(in shire.NewPost) shire.BlogPost {
	e.t.Helper()
	if in.AuthorID == "" {
		in.AuthorID = "frodo"
	}
	if in.Content == "" {
		in.Content = "Some content."
	}
	p, err := e.store.CreatePost(context.Background(), in)
	require.NoError(e.t, err)
	e.app.Cache.Invalidate()
	return p
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return strings.NewReader(string(b))
}
