package web

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mkraev/yanote/internal/auth"
	"github.com/mkraev/yanote/internal/db"
	"github.com/mkraev/yanote/internal/notes"
)

const (
	testPassword = "correct-horse-battery"
)

// testServer bundles an httptest.Server with the services behind it so
// tests can assert directly against storage.
type testServer struct {
	*httptest.Server
	store    *db.Store
	notes    *notes.Service
	users    *auth.UserService
	sessions *auth.SessionService
}

// newTestServer starts a server backed by a file database in a temp
// dir. Routes, middleware, and templates match production wiring; only
// rate limiting is left out so tests can hammer the auth endpoints.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	auth.SetSecureCookies(false)

	store, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	renderer, err := NewRenderer()
	require.NoError(t, err)

	notesService := notes.NewService(store)
	userService := auth.NewUserService(store)
	sessionService := auth.NewSessionService(store, time.Hour)

	handler := NewHandler(renderer, notesService, userService, sessionService, time.Hour)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, auth.NewMiddleware(sessionService), nil)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &testServer{
		Server:   srv,
		store:    store,
		notes:    notesService,
		users:    userService,
		sessions: sessionService,
	}
}

// newClient returns a client with a cookie jar that does not follow
// redirects, so tests can inspect Location headers.
func (ts *testServer) newClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	// ts.Client() returns the server's shared client; copy it so each
	// caller gets an independent cookie jar.
	client := &http.Client{
		Transport: ts.Client().Transport,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return client
}

// registerAndLogin creates a user through the signup and login forms
// and returns a client holding a valid session cookie.
func (ts *testServer) registerAndLogin(t *testing.T, username string) *http.Client {
	t.Helper()

	client := ts.newClient(t)

	resp, err := client.PostForm(ts.URL+"/auth/signup/", url.Values{
		"username":  {username},
		"password1": {testPassword},
		"password2": {testPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode, "signup should redirect")

	resp, err = client.PostForm(ts.URL+"/auth/login/", url.Values{
		"username": {username},
		"password": {testPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode, "login should redirect")

	return client
}

// createNote submits the add form and requires it to succeed.
func (ts *testServer) createNote(t *testing.T, client *http.Client, title, text, noteSlug string) {
	t.Helper()

	resp, err := client.PostForm(ts.URL+"/add/", url.Values{
		"title": {title},
		"text":  {text},
		"slug":  {noteSlug},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, SuccessPath, resp.Header.Get("Location"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

// requireLoginRedirect asserts that resp is a redirect to the login
// page with next set to the originally requested path.
func requireLoginRedirect(t *testing.T, resp *http.Response, wantNext string) {
	t.Helper()

	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, auth.LoginPath, loc.Path)
	require.Equal(t, wantNext, loc.Query().Get("next"))
}
