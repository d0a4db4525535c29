package web

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mkraev/yanote/internal/notes"
	"github.com/mkraev/yanote/internal/slug"
)

const (
	noteTitle = "Заголовок"
	noteText  = "Текст заметки"
	noteSlug  = "note-slug"
)

func noteForm() url.Values {
	return url.Values{
		"title": {noteTitle},
		"text":  {noteText},
		"slug":  {noteSlug},
	}
}

func TestAnonymousUserCantCreateNote(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	client := ts.newClient(t)
	resp, err := client.PostForm(ts.URL+"/add/", noteForm())
	require.NoError(t, err)
	resp.Body.Close()
	requireLoginRedirect(t, resp, "/add/")

	count, err := ts.store.CountNotes(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestUserCanCreateNote(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	client := ts.registerAndLogin(t, "author")
	ts.createNote(t, client, noteTitle, noteText, noteSlug)

	count, err := ts.store.CountNotes(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	record, err := ts.store.GetNoteBySlug(context.Background(), noteSlug)
	require.NoError(t, err)
	require.Equal(t, noteTitle, record.Title)
	require.Equal(t, noteText, record.Text)
}

func TestCantCreateNoteWithDuplicateSlug(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	client := ts.registerAndLogin(t, "author")
	ts.createNote(t, client, noteTitle, noteText, noteSlug)

	resp, err := client.PostForm(ts.URL+"/add/", noteForm())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "duplicate slug should re-render the form")

	body := readBody(t, resp)
	require.Contains(t, body, noteSlug+notes.DuplicateSlugWarning)

	count, err := ts.store.CountNotes(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestEmptySlugIsDerivedFromTitle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	client := ts.registerAndLogin(t, "author")
	form := noteForm()
	form.Del("slug")

	resp, err := client.PostForm(ts.URL+"/add/", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	expected := slug.Normalize(noteTitle)
	record, err := ts.store.GetNoteBySlug(context.Background(), expected)
	require.NoError(t, err)
	require.Equal(t, noteTitle, record.Title)
}

func TestEmptyTitleRerendersForm(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	client := ts.registerAndLogin(t, "author")
	form := noteForm()
	form.Set("title", "   ")

	resp, err := client.PostForm(ts.URL+"/add/", form)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	count, err := ts.store.CountNotes(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestAuthorCanEditNote(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	client := ts.registerAndLogin(t, "author")
	ts.createNote(t, client, noteTitle, noteText, noteSlug)

	resp, err := client.PostForm(ts.URL+"/notes/"+noteSlug+"/edit/", url.Values{
		"title": {"Новый заголовок"},
		"text":  {"Новый текст"},
		"slug":  {"new-slug"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, SuccessPath, resp.Header.Get("Location"))

	record, err := ts.store.GetNoteBySlug(context.Background(), "new-slug")
	require.NoError(t, err)
	require.Equal(t, "Новый заголовок", record.Title)
	require.Equal(t, "Новый текст", record.Text)
}

func TestOtherUserCantEditNote(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	author := ts.registerAndLogin(t, "author")
	ts.createNote(t, author, noteTitle, noteText, noteSlug)

	reader := ts.registerAndLogin(t, "reader")
	resp, err := reader.PostForm(ts.URL+"/notes/"+noteSlug+"/edit/", url.Values{
		"title": {"Взломано"},
		"text":  {"Взломано"},
		"slug":  {noteSlug},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	record, err := ts.store.GetNoteBySlug(context.Background(), noteSlug)
	require.NoError(t, err)
	require.Equal(t, noteTitle, record.Title)
	require.Equal(t, noteText, record.Text)
}

func TestAuthorCanDeleteNote(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	client := ts.registerAndLogin(t, "author")
	ts.createNote(t, client, noteTitle, noteText, noteSlug)

	resp, err := client.PostForm(ts.URL+"/notes/"+noteSlug+"/delete/", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, SuccessPath, resp.Header.Get("Location"))

	count, err := ts.store.CountNotes(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestOtherUserCantDeleteNote(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	author := ts.registerAndLogin(t, "author")
	ts.createNote(t, author, noteTitle, noteText, noteSlug)

	reader := ts.registerAndLogin(t, "reader")
	resp, err := reader.PostForm(ts.URL+"/notes/"+noteSlug+"/delete/", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	count, err := ts.store.CountNotes(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestLoginRedirectsToNext(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	client := ts.newClient(t)
	resp, err := client.PostForm(ts.URL+"/auth/signup/", url.Values{
		"username":  {"author"},
		"password1": {testPassword},
		"password2": {testPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.PostForm(ts.URL+"/auth/login/", url.Values{
		"username": {"author"},
		"password": {testPassword},
		"next":     {"/notes/"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/notes/", resp.Header.Get("Location"))
}

func TestLoginRejectsExternalNext(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	client := ts.newClient(t)
	resp, err := client.PostForm(ts.URL+"/auth/signup/", url.Values{
		"username":  {"author"},
		"password1": {testPassword},
		"password2": {testPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()

	for _, next := range []string{"//evil.example.com/", `/\evil.example.com/`, "https://evil.example.com/", ""} {
		resp, err = client.PostForm(ts.URL+"/auth/login/", url.Values{
			"username": {"author"},
			"password": {testPassword},
			"next":     {next},
		})
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "/", resp.Header.Get("Location"), "next=%q", next)
	}
}

func TestLoginWithBadPasswordRerendersForm(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	client := ts.newClient(t)
	resp, err := client.PostForm(ts.URL+"/auth/signup/", url.Values{
		"username":  {"author"},
		"password1": {testPassword},
		"password2": {testPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.PostForm(ts.URL+"/auth/login/", url.Values{
		"username": {"author"},
		"password": {"wrong-password"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	require.Contains(t, body, "Неверное имя пользователя или пароль.")
}
