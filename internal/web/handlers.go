package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mkraev/yanote/internal/auth"
	"github.com/mkraev/yanote/internal/errs"
	"github.com/mkraev/yanote/internal/logutil"
	"github.com/mkraev/yanote/internal/notes"
)

// SuccessPath is where note mutations redirect after they succeed.
const SuccessPath = "/done/"

// Handler provides HTTP handlers for the web UI pages.
type Handler struct {
	renderer        *Renderer
	notesService    *notes.Service
	userService     *auth.UserService
	sessionService  *auth.SessionService
	sessionDuration time.Duration
}

// NewHandler creates a new web handler.
func NewHandler(
	renderer *Renderer,
	notesService *notes.Service,
	userService *auth.UserService,
	sessionService *auth.SessionService,
	sessionDuration time.Duration,
) *Handler {
	return &Handler{
		renderer:        renderer,
		notesService:    notesService,
		userService:     userService,
		sessionService:  sessionService,
		sessionDuration: sessionDuration,
	}
}

// RegisterRoutes registers all web UI routes on the given mux. The
// authRatelimit middleware, when non-nil, wraps the anonymous
// credential-accepting endpoints.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, authRatelimit func(http.Handler) http.Handler) {
	limited := func(next http.Handler) http.Handler {
		if authRatelimit == nil {
			return next
		}
		return authRatelimit(next)
	}

	// Public pages
	mux.Handle("GET /{$}", authMiddleware.OptionalAuth(http.HandlerFunc(h.HandleHome)))
	mux.HandleFunc("GET /auth/signup/{$}", h.HandleSignupPage)
	mux.Handle("POST /auth/signup/{$}", limited(http.HandlerFunc(h.HandleSignup)))
	mux.HandleFunc("GET /auth/login/{$}", h.HandleLoginPage)
	mux.Handle("POST /auth/login/{$}", limited(http.HandlerFunc(h.HandleLogin)))
	mux.Handle("GET /auth/logout/{$}", authMiddleware.OptionalAuth(http.HandlerFunc(h.HandleLogoutPage)))
	mux.HandleFunc("POST /auth/logout/{$}", h.HandleLogout)

	// Notes pages (auth required, anonymous users are redirected to
	// the login page with ?next= set to the original path)
	requireAuth := func(fn http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuthWithRedirect(fn)
	}
	mux.Handle("GET /notes/{$}", requireAuth(h.HandleNotesList))
	mux.Handle("GET /add/{$}", requireAuth(h.HandleAddPage))
	mux.Handle("POST /add/{$}", requireAuth(h.HandleAdd))
	mux.Handle("GET /done/{$}", requireAuth(h.HandleDone))
	mux.Handle("GET /notes/{slug}/{$}", requireAuth(h.HandleNoteDetail))
	mux.Handle("GET /notes/{slug}/edit/{$}", requireAuth(h.HandleEditPage))
	mux.Handle("POST /notes/{slug}/edit/{$}", requireAuth(h.HandleEdit))
	mux.Handle("GET /notes/{slug}/delete/{$}", requireAuth(h.HandleDeletePage))
	mux.Handle("POST /notes/{slug}/delete/{$}", requireAuth(h.HandleDelete))
}

// PageData contains common data passed to all templates.
type PageData struct {
	Title         string
	Authenticated bool
	Error         string
}

// NoteFormData contains data for the add/edit note form.
type NoteFormData struct {
	PageData
	Form   FormData
	Action string
}

// NotesListData contains data for the notes list page.
type NotesListData struct {
	PageData
	Notes []notes.Note
}

// NoteDetailData contains data for the note detail and delete pages.
type NoteDetailData struct {
	PageData
	Note *notes.Note
}

// LoginPageData contains data for the login page.
type LoginPageData struct {
	PageData
	Form FormData
	Next string
}

// SignupPageData contains data for the signup page.
type SignupPageData struct {
	PageData
	Form FormData
}

// LogoutPageData contains data for the logout page. LoggedOut is false
// on the GET confirmation and true after the POST ends the session.
type LogoutPageData struct {
	PageData
	LoggedOut bool
}

func (h *Handler) pageData(r *http.Request, title string) PageData {
	return PageData{
		Title:         title,
		Authenticated: auth.IsAuthenticated(r.Context()),
	}
}

// HandleHome handles GET / for both anonymous and logged-in users.
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "home.html", h.pageData(r, "Заметки"))
}

// HandleSignupPage handles GET /auth/signup/.
func (h *Handler) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	data := SignupPageData{
		PageData: h.pageData(r, "Регистрация"),
		Form:     newFormData(),
	}
	h.render(w, http.StatusOK, "auth/signup.html", data)
}

// HandleSignup handles POST /auth/signup/. Validation failures
// re-render the form with HTTP 200, matching form-page conventions.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password1 := r.FormValue("password1")
	password2 := r.FormValue("password2")

	form := newFormData()
	form.Values["username"] = username

	switch {
	case username == "":
		form.Errors["username"] = "Укажите имя пользователя."
	case password1 != password2:
		form.Errors["password2"] = "Пароли не совпадают."
	}

	if len(form.Errors) == 0 {
		_, err := h.userService.Register(r.Context(), username, password1)
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			form.Errors["username"] = "Пользователь с таким именем уже существует."
		case errors.Is(err, auth.ErrWeakPassword):
			form.Errors["password1"] = "Пароль слишком короткий."
		case err != nil:
			logrus.WithError(err).WithField("form", logutil.RedactFormValues(r.PostForm)).
				Error("signup failed")
			h.renderer.RenderError(w, http.StatusInternalServerError, "Не удалось создать аккаунт")
			return
		}
	}

	if len(form.Errors) > 0 {
		data := SignupPageData{
			PageData: h.pageData(r, "Регистрация"),
			Form:     form,
		}
		h.render(w, http.StatusOK, "auth/signup.html", data)
		return
	}

	http.Redirect(w, r, auth.LoginPath, http.StatusFound)
}

// HandleLoginPage handles GET /auth/login/.
func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := LoginPageData{
		PageData: h.pageData(r, "Войти"),
		Form:     newFormData(),
		Next:     r.URL.Query().Get("next"),
	}
	h.render(w, http.StatusOK, "auth/login.html", data)
}

// HandleLogin handles POST /auth/login/. On success the user is
// redirected to the validated next parameter, or to the home page.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	next := r.FormValue("next")

	user, err := h.userService.Authenticate(r.Context(), username, password)
	if err != nil {
		form := newFormData()
		form.Values["username"] = username
		form.Errors["username"] = "Неверное имя пользователя или пароль."
		data := LoginPageData{
			PageData: h.pageData(r, "Войти"),
			Form:     form,
			Next:     next,
		}
		h.render(w, http.StatusOK, "auth/login.html", data)
		return
	}

	sessionID, err := h.sessionService.Create(r.Context(), user.ID)
	if err != nil {
		logrus.WithError(err).Error("session create failed")
		h.renderer.RenderError(w, http.StatusInternalServerError, "Не удалось войти")
		return
	}
	auth.SetCookie(w, sessionID, h.sessionDuration)

	http.Redirect(w, r, safeRedirectTarget(next), http.StatusFound)
}

// HandleLogoutPage handles GET /auth/logout/ - shows the logout
// confirmation. The page renders with HTTP 200 even for anonymous
// visitors; ending the session takes the POST.
func (h *Handler) HandleLogoutPage(w http.ResponseWriter, r *http.Request) {
	data := LogoutPageData{PageData: h.pageData(r, "Выход")}
	h.render(w, http.StatusOK, "auth/logout.html", data)
}

// HandleLogout handles POST /auth/logout/.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := auth.GetFromRequest(r); err == nil {
		_ = h.sessionService.Delete(r.Context(), sessionID)
	}
	auth.ClearCookie(w)

	data := LogoutPageData{PageData: h.pageData(r, "Вы вышли"), LoggedOut: true}
	data.Authenticated = false
	h.render(w, http.StatusOK, "auth/logout.html", data)
}

// HandleNotesList handles GET /notes/.
func (h *Handler) HandleNotesList(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	list, err := h.notesService.List(r.Context(), userID)
	if err != nil {
		logrus.WithError(err).Error("notes list failed")
		h.renderer.RenderError(w, http.StatusInternalServerError, "Не удалось загрузить заметки")
		return
	}

	data := NotesListData{
		PageData: h.pageData(r, "Список заметок"),
		Notes:    list,
	}
	h.render(w, http.StatusOK, "notes/list.html", data)
}

// HandleAddPage handles GET /add/.
func (h *Handler) HandleAddPage(w http.ResponseWriter, r *http.Request) {
	data := NoteFormData{
		PageData: h.pageData(r, "Новая заметка"),
		Form:     newFormData(),
		Action:   "/add/",
	}
	h.render(w, http.StatusOK, "notes/form.html", data)
}

// HandleAdd handles POST /add/.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	userID := auth.GetUserID(r.Context())
	params := notes.CreateParams{
		Title: r.FormValue("title"),
		Text:  r.FormValue("text"),
		Slug:  r.FormValue("slug"),
	}

	_, err := h.notesService.Create(r.Context(), userID, params)
	if err != nil {
		h.renderNoteFormError(w, r, "Новая заметка", "/add/", params.Title, params.Text, params.Slug, err)
		return
	}

	http.Redirect(w, r, SuccessPath, http.StatusFound)
}

// HandleDone handles GET /done/.
func (h *Handler) HandleDone(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "done.html", h.pageData(r, "Готово"))
}

// HandleNoteDetail handles GET /notes/{slug}/.
func (h *Handler) HandleNoteDetail(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	note, err := h.notesService.Get(r.Context(), userID, r.PathValue("slug"))
	if err != nil {
		h.renderServiceError(w, err)
		return
	}

	data := NoteDetailData{
		PageData: h.pageData(r, note.Title),
		Note:     note,
	}
	h.render(w, http.StatusOK, "notes/detail.html", data)
}

// HandleEditPage handles GET /notes/{slug}/edit/.
func (h *Handler) HandleEditPage(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	noteSlug := r.PathValue("slug")
	note, err := h.notesService.Get(r.Context(), userID, noteSlug)
	if err != nil {
		h.renderServiceError(w, err)
		return
	}

	form := newFormData()
	form.Values["title"] = note.Title
	form.Values["text"] = note.Text
	form.Values["slug"] = note.Slug

	data := NoteFormData{
		PageData: h.pageData(r, "Редактировать: "+note.Title),
		Form:     form,
		Action:   "/notes/" + noteSlug + "/edit/",
	}
	h.render(w, http.StatusOK, "notes/form.html", data)
}

// HandleEdit handles POST /notes/{slug}/edit/.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.RenderError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	userID := auth.GetUserID(r.Context())
	noteSlug := r.PathValue("slug")
	params := notes.UpdateParams{
		Title: r.FormValue("title"),
		Text:  r.FormValue("text"),
		Slug:  r.FormValue("slug"),
	}

	_, err := h.notesService.Edit(r.Context(), userID, noteSlug, params)
	if err != nil {
		h.renderNoteFormError(w, r, "Редактировать заметку", "/notes/"+noteSlug+"/edit/",
			params.Title, params.Text, params.Slug, err)
		return
	}

	http.Redirect(w, r, SuccessPath, http.StatusFound)
}

// HandleDeletePage handles GET /notes/{slug}/delete/ - shows the
// delete confirmation page.
func (h *Handler) HandleDeletePage(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	note, err := h.notesService.Get(r.Context(), userID, r.PathValue("slug"))
	if err != nil {
		h.renderServiceError(w, err)
		return
	}

	data := NoteDetailData{
		PageData: h.pageData(r, "Удалить: "+note.Title),
		Note:     note,
	}
	h.render(w, http.StatusOK, "notes/delete.html", data)
}

// HandleDelete handles POST /notes/{slug}/delete/.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := auth.GetUserID(r.Context())
	if err := h.notesService.Delete(r.Context(), userID, r.PathValue("slug")); err != nil {
		h.renderServiceError(w, err)
		return
	}

	http.Redirect(w, r, SuccessPath, http.StatusFound)
}

// renderNoteFormError re-renders the note form after a failed create
// or edit. Field validation problems come back as HTTP 200 with the
// submitted values preserved; anything else is a real error page.
func (h *Handler) renderNoteFormError(w http.ResponseWriter, r *http.Request, title, action, noteTitle, noteText, noteSlug string, err error) {
	var fieldErr *notes.FieldError
	if !errors.As(err, &fieldErr) {
		h.renderServiceError(w, err)
		return
	}

	form := newFormData()
	form.Values["title"] = noteTitle
	form.Values["text"] = noteText
	form.Values["slug"] = noteSlug
	form.Errors[fieldErr.Field] = fieldErr.Message

	data := NoteFormData{
		PageData: h.pageData(r, title),
		Form:     form,
		Action:   action,
	}
	h.render(w, http.StatusOK, "notes/form.html", data)
}

func (h *Handler) renderServiceError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)
	status := errs.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).Error("request failed")
	}
	h.renderer.RenderError(w, status, errs.MessageOf(err))
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	if err := h.renderer.Render(w, status, name, data); err != nil {
		logrus.WithError(err).WithField("template", name).Error("render failed")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// safeRedirectTarget returns next if it is a local path, otherwise the
// home page. Protocol-relative URLs ("//evil.com") are rejected, as is
// "/\evil.com": browsers normalize backslashes to slashes, which would
// turn it protocol-relative after the check.
func safeRedirectTarget(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return "/"
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	return next
}
