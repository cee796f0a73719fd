// Package handler turns HTTP requests into service calls and service
// results into pages, redirects or JSON.
//
// Handlers parse forms and URL parameters, call a service with the current
// principal, and map the apperror that comes back onto HTTP. No business
// rule lives here.
package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/sakif/task-manager/internal/auth"
	"github.com/sakif/task-manager/internal/model"
)

// Pages rendered by the Renderer. Each is parsed together with base.html
// (and any partials it uses) into its own template set, so every page can
// define "content" without clashing with the others.
var pages = map[string][]string{
	"task_list":   {"task_list.html"},
	"create_task": {"create_task.html", "task_form.html"},
	"edit_task":   {"edit_task.html", "task_form.html"},
	"register":    {"register.html"},
	"login":       {"login.html"},
	"not_found":   {"not_found.html"},
	"error":       {"error.html"},
}

// pageData is what every template receives.
type pageData struct {
	Title string
	User  *model.User // nil when anonymous
	Flash *flash

	// Error is an inline notice; Field names the form input it refers to.
	Error string
	Field string
	Form  map[string]string

	Tasks  []model.Task
	Task   *model.Task
	GitHub bool
}

// Renderer holds the parsed page templates.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses every page from fsys, which must contain templates/.
// Parsing happens once, at startup; a broken template fails the server
// before it accepts requests.
func NewRenderer(fsys fs.FS, logger *slog.Logger) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages)), logger: logger}

	for name, files := range pages {
		patterns := []string{"templates/base.html"}
		for _, f := range files {
			patterns = append(patterns, "templates/"+f)
		}

		tmpl, err := template.ParseFS(fsys, patterns...)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s templates: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// render writes page with the given status. It fills in the principal and
// consumes any pending flash, so callers only supply page-specific data.
func (rr *Renderer) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	tmpl, ok := rr.pages[page]
	if !ok {
		rr.logger.Error("unknown page", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if user, ok := auth.UserFromContext(r.Context()); ok {
		data.User = user
	}
	data.Flash = popFlash(w, r)

	// Headers, including the flash-clearing cookie, must be set before WriteHeader.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		// The status line is already out; all we can do is log.
		rr.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
	}
}

func (rr *Renderer) notFound(w http.ResponseWriter, r *http.Request) {
	rr.render(w, r, http.StatusNotFound, "not_found", pageData{Title: "Not found"})
}

func (rr *Renderer) serverError(w http.ResponseWriter, r *http.Request, err error) {
	rr.logger.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	rr.render(w, r, http.StatusInternalServerError, "error", pageData{Title: "Error"})
}

// =========================================================================
// FLASH NOTICES
// =========================================================================
//
// A flash is a one-shot notice that survives exactly one redirect: it is set
// as a cookie on the redirect response and cleared by the page that shows it.

const flashCookie = "flash"

const (
	flashSuccess = "success"
	flashDanger  = "danger"
)

type flash struct {
	Kind    string `json:"k"`
	Message string `json:"m"`
}

func setFlash(w http.ResponseWriter, kind, message string) {
	raw, _ := json.Marshal(flash{Kind: kind, Message: message})
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash, if any, and clears it. A cookie that
// does not decode is dropped silently.
func popFlash(w http.ResponseWriter, r *http.Request) *flash {
	cookie, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}

	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var f flash
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	if f.Kind != flashSuccess && f.Kind != flashDanger {
		return nil
	}
	return &f
}

// redirectWithFlash is the Post/Redirect/Get ending of every successful form.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, to, kind, message string) {
	setFlash(w, kind, message)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
