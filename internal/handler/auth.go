package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/task-manager/internal/apperror"
	"github.com/sakif/task-manager/internal/auth"
	"github.com/sakif/task-manager/internal/service"
)

const oauthStateCookie = "oauth_state"

// AuthHandler serves registration, password login, logout, the optional
// GitHub OAuth flow and GET /api/me.
//
// DEPENDENCY CHAIN:
//   - auth   *service.AuthService   → registers users, checks credentials, issues tokens
//   - github *auth.GitHubProvider   → OAuth code exchange; nil when GitHub login is off
//   - pages  *Renderer              → HTML forms and notices
type AuthHandler struct {
	auth          *service.AuthService
	github        *auth.GitHubProvider
	pages         *Renderer
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil, in which case
// the login page hides the GitHub button and the OAuth routes are not mounted.
func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	pages *Renderer,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:          authService,
		github:        github,
		pages:         pages,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// HandleShowRegister renders the empty registration form.
//
// HTTP: GET /register
func (h *AuthHandler) HandleShowRegister(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, "register", pageData{Title: "Register"})
}

// HandleRegister creates the account and sends the browser to /login.
//
// HTTP: POST /register
//
// A validation failure re-renders the form with 400, a taken username or
// e-mail with 409. The password is never echoed back into the form.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{
		"username": r.PostFormValue("username"),
		"email":    r.PostFormValue("email"),
	}

	_, err := h.auth.Register(r.Context(), form["username"], form["email"], r.PostFormValue("password"))
	if err != nil {
		if appErr, ok := isAppError(err); ok {
			status, _ := statusFor(err)
			h.pages.render(w, r, status, "register", pageData{
				Title: "Register",
				Error: appErr.Message,
				Field: appErr.Field,
				Form:  form,
			})
			return
		}
		h.pages.serverError(w, r, err)
		return
	}

	redirectWithFlash(w, r, "/login", flashSuccess, "Registration successful. Please log in.")
}

// HandleShowLogin renders the login form.
//
// HTTP: GET /login
func (h *AuthHandler) HandleShowLogin(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, "login", pageData{
		Title:  "Log in",
		GitHub: h.github != nil,
	})
}

// HandleLogin checks the credentials and starts a session.
//
// HTTP: POST /login
//
// On success the signed session token goes into an HttpOnly cookie and the
// browser is redirected to the task list. Bad credentials re-render the form
// with 401 and one message for both "no such e-mail" and "wrong password".
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")

	session, err := h.auth.Login(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		if _, ok := isAppError(err); ok {
			h.pages.render(w, r, http.StatusUnauthorized, "login", pageData{
				Title:  "Log in",
				Error:  "Invalid email or password.",
				Form:   map[string]string{"email": email},
				GitHub: h.github != nil,
			})
			return
		}
		h.pages.serverError(w, r, err)
		return
	}

	h.startSession(w, r, session)
}

// HandleLogout ends the session.
//
// HTTP: GET /logout
//
// Tokens are stateless: logging out means expiring the cookie. A request
// that was never logged in gets the same redirect.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	h.auth.Logout(r.Context(), user)

	auth.ClearSessionCookie(w, h.secureCookies)
	redirectWithFlash(w, r, "/login", flashSuccess, "You have logged out.")
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// The random state is kept in a short-lived cookie and checked on callback,
// which ties the callback to a login this browser actually started.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter against the cookie
//  2. Exchange the code for a GitHub profile
//  3. Find or create the local account with that e-mail
//  4. Set the session cookie and redirect to the task list
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		redirectWithFlash(w, r, "/login", flashDanger, "GitHub sign-in was cancelled.")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		redirectWithFlash(w, r, "/login", flashDanger, "GitHub sign-in failed.")
		return
	}

	session, err := h.auth.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		if appErr, ok := isAppError(err); ok {
			redirectWithFlash(w, r, "/login", flashDanger, "GitHub sign-in failed: "+appErr.Message+".")
			return
		}
		h.pages.serverError(w, r, err)
		return
	}

	h.startSession(w, r, session)
}

// HandleMe returns the logged-in user's profile.
//
// HTTP: GET /api/me
// Auth: RequireAuthAPI
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, session *service.Session) {
	auth.SetSessionCookie(w, session.Token, session.Expires, h.secureCookies)
	redirectWithFlash(w, r, "/", flashSuccess, "Welcome, "+session.User.Username+"!")
}
