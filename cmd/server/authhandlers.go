package server

import (
	"errors"
	"net/http"
	"strconv"

	"example.com/sqliteblog/internal/auth"
	"example.com/sqliteblog/internal/logger"
	"example.com/sqliteblog/internal/middleware"
	"example.com/sqliteblog/internal/views"
)

// registerHandler serves the registration form and creates a user.
// On success the caller is sent to the login page.
func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	data := page(r)
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, views.Register, data)
		return
	}

	username := r.PostFormValue("username")
	user, err := s.auth.Register(r.Context(), username, r.PostFormValue("password"))
	var fe *auth.FormError
	switch {
	case errors.As(err, &fe):
		data.Flashes = append(data.Flashes, fe.Notice)
		data.Form = views.Form{Username: username}
		s.render(w, r, http.StatusOK, views.Register, data)
		return
	case err != nil:
		s.fail(w, r, "http/register", err)
		return
	}

	logger.FromContext(r.Context()).Info("http/register", "User registered (username anonymized) user_id="+strconv.FormatInt(user.ID, 10))
	http.Redirect(w, r, middleware.LoginPath, http.StatusFound)
}

// loginHandler serves the login form and starts a session cookie.
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	data := page(r)
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, views.Login, data)
		return
	}

	username := r.PostFormValue("username")
	user, err := s.auth.Login(r.Context(), username, r.PostFormValue("password"))
	var fe *auth.FormError
	switch {
	case errors.As(err, &fe):
		data.Flashes = append(data.Flashes, fe.Notice)
		data.Form = views.Form{Username: username}
		s.render(w, r, http.StatusOK, views.Login, data)
		return
	case err != nil:
		s.fail(w, r, "http/login", err)
		return
	}

	if err := s.sessions.SetCookie(w, user); err != nil {
		logger.FromContext(r.Context()).Error("http/login", "Failed to issue session token", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// logoutHandler clears the session cookie.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}
