package server

import (
	"errors"
	"net/http"
	"strconv"

	"example.com/sqliteblog/internal/blog"
	"example.com/sqliteblog/internal/logger"
	"example.com/sqliteblog/internal/middleware"
	"example.com/sqliteblog/internal/models"
	"example.com/sqliteblog/internal/views"
	"github.com/gorilla/mux"
)

// --- HTTP Handlers ---

// page starts the template data for the current request.
func page(r *http.Request) views.Page {
	var p views.Page
	if u, ok := middleware.CurrentUser(r.Context()); ok {
		p.User = &u
	}
	return p
}

// identity returns the user LoginRequired has already admitted.
func identity(r *http.Request) models.User {
	u, _ := middleware.CurrentUser(r.Context())
	return u
}

// postID reads the {id} route variable; the route pattern guarantees digits.
func postID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data views.Page) {
	if err := s.views.Render(w, status, name, data); err != nil {
		logger.FromContext(r.Context()).Error("http/views", "Failed to render "+name, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// fail answers with the status the error maps to. Server errors are logged and not
// shown to the caller.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, module string, err error) {
	status := blog.StatusCode(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error(module, "Request failed", err)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

// indexHandler shows all posts, most recent first.
func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	posts, err := s.blog.Index(r.Context())
	if err != nil {
		s.fail(w, r, "http/index", err)
		return
	}
	data := page(r)
	data.Posts = posts
	s.render(w, r, http.StatusOK, views.Index, data)
}

// createHandler serves the new post form and creates a post for the current user.
func (s *Server) createHandler(w http.ResponseWriter, r *http.Request) {
	data := page(r)
	if r.Method != http.MethodPost {
		s.render(w, r, http.StatusOK, views.Create, data)
		return
	}

	title, body := r.PostFormValue("title"), r.PostFormValue("body")
	user := identity(r)

	id, err := s.blog.Create(r.Context(), user, title, body)
	var ve *blog.ValidationError
	switch {
	case errors.As(err, &ve):
		data.Flashes = append(data.Flashes, ve.Notice)
		data.Form = views.Form{Title: title, Body: body}
		s.render(w, r, http.StatusOK, views.Create, data)
		return
	case err != nil:
		s.fail(w, r, "http/create", err)
		return
	}

	logger.FromContext(r.Context()).Info("http/create", "Post "+strconv.FormatInt(id, 10)+" created")
	http.Redirect(w, r, "/", http.StatusFound)
}

// updateHandler serves the edit form and updates a post if the current user is the author.
func (s *Server) updateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	user := identity(r)
	data := page(r)

	if r.Method != http.MethodPost {
		l, err := s.blog.GetPost(r.Context(), id, user, true)
		if err == nil {
			err = l.Err()
		}
		if err != nil {
			s.fail(w, r, "http/update", err)
			return
		}
		data.Post = l.Post
		s.render(w, r, http.StatusOK, views.Update, data)
		return
	}

	title, body := r.PostFormValue("title"), r.PostFormValue("body")
	post, err := s.blog.Update(r.Context(), user, id, title, body)
	var ve *blog.ValidationError
	switch {
	case errors.As(err, &ve):
		data.Flashes = append(data.Flashes, ve.Notice)
		data.Post = post
		data.Form = views.Form{Title: title, Body: body}
		s.render(w, r, http.StatusOK, views.Update, data)
		return
	case err != nil:
		s.fail(w, r, "http/update", err)
		return
	}

	logger.FromContext(r.Context()).Info("http/update", "Post "+strconv.FormatInt(id, 10)+" updated")
	http.Redirect(w, r, "/", http.StatusFound)
}

// deleteHandler removes a post if the current user is the author.
func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := s.blog.Delete(r.Context(), identity(r), id); err != nil {
		s.fail(w, r, "http/delete", err)
		return
	}

	logger.FromContext(r.Context()).Info("http/delete", "Post "+strconv.FormatInt(id, 10)+" deleted")
	http.Redirect(w, r, "/", http.StatusFound)
}
