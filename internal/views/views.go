// Package views renders the HTML pages of the blog.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"example.com/sqliteblog/internal/models"
)

//go:embed templates
var files embed.FS

// Page names.
const (
	Index    = "blog/index"
	Create   = "blog/create"
	Update   = "blog/update"
	Login    = "auth/login"
	Register = "auth/register"
	Stub     = "stub"
)

// Form holds submitted values echoed back into a re-rendered form.
type Form struct {
	Title    string
	Body     string
	Username string
}

// Page is the data every template receives.
type Page struct {
	User    *models.User
	Flashes []string
	Posts   []models.Post
	Post    models.Post
	Form    Form
	Path    string
}

type Renderer struct {
	pages map[string]*template.Template
}

// New parses the base layout together with every page.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{Index, Create, Update, Login, Register, Stub} {
		t, err := template.ParseFS(files, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render writes the page with the given status. Nothing is written when the template
// fails to execute.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
