package server

import (
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"example.com/sqliteblog/internal/models"
	"example.com/sqliteblog/internal/store"
)

func setupSQLiteServer(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "blog.sqlite"), time.Second)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(st.Close)
	return newTestEnv(t, st)
}

// create -> update -> delete by a non-author -> delete by the author, on a real database
func TestSQLite_CreateUpdateDelete(t *testing.T) {
	e := setupSQLiteServer(t)
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	aliceTok, bobTok := e.token(t, alice), e.token(t, bob)

	resp, body := e.do(t, http.MethodPost, "/create", url.Values{"title": {"Hello"}, "body": {""}}, aliceTok)
	expectRedirect(t, resp, body, "/")

	posts := e.posts(t)
	if len(posts) != 1 || posts[0].Title != "Hello" || posts[0].Body != "" || posts[0].Username != "alice" {
		t.Fatalf("unexpected posts: %+v", posts)
	}
	if posts[0].Created.IsZero() {
		t.Fatalf("expected created to be set by the store")
	}
	id := posts[0].ID

	resp, body = e.do(t, http.MethodGet, "/", nil, "")
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(body, "Hello") || !strings.Contains(body, "by alice") {
		t.Fatalf("expected post in listing, got %s", body)
	}

	resp, body = e.do(t, http.MethodPost, postPath(id, "update"), url.Values{"title": {"Hi"}, "body": {"edited"}}, aliceTok)
	expectRedirect(t, resp, body, "/")
	if p := e.posts(t)[0]; p.Title != "Hi" || p.Body != "edited" || p.ID != id || !p.Created.Equal(posts[0].Created) {
		t.Fatalf("unexpected post after update: %+v", p)
	}

	resp, body = e.do(t, http.MethodPost, postPath(id, "delete"), url.Values{}, bobTok)
	expectStatus(t, resp, body, http.StatusForbidden)
	if len(e.posts(t)) != 1 {
		t.Fatalf("post deleted by non-author")
	}

	resp, body = e.do(t, http.MethodPost, postPath(id, "delete"), url.Values{}, aliceTok)
	expectRedirect(t, resp, body, "/")
	if n := len(e.posts(t)); n != 0 {
		t.Fatalf("expected empty listing, got %d posts", n)
	}
}

func TestSQLite_IndexNewestFirst(t *testing.T) {
	e := setupSQLiteServer(t)
	tok := e.token(t, e.user(t, "alice"))

	for _, title := range []string{"First", "Second"} {
		resp, body := e.do(t, http.MethodPost, "/create", url.Values{"title": {title}, "body": {""}}, tok)
		expectRedirect(t, resp, body, "/")
		time.Sleep(2 * time.Millisecond)
	}

	resp, body := e.do(t, http.MethodGet, "/", nil, "")
	expectStatus(t, resp, body, http.StatusOK)
	first, second := strings.Index(body, "First"), strings.Index(body, "Second")
	if first < 0 || second < 0 || second > first {
		t.Fatalf("expected most recent post first, got %s", body)
	}
}

func TestSQLite_SessionForUnknownUser(t *testing.T) {
	e := setupSQLiteServer(t)
	ghost := e.token(t, models.User{ID: 999, Username: "ghost"})

	resp, body := e.do(t, http.MethodPost, "/create", url.Values{"title": {"Hello"}, "body": {""}}, ghost)
	expectRedirect(t, resp, body, "/auth/login")
	if n := len(e.posts(t)); n != 0 {
		t.Fatalf("expected no posts, got %d", n)
	}
}
