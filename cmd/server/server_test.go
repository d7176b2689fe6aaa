package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	appkafka "example.com/sqliteblog/internal/broker"
	config "example.com/sqliteblog/internal/init"
	"example.com/sqliteblog/internal/models"
	"example.com/sqliteblog/internal/store"
)

//
// --- Helpers ---
//

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:     "test-secret",
		SessionCookie: "session",
		SessionTTL:    time.Hour,
		StubRoutes:    true,
	}
}

type testEnv struct {
	srv   *Server
	ts    *httptest.Server
	store store.StoreInterface
	kafka *appkafka.MockKafka
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, store.NewMock())
}

func newTestEnv(t *testing.T, st store.StoreInterface) *testEnv {
	t.Helper()
	mockKafka := &appkafka.MockKafka{}

	s, err := New(st, mockKafka, testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ts := httptest.NewServer(s.Handler(io.Discard))
	t.Cleanup(ts.Close)
	return &testEnv{srv: s, ts: ts, store: st, kafka: mockKafka}
}

// create a user directly in the store and return it
func (e *testEnv) user(t *testing.T, name string) models.User {
	t.Helper()
	id, err := e.store.CreateUser(context.Background(), name, "unused")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return models.User{ID: id, Username: name}
}

// session token for user
func (e *testEnv) token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := e.srv.sessions.Issue(u)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	return tok
}

// send a request without following redirects
func (e *testEnv) do(t *testing.T, method, path string, form url.Values, token string) (*http.Response, string) {
	t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, e.ts.URL+path, body)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func expectStatus(t *testing.T, resp *http.Response, body string, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func expectRedirect(t *testing.T, resp *http.Response, body, location string) {
	t.Helper()
	expectStatus(t, resp, body, http.StatusFound)
	if got := resp.Header.Get("Location"); got != location {
		t.Fatalf("expected redirect to %s, got %s", location, got)
	}
}

func (e *testEnv) posts(t *testing.T) []models.Post {
	t.Helper()
	posts, err := e.store.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	return posts
}

func (e *testEnv) createPost(t *testing.T, author models.User, title string) int64 {
	t.Helper()
	id, err := e.store.CreatePost(context.Background(), author.ID, title, "")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	return id
}

func postPath(id int64, action string) string {
	return "/" + strconv.FormatInt(id, 10) + "/" + action
}

//
// --- Tests ---
//

func TestIndex_ListsPostsAnonymously(t *testing.T) {
	e := setupTestServer(t)
	alice := e.user(t, "alice")
	e.createPost(t, alice, "First")
	e.createPost(t, alice, "Second")

	resp, body := e.do(t, http.MethodGet, "/", nil, "")
	expectStatus(t, resp, body, http.StatusOK)
	if strings.Index(body, "Second") > strings.Index(body, "First") {
		t.Fatalf("expected most recent post first")
	}
	if !strings.Contains(body, "by alice") {
		t.Fatalf("expected author username in listing")
	}
}

func TestMutatingRoutesRequireLogin(t *testing.T) {
	e := setupTestServer(t)
	alice := e.user(t, "alice")
	id := e.createPost(t, alice, "Hello")

	cases := []struct{ method, path string }{
		{http.MethodGet, "/create"},
		{http.MethodPost, "/create"},
		{http.MethodGet, postPath(id, "update")},
		{http.MethodPost, postPath(id, "update")},
		{http.MethodPost, postPath(id, "delete")},
	}
	for _, tc := range cases {
		resp, body := e.do(t, tc.method, tc.path, url.Values{"title": {"x"}, "body": {""}}, "")
		expectRedirect(t, resp, body, "/auth/login")
	}
	if n := len(e.posts(t)); n != 1 {
		t.Fatalf("expected 1 post, got %d", n)
	}
}

func TestCreate_FormAndEmptyTitle(t *testing.T) {
	e := setupTestServer(t)
	tok := e.token(t, e.user(t, "alice"))

	resp, body := e.do(t, http.MethodGet, "/create", nil, tok)
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = e.do(t, http.MethodPost, "/create", url.Values{"title": {""}, "body": {"text"}}, tok)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(body, "Title is required.") {
		t.Fatalf("expected notice, got %s", body)
	}
	if n := len(e.posts(t)); n != 0 {
		t.Fatalf("expected no posts, got %d", n)
	}
}

func TestCreate_Success(t *testing.T) {
	e := setupTestServer(t)
	alice := e.user(t, "alice")

	resp, body := e.do(t, http.MethodPost, "/create", url.Values{"title": {"Hello"}, "body": {""}}, e.token(t, alice))
	expectRedirect(t, resp, body, "/")

	posts := e.posts(t)
	if len(posts) != 1 || posts[0].Title != "Hello" || posts[0].Body != "" || posts[0].AuthorID != alice.ID {
		t.Fatalf("unexpected posts: %+v", posts)
	}
	if len(e.kafka.Written()) != 1 {
		t.Fatalf("expected one post event")
	}
}

func TestUpdate_NotFoundAndForbidden(t *testing.T) {
	e := setupTestServer(t)
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	id := e.createPost(t, alice, "Hello")

	resp, body := e.do(t, http.MethodGet, "/999/update", nil, e.token(t, alice))
	expectStatus(t, resp, body, http.StatusNotFound)
	if !strings.Contains(body, "Post id 999 doesn't exist.") {
		t.Fatalf("expected id in not found message, got %s", body)
	}

	resp, body = e.do(t, http.MethodGet, postPath(id, "update"), nil, e.token(t, bob))
	expectStatus(t, resp, body, http.StatusForbidden)

	resp, body = e.do(t, http.MethodPost, postPath(id, "update"), url.Values{"title": {"Hacked"}, "body": {""}}, e.token(t, bob))
	expectStatus(t, resp, body, http.StatusForbidden)
	if e.posts(t)[0].Title != "Hello" {
		t.Fatalf("post changed by non-author")
	}
}

func TestUpdate_ByAuthor(t *testing.T) {
	e := setupTestServer(t)
	alice := e.user(t, "alice")
	id := e.createPost(t, alice, "Hello")
	tok := e.token(t, alice)

	resp, body := e.do(t, http.MethodGet, postPath(id, "update"), nil, tok)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(body, `value="Hello"`) {
		t.Fatalf("expected pre-filled form, got %s", body)
	}

	resp, body = e.do(t, http.MethodPost, postPath(id, "update"), url.Values{"title": {""}, "body": {"x"}}, tok)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(body, "Title is required.") || !strings.Contains(body, `value="Hello"`) {
		t.Fatalf("expected notice with stored title, got %s", body)
	}

	resp, body = e.do(t, http.MethodPost, postPath(id, "update"), url.Values{"title": {"Hi"}, "body": {"edited"}}, tok)
	expectRedirect(t, resp, body, "/")
	p := e.posts(t)[0]
	if p.Title != "Hi" || p.Body != "edited" || p.ID != id || p.AuthorID != alice.ID {
		t.Fatalf("unexpected post after update: %+v", p)
	}
}

func TestDelete(t *testing.T) {
	e := setupTestServer(t)
	alice := e.user(t, "alice")
	bob := e.user(t, "bob")
	id := e.createPost(t, alice, "Hello")

	resp, body := e.do(t, http.MethodGet, postPath(id, "delete"), nil, e.token(t, alice))
	expectStatus(t, resp, body, http.StatusMethodNotAllowed)

	resp, body = e.do(t, http.MethodPost, postPath(id, "delete"), url.Values{}, e.token(t, bob))
	expectStatus(t, resp, body, http.StatusForbidden)
	if len(e.posts(t)) != 1 {
		t.Fatalf("post deleted by non-author")
	}

	resp, body = e.do(t, http.MethodPost, postPath(id, "delete"), url.Values{}, e.token(t, alice))
	expectRedirect(t, resp, body, "/")
	if len(e.posts(t)) != 0 {
		t.Fatalf("expected post to be deleted")
	}

	resp, body = e.do(t, http.MethodPost, postPath(id, "delete"), url.Values{}, e.token(t, alice))
	expectStatus(t, resp, body, http.StatusNotFound)
}

// full flow: register -> login -> create -> list -> logout
func TestRegisterLoginFlow(t *testing.T) {
	e := setupTestServer(t)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{Jar: jar}

	resp, err := client.PostForm(e.ts.URL+"/auth/register", url.Values{"username": {"alice"}, "password": {"secret"}})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	resp.Body.Close()
	if resp.Request.URL.Path != "/auth/login" {
		t.Fatalf("expected to land on login page, got %s", resp.Request.URL.Path)
	}

	resp, err = client.PostForm(e.ts.URL+"/auth/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(b), "Incorrect password.") {
		t.Fatalf("expected incorrect password notice")
	}

	resp, err = client.PostForm(e.ts.URL+"/auth/login", url.Values{"username": {"alice"}, "password": {"secret"}})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	resp.Body.Close()

	resp, err = client.PostForm(e.ts.URL+"/create", url.Values{"title": {"From the flow"}, "body": {"hi"}})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.Request.URL.Path != "/" || !strings.Contains(string(b), "From the flow") {
		t.Fatalf("expected listing with new post, got %s", resp.Request.URL.Path)
	}

	resp, err = client.Get(e.ts.URL + "/auth/logout")
	if err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	resp.Body.Close()

	resp, err = client.Get(e.ts.URL + "/create")
	if err != nil {
		t.Fatalf("get create failed: %v", err)
	}
	resp.Body.Close()
	if resp.Request.URL.Path != "/auth/login" {
		t.Fatalf("expected redirect to login after logout, got %s", resp.Request.URL.Path)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	e := setupTestServer(t)
	e.user(t, "alice")

	resp, body := e.do(t, http.MethodPost, "/auth/register", url.Values{"username": {"alice"}, "password": {"x"}}, "")
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(body, "User alice is already registered.") {
		t.Fatalf("expected duplicate notice, got %s", body)
	}
}

func TestStubRoutes(t *testing.T) {
	e := setupTestServer(t)

	for _, p := range stubPaths {
		resp, body := e.do(t, http.MethodGet, p, nil, "")
		expectStatus(t, resp, body, http.StatusOK)
		if !strings.Contains(body, p) {
			t.Fatalf("expected stub page to echo %s", p)
		}
	}
}

func TestStoreFailureIs500(t *testing.T) {
	s, err := New(&store.MockStoreFail{}, &appkafka.MockKafkaFail{}, testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ts := httptest.NewServer(s.Handler(io.Discard))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestIndex_Head(t *testing.T) {
	e := setupTestServer(t)

	resp, body := e.do(t, http.MethodHead, "/", nil, "")
	expectStatus(t, resp, body, http.StatusOK)
}

func TestSessionForUnknownUser(t *testing.T) {
	mockStore := store.NewMock()
	e := newTestEnv(t, mockStore)
	alice := e.user(t, "alice")
	ghost := e.token(t, models.User{ID: 999, Username: "ghost"})

	resp, body := e.do(t, http.MethodPost, "/create", url.Values{"title": {"Hello"}, "body": {""}}, ghost)
	expectRedirect(t, resp, body, "/auth/login")

	// a cookie outliving its user is dropped as well
	tok := e.token(t, alice)
	mockStore.DeleteUser(alice.ID)
	resp, body = e.do(t, http.MethodGet, "/create", nil, tok)
	expectRedirect(t, resp, body, "/auth/login")

	if n := len(e.posts(t)); n != 0 {
		t.Fatalf("expected no posts, got %d", n)
	}
}
