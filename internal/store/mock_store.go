package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"example.com/sqliteblog/internal/models"
)

type mockUser struct {
	user models.User
	hash string
}

// MockStore simulates the SQLite store for testing.
type MockStore struct {
	mu         sync.Mutex
	Users      map[int64]mockUser
	Posts      map[int64]models.Post
	nextUserID int64
	nextPostID int64
	clock      time.Time
	ShouldFail bool // flag to simulate failures
}

// NewMock initializes a new mock store
func NewMock() *MockStore {
	return &MockStore{
		Users: make(map[int64]mockUser),
		Posts: make(map[int64]models.Post),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *MockStore) Close() {}

// CreateUser simulates creating a new user
func (m *MockStore) CreateUser(_ context.Context, username, passwordHash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return 0, errors.New("mock: create user failed")
	}
	for _, u := range m.Users {
		if u.user.Username == username {
			return 0, ErrUsernameTaken
		}
	}
	m.nextUserID++
	id := m.nextUserID
	m.Users[id] = mockUser{user: models.User{ID: id, Username: username}, hash: passwordHash}
	return id, nil
}

// GetUserByUsername returns the user and hash for a given username
func (m *MockStore) GetUserByUsername(_ context.Context, username string) (models.User, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.User{}, "", errors.New("mock: get user failed")
	}
	for _, u := range m.Users {
		if u.user.Username == username {
			return u.user, u.hash, nil
		}
	}
	return models.User{}, "", ErrNotFound
}

// GetUserByID returns the user with the given id
func (m *MockStore) GetUserByID(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.User{}, errors.New("mock: get user by id failed")
	}
	u, ok := m.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u.user, nil
}

// DeleteUser drops a user, standing in for a database that lost the row
func (m *MockStore) DeleteUser(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Users, id)
}

// ListPosts returns all posts, newest first
func (m *MockStore) ListPosts(_ context.Context) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return nil, errors.New("mock: list posts failed")
	}
	res := make([]models.Post, 0, len(m.Posts))
	for _, p := range m.Posts {
		res = append(res, m.withUsername(p))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Created.After(res[j].Created) })
	return res, nil
}

// GetPost returns a single post or ErrNotFound
func (m *MockStore) GetPost(_ context.Context, id int64) (models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return models.Post{}, errors.New("mock: get post failed")
	}
	p, ok := m.Posts[id]
	if !ok {
		return models.Post{}, ErrNotFound
	}
	return m.withUsername(p), nil
}

// CreatePost simulates adding a post; every insert ticks the clock by one second
func (m *MockStore) CreatePost(_ context.Context, authorID int64, title, body string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return 0, errors.New("mock: add post failed")
	}
	m.nextPostID++
	m.clock = m.clock.Add(time.Second)
	m.Posts[m.nextPostID] = models.Post{
		ID:       m.nextPostID,
		Title:    title,
		Body:     body,
		Created:  m.clock,
		AuthorID: authorID,
	}
	return m.nextPostID, nil
}

// UpdatePost simulates overwriting title and body
func (m *MockStore) UpdatePost(_ context.Context, id int64, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: update post failed")
	}
	p, ok := m.Posts[id]
	if !ok {
		return ErrNotFound
	}
	p.Title = title
	p.Body = body
	m.Posts[id] = p
	return nil
}

// DeletePost simulates removing a post
func (m *MockStore) DeletePost(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ShouldFail {
		return errors.New("mock: delete post failed")
	}
	if _, ok := m.Posts[id]; !ok {
		return ErrNotFound
	}
	delete(m.Posts, id)
	return nil
}

func (m *MockStore) withUsername(p models.Post) models.Post {
	p.Username = m.Users[p.AuthorID].user.Username
	return p
}

// ---------------------------------------------
// MockStoreFail always returns errors for negative tests
type MockStoreFail struct{}

func (m *MockStoreFail) Close() {}

func (m *MockStoreFail) CreateUser(context.Context, string, string) (int64, error) {
	return 0, errors.New("mock store create user failed")
}

func (m *MockStoreFail) GetUserByUsername(context.Context, string) (models.User, string, error) {
	return models.User{}, "", errors.New("mock store get user by username failed")
}

func (m *MockStoreFail) GetUserByID(context.Context, int64) (models.User, error) {
	return models.User{}, errors.New("mock store get user by id failed")
}

func (m *MockStoreFail) ListPosts(context.Context) ([]models.Post, error) {
	return nil, errors.New("mock store list posts failed")
}

func (m *MockStoreFail) GetPost(context.Context, int64) (models.Post, error) {
	return models.Post{}, errors.New("mock store get post failed")
}

func (m *MockStoreFail) CreatePost(context.Context, int64, string, string) (int64, error) {
	return 0, errors.New("mock store add post failed")
}

func (m *MockStoreFail) UpdatePost(context.Context, int64, string, string) error {
	return errors.New("mock store update post failed")
}

func (m *MockStoreFail) DeletePost(context.Context, int64) error {
	return errors.New("mock store delete post failed")
}
