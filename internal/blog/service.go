// Package blog implements the post operations: listing, lookup with ownership check,
// create, update and delete. The acting identity is always passed in explicitly.
package blog

import (
	"context"
	"errors"
	"fmt"
	"time"

	appkafka "example.com/sqliteblog/internal/broker"
	"example.com/sqliteblog/internal/logger"
	"example.com/sqliteblog/internal/models"
	"example.com/sqliteblog/internal/store"
)

// Status tags the outcome of a post lookup.
type Status int

const (
	Found Status = iota
	NotFound
	Forbidden
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Lookup is the result of GetPost. Post is set only when Status is Found.
type Lookup struct {
	Status Status
	ID     int64
	Post   models.Post
}

// Err converts a failed lookup into the error that aborts the request.
func (l Lookup) Err() error {
	switch l.Status {
	case NotFound:
		return notFound(l.ID)
	case Forbidden:
		return ErrForbidden
	}
	return nil
}

type Service struct {
	store  store.StoreInterface
	events appkafka.KafkaWriter
	now    func() time.Time
}

// NewService wires the post operations to a store and an event writer. A nil writer
// disables events.
func NewService(st store.StoreInterface, events appkafka.KafkaWriter) *Service {
	if events == nil {
		events = appkafka.NopWriter{}
	}
	return &Service{store: st, events: events, now: time.Now}
}

// Index returns all posts, most recent first.
func (s *Service) Index(ctx context.Context) ([]models.Post, error) {
	return s.store.ListPosts(ctx)
}

// GetPost looks up a post and, when checkAuthor is set, whether user wrote it.
// The returned error is reserved for storage failures.
func (s *Service) GetPost(ctx context.Context, id int64, user models.User, checkAuthor bool) (Lookup, error) {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Lookup{Status: NotFound, ID: id}, nil
		}
		return Lookup{}, err
	}
	if checkAuthor && p.AuthorID != user.ID {
		return Lookup{Status: Forbidden, ID: id}, nil
	}
	return Lookup{Status: Found, ID: id, Post: p}, nil
}

// authored runs the existence and ownership check shared by Update and Delete.
func (s *Service) authored(ctx context.Context, id int64, user models.User) (models.Post, error) {
	l, err := s.GetPost(ctx, id, user, true)
	if err != nil {
		return models.Post{}, err
	}
	if err := l.Err(); err != nil {
		return models.Post{}, err
	}
	return l.Post, nil
}

// validTitle only rejects the empty string; whitespace is a title like any other.
func validTitle(title string) bool {
	return title != ""
}

// Create inserts a post by user and returns its id. An empty title yields
// ErrTitleRequired and nothing is written.
func (s *Service) Create(ctx context.Context, user models.User, title, body string) (int64, error) {
	if !validTitle(title) {
		return 0, ErrTitleRequired
	}
	id, err := s.store.CreatePost(ctx, user.ID, title, body)
	if err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}
	s.publish(ctx, appkafka.PostEvent{Type: appkafka.PostCreated, PostID: id, AuthorID: user.ID, Title: title})
	return id, nil
}

// Update overwrites title and body of a post written by user. The stored post is
// returned alongside ErrTitleRequired so the edit form can be shown again.
func (s *Service) Update(ctx context.Context, user models.User, id int64, title, body string) (models.Post, error) {
	p, err := s.authored(ctx, id, user)
	if err != nil {
		return models.Post{}, err
	}
	if !validTitle(title) {
		return p, ErrTitleRequired
	}
	if err := s.store.UpdatePost(ctx, id, title, body); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Post{}, notFound(id)
		}
		return models.Post{}, fmt.Errorf("update post: %w", err)
	}
	p.Title, p.Body = title, body
	s.publish(ctx, appkafka.PostEvent{Type: appkafka.PostUpdated, PostID: id, AuthorID: p.AuthorID, Title: title})
	return p, nil
}

// Delete removes a post written by user.
func (s *Service) Delete(ctx context.Context, user models.User, id int64) error {
	p, err := s.authored(ctx, id, user)
	if err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(id)
		}
		return fmt.Errorf("delete post: %w", err)
	}
	s.publish(ctx, appkafka.PostEvent{Type: appkafka.PostDeleted, PostID: id, AuthorID: p.AuthorID})
	return nil
}

// publish never fails the caller: the mutation is already committed.
func (s *Service) publish(ctx context.Context, ev appkafka.PostEvent) {
	ev.At = s.now().UTC()
	if err := appkafka.Publish(s.events, ev); err != nil {
		logger.FromContext(ctx).Error("blog", "Failed to publish "+string(ev.Type)+" event", err)
	}
}
