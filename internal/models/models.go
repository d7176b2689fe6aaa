package models

import "time"

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Post is a post row joined with its author's username.
type Post struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Created  time.Time `json:"created"`
	AuthorID int64     `json:"author_id"`
	Username string    `json:"username"`
}
