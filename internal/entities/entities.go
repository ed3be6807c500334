// Package entities contains main entities of service.
package entities

import (
	"time"
)

// Actor is an authenticated identity performing a request.
// nil *Actor means anonymous.
type Actor struct {
	UserID   int64
	Username string
	Staff    bool
}

// User ...
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Staff        bool
	CreatedAt    time.Time
}

// Category ...
type Category struct {
	ID          int64
	Name        string
	Description string
}

// Post ...
type Post struct {
	ID          int64
	Title       string
	Content     string
	CoverImage  string
	AuthorID    int64
	Author      string
	CategoryID  *int64
	Category    string
	Featured    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
}

// Comment ...
type Comment struct {
	ID        int64
	PostID    int64
	UserID    int64
	Username  string
	Body      string
	Approved  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile ...
type Profile struct {
	UserID      int64
	Username    string
	DateOfBirth *time.Time
	Bio         string
}
