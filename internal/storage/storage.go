// Package storage contains a storage interface.
package storage

import (
	"context"
	"errors"

	"github.com/Decentr-net/animenexus/internal/entities"
)

//go:generate mockgen -destination=./mock/storage.go -package=mock -source=storage.go

var (
	// ErrNotFound ...
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when unique constraint is violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidReference is returned when a referenced entity does not exist.
	ErrInvalidReference = errors.New("invalid reference")
)

// Storage provides methods for interacting with database.
type Storage interface {
	InTx(ctx context.Context, f func(s Storage) error) error

	CreateUser(ctx context.Context, u *entities.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*entities.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)

	GetProfile(ctx context.Context, userID int64) (*entities.Profile, error)
	SetProfile(ctx context.Context, p *entities.Profile) error

	ListCategories(ctx context.Context) ([]*entities.Category, error)
	GetCategory(ctx context.Context, id int64) (*entities.Category, error)
	CreateCategory(ctx context.Context, c *entities.Category) (int64, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListPosts(ctx context.Context, p ListPostsParams) ([]*entities.Post, error)
	CountPosts(ctx context.Context, f PostsFilter) (int, error)
	GetPost(ctx context.Context, id int64) (*entities.Post, error)
	CreatePost(ctx context.Context, p *entities.Post) (int64, error)
	UpdatePost(ctx context.Context, p *entities.Post) error
	DeletePost(ctx context.Context, id int64) error
	ListPostCovers(ctx context.Context) ([]PostCover, error)
	SetPostCover(ctx context.Context, id int64, cover string) error

	ListComments(ctx context.Context, p ListCommentsParams) ([]*entities.Comment, error)
	GetComment(ctx context.Context, id int64) (*entities.Comment, error)
	CreateComment(ctx context.Context, c *entities.Comment) (int64, error)
	UpdateComment(ctx context.Context, c *entities.Comment) error
	DeleteComment(ctx context.Context, id int64) error
	SetCommentsApproved(ctx context.Context, approved bool, ids []int64) (int64, error)

	Ping(ctx context.Context) error
}

// PostsFilter ...
type PostsFilter struct {
	// Category is matched case-insensitively against category name.
	Category *string
}

// ListPostsParams ...
type ListPostsParams struct {
	PostsFilter
	Limit  int
	Offset int
}

// ListCommentsParams ...
type ListCommentsParams struct {
	PostID   int64
	Approved *bool
}

// PostCover ...
type PostCover struct {
	PostID int64
	Cover  string
}
