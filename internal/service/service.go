// Package service contains interface for service business-logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Decentr-net/animenexus/internal/entities"
	"github.com/Decentr-net/animenexus/internal/form"
	"github.com/Decentr-net/animenexus/internal/policy"
)

//go:generate mockgen -destination=./mock/service.go -package=mock -source=service.go

const (
	// DefaultPageSize is a page size of posts list.
	DefaultPageSize = 6
	// HomePageSize is a page size of posts list on the home page.
	HomePageSize = 10
)

var (
	// ErrUnauthenticated is returned when operation requires an actor.
	ErrUnauthenticated = policy.ErrUnauthenticated
	// ErrForbidden is returned when actor is not allowed to perform operation.
	ErrForbidden = policy.ErrForbidden
	// ErrNotFound is returned when requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation failed. Use errors.As with *ValidationError to get details.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned when username or password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError contains field-level errors.
type ValidationError struct {
	Fields form.Errors
}

// Error implements error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Fields.Error())
}

// Unwrap ...
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Invalid creates ValidationError for single field.
func Invalid(field, message string) error {
	return &ValidationError{Fields: form.Errors{field: message}}
}

// EmptyReason explains why a posts page is empty.
type EmptyReason string

const (
	// NotEmpty ...
	NotEmpty EmptyReason = ""
	// NoPosts means there are no posts at all.
	NoPosts EmptyReason = "no_posts"
	// NoMatch means posts exist but active filter matched none of them.
	NoMatch EmptyReason = "no_match"
)

// ListPostsParams ...
type ListPostsParams struct {
	// Category filters posts by category name, empty means no filter.
	Category string
	// Page is 1-indexed. Pages out of range are clamped.
	Page     int
	PageSize int
}

// PostsPage ...
type PostsPage struct {
	Posts    []*entities.Post
	Category string
	Page     int
	Pages    int
	PageSize int
	Total    int
	Empty    EmptyReason
}

// HasNext ...
func (p PostsPage) HasNext() bool {
	return p.Page < p.Pages
}

// HasPrevious ...
func (p PostsPage) HasPrevious() bool {
	return p.Page > 1
}

// Cover is an uploaded cover image.
type Cover struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Service ...
type Service interface {
	ListPosts(ctx context.Context, p ListPostsParams) (*PostsPage, error)
	GetPost(ctx context.Context, id int64) (*entities.Post, error)
	GetOwnedPost(ctx context.Context, actor *entities.Actor, id int64) (*entities.Post, error)
	CreatePost(ctx context.Context, actor *entities.Actor, in form.PostInput) (int64, error)
	EditPost(ctx context.Context, actor *entities.Actor, id int64, patch form.PostPatch) (*entities.Post, error)
	DeletePost(ctx context.Context, actor *entities.Actor, id int64) error
	PublishPost(ctx context.Context, actor *entities.Actor, id int64) (*entities.Post, error)
	UploadCover(ctx context.Context, actor *entities.Actor, c Cover) (string, error)

	ListApprovedComments(ctx context.Context, postID int64) ([]*entities.Comment, error)
	SubmitComment(ctx context.Context, actor *entities.Actor, postID int64, in form.CommentInput) (*entities.Comment, error)
	GetOwnedComment(ctx context.Context, actor *entities.Actor, id int64) (*entities.Comment, error)
	EditComment(ctx context.Context, actor *entities.Actor, id int64, in form.CommentInput) (*entities.Comment, error)
	DeleteComment(ctx context.Context, actor *entities.Actor, id int64) (*entities.Comment, error)
	ModerateComments(ctx context.Context, actor *entities.Actor, approve bool, ids []int64) (int64, error)

	ListCategories(ctx context.Context) ([]*entities.Category, error)
	CreateCategory(ctx context.Context, actor *entities.Actor, in form.CategoryInput) (int64, error)
	DeleteCategory(ctx context.Context, actor *entities.Actor, id int64) error

	Signup(ctx context.Context, in form.SignupInput) (*entities.User, error)
	Authenticate(ctx context.Context, username, password string) (*entities.User, error)
	GetOrCreateProfile(ctx context.Context, username string) (*entities.Profile, error)
	UpdateProfile(ctx context.Context, actor *entities.Actor, in form.ProfileInput) (*entities.Profile, error)

	SendContactMessage(ctx context.Context, in form.ContactInput) (bool, error)
}
