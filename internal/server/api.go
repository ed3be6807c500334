package server

import (
	"time"

	"github.com/Decentr-net/animenexus/internal/entities"
	"github.com/Decentr-net/animenexus/internal/service"
)

const dateLayout = "2006-01-02"

// ListPostsResponse ...
// swagger:model
type ListPostsResponse struct {
	Posts       []Post `json:"posts"`
	Category    string `json:"category,omitempty"`
	Page        int    `json:"page"`
	Pages       int    `json:"pages"`
	Total       int    `json:"total"`
	HasNext     bool   `json:"has_next"`
	HasPrevious bool   `json:"has_previous"`
	// Empty is set when there are no posts to show: no_posts or no_match.
	Empty   service.EmptyReason `json:"empty,omitempty"`
	Message string              `json:"message,omitempty"`
}

// Post ...
// swagger:model
type Post struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	CoverImage  string     `json:"cover_image"`
	AuthorID    int64      `json:"author_id"`
	Author      string     `json:"author"`
	CategoryID  *int64     `json:"category_id"`
	Category    string     `json:"category"`
	Featured    bool       `json:"featured"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PublishedAt *time.Time `json:"published_at"`
}

// PostDetailsResponse ...
// swagger:model
type PostDetailsResponse struct {
	Post     Post      `json:"post"`
	Comments []Comment `json:"comments"`
	// CanEdit is true when requester is the author.
	CanEdit bool `json:"can_edit"`
}

// Comment ...
// swagger:model
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubmitCommentResponse ...
// swagger:model
type SubmitCommentResponse struct {
	Comment Comment `json:"comment"`
	Message string  `json:"message"`
}

// Category ...
// swagger:model
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Profile ...
// swagger:model
type Profile struct {
	Username    string `json:"username"`
	DateOfBirth string `json:"date_of_birth"`
	Bio         string `json:"bio"`
}

// User ...
// swagger:model
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// MessageResponse ...
// swagger:model
type MessageResponse struct {
	Message string `json:"message"`
	// Next is a local location client should navigate to.
	Next string `json:"next,omitempty"`
}

// IDResponse ...
// swagger:model
type IDResponse struct {
	ID int64 `json:"id"`
}

// CoverResponse ...
// swagger:model
type CoverResponse struct {
	URL string `json:"url"`
}

// ModerateResponse ...
// swagger:model
type ModerateResponse struct {
	Updated int64 `json:"updated"`
}

// CreatePostRequest ...
// swagger:model
type CreatePostRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID *int64 `json:"category_id"`
	CoverImage string `json:"cover_image"`
}

// EditPostRequest contains changed fields only. category_id 0 removes category.
// swagger:model
type EditPostRequest struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	CategoryID *int64  `json:"category_id"`
	CoverImage *string `json:"cover_image"`
}

// CommentRequest ...
// swagger:model
type CommentRequest struct {
	Body string `json:"body"`
}

// ContactRequest ...
// swagger:model
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// SignupRequest ...
// swagger:model
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest ...
// swagger:model
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProfileRequest ...
// swagger:model
type ProfileRequest struct {
	Bio         string `json:"bio"`
	DateOfBirth string `json:"date_of_birth"`
}

// CategoryRequest ...
// swagger:model
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ModerateRequest ...
// swagger:model
type ModerateRequest struct {
	IDs []int64 `json:"ids"`
}

func toPost(p *entities.Post) Post {
	return Post{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Content,
		CoverImage:  p.CoverImage,
		AuthorID:    p.AuthorID,
		Author:      p.Author,
		CategoryID:  p.CategoryID,
		Category:    p.Category,
		Featured:    p.Featured,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		PublishedAt: p.PublishedAt,
	}
}

func toComment(c *entities.Comment) Comment {
	return Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    c.Username,
		Body:      c.Body,
		Approved:  c.Approved,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toProfile(p *entities.Profile) Profile {
	out := Profile{
		Username: p.Username,
		Bio:      p.Bio,
	}

	if p.DateOfBirth != nil {
		out.DateOfBirth = p.DateOfBirth.Format(dateLayout)
	}

	return out
}

func newListPostsResponse(p *service.PostsPage) ListPostsResponse {
	out := ListPostsResponse{
		Posts:       make([]Post, len(p.Posts)),
		Category:    p.Category,
		Page:        p.Page,
		Pages:       p.Pages,
		Total:       p.Total,
		HasNext:     p.HasNext(),
		HasPrevious: p.HasPrevious(),
		Empty:       p.Empty,
	}

	for i, v := range p.Posts {
		out.Posts[i] = toPost(v)
	}

	switch p.Empty {
	case service.NoMatch:
		out.Message = "No posts found in this category."
	case service.NoPosts:
		out.Message = "No posts yet."
	case service.NotEmpty:
	}

	return out
}

func newComments(c []*entities.Comment) []Comment {
	out := make([]Comment, len(c))
	for i, v := range c {
		out[i] = toComment(v)
	}

	return out
}

func newCategories(c []*entities.Category) []Category {
	out := make([]Category, len(c))
	for i, v := range c {
		out[i] = Category{
			ID:          v.ID,
			Name:        v.Name,
			Description: v.Description,
		}
	}

	return out
}
