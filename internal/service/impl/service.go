// Package impl is implementation of service interface.
package impl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/animenexus/internal/auth"
	"github.com/Decentr-net/animenexus/internal/cache"
	"github.com/Decentr-net/animenexus/internal/contact"
	"github.com/Decentr-net/animenexus/internal/entities"
	"github.com/Decentr-net/animenexus/internal/form"
	"github.com/Decentr-net/animenexus/internal/media"
	"github.com/Decentr-net/animenexus/internal/policy"
	"github.com/Decentr-net/animenexus/internal/service"
	"github.com/Decentr-net/animenexus/internal/storage"
)

const (
	categoriesCacheKey = "all_categories"
	categoriesCacheTTL = 300 * time.Second
)

// nolint:gochecknoglobals
var log = logrus.WithFields(logrus.Fields{
	"layer":   "service",
	"package": "impl",
})

// service ...
type srv struct {
	s      storage.Storage
	c      cache.Cache
	sender contact.Sender
	media  media.Store

	now func() time.Time
}

// New creates new instance of service.
func New(s storage.Storage, c cache.Cache, sender contact.Sender, m media.Store) service.Service {
	return &srv{
		s:      s,
		c:      c,
		sender: sender,
		media:  m,
		now:    time.Now,
	}
}

// timestamp returns current time with database precision.
func (s *srv) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *srv) ListPosts(ctx context.Context, p service.ListPostsParams) (*service.PostsPage, error) {
	size := p.PageSize
	if size <= 0 {
		size = service.DefaultPageSize
	}

	var filter storage.PostsFilter
	category := strings.TrimSpace(p.Category)
	if category != "" {
		filter.Category = &category
	}

	total, err := s.s.CountPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	pages := (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}

	page := p.Page
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	out := &service.PostsPage{
		Posts:    []*entities.Post{},
		Category: category,
		Page:     page,
		Pages:    pages,
		PageSize: size,
		Total:    total,
	}

	if total == 0 {
		out.Empty = service.NoPosts
		if filter.Category != nil {
			n, err := s.s.CountPosts(ctx, storage.PostsFilter{})
			if err != nil {
				return nil, fmt.Errorf("failed to count all posts: %w", err)
			}
			if n > 0 {
				out.Empty = service.NoMatch
			}
		}

		return out, nil
	}

	posts, err := s.s.ListPosts(ctx, storage.ListPostsParams{
		PostsFilter: filter,
		Limit:       size,
		Offset:      (page - 1) * size,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	out.Posts = posts

	return out, nil
}

func (s *srv) GetPost(ctx context.Context, id int64) (*entities.Post, error) {
	p, err := s.s.GetPost(ctx, id)
	if err != nil {
		return nil, wrapStorageError(err, "failed to get post")
	}

	return p, nil
}

func (s *srv) GetOwnedPost(ctx context.Context, actor *entities.Actor, id int64) (*entities.Post, error) {
	if actor == nil {
		return nil, service.ErrUnauthenticated
	}

	p, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.EnforceOwner(actor, p, policy.PostAuthor); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *srv) CreatePost(ctx context.Context, actor *entities.Actor, in form.PostInput) (int64, error) {
	if actor == nil {
		return 0, service.ErrUnauthenticated
	}

	r := form.Post(in)
	if !r.Valid() {
		return 0, &service.ValidationError{Fields: r.Errors}
	}

	if err := s.checkCategory(ctx, r.Fields.CategoryID); err != nil {
		return 0, err
	}

	now := s.timestamp()
	id, err := s.s.CreatePost(ctx, &entities.Post{
		Title:      r.Fields.Title,
		Content:    r.Fields.Content,
		CoverImage: r.Fields.CoverImage,
		AuthorID:   actor.UserID,
		CategoryID: r.Fields.CategoryID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			return 0, service.Invalid("category", "Select a valid choice.")
		}
		return 0, fmt.Errorf("failed to create post: %w", err)
	}

	log.WithField("id", id).WithField("author", actor.Username).Info("post created")

	return id, nil
}

func (s *srv) EditPost(ctx context.Context, actor *entities.Actor, id int64, patch form.PostPatch) (*entities.Post, error) {
	p, err := s.GetOwnedPost(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	r := form.Patch(patch)
	if !r.Valid() {
		return nil, &service.ValidationError{Fields: r.Errors}
	}

	if v := r.Fields.Title; v != nil {
		p.Title = *v
	}
	if v := r.Fields.Content; v != nil {
		p.Content = *v
	}
	if v := r.Fields.CoverImage; v != nil {
		p.CoverImage = *v
	}
	if v := r.Fields.CategoryID; v != nil {
		if *v == 0 {
			p.CategoryID = nil
		} else {
			if err := s.checkCategory(ctx, v); err != nil {
				return nil, err
			}
			p.CategoryID = v
		}
	}

	p.UpdatedAt = s.touch(p.CreatedAt)

	if err := s.s.UpdatePost(ctx, p); err != nil {
		if errors.Is(err, storage.ErrInvalidReference) {
			return nil, service.Invalid("category", "Select a valid choice.")
		}
		return nil, wrapStorageError(err, "failed to update post")
	}

	return s.GetPost(ctx, id)
}

func (s *srv) DeletePost(ctx context.Context, actor *entities.Actor, id int64) error {
	if _, err := s.GetOwnedPost(ctx, actor, id); err != nil {
		return err
	}

	if err := s.s.DeletePost(ctx, id); err != nil {
		return wrapStorageError(err, "failed to delete post")
	}

	log.WithField("id", id).WithField("author", actor.Username).Info("post deleted")

	return nil
}

func (s *srv) PublishPost(ctx context.Context, actor *entities.Actor, id int64) (*entities.Post, error) {
	p, err := s.GetOwnedPost(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if p.PublishedAt != nil {
		return p, nil
	}

	now := s.touch(p.CreatedAt)
	p.PublishedAt = &now
	p.UpdatedAt = now

	if err := s.s.UpdatePost(ctx, p); err != nil {
		return nil, wrapStorageError(err, "failed to publish post")
	}

	return p, nil
}

func (s *srv) UploadCover(ctx context.Context, actor *entities.Actor, c service.Cover) (string, error) {
	if actor == nil {
		return "", service.ErrUnauthenticated
	}

	contentType, ok := media.ImageContentType(c.Filename)
	if !ok || c.Body == nil {
		return "", service.Invalid("cover_image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	url, err := s.media.Put(ctx, media.CoverKey(c.Filename), c.Body, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload cover: %w", err)
	}

	return url, nil
}

func (s *srv) ListApprovedComments(ctx context.Context, postID int64) ([]*entities.Comment, error) {
	approved := true

	comments, err := s.s.ListComments(ctx, storage.ListCommentsParams{
		PostID:   postID,
		Approved: &approved,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}

func (s *srv) SubmitComment(ctx context.Context, actor *entities.Actor, postID int64, in form.CommentInput) (*entities.Comment, error) {
	if actor == nil {
		return nil, service.ErrUnauthenticated
	}

	r := form.Comment(in)
	if !r.Valid() {
		return nil, &service.ValidationError{Fields: r.Errors}
	}

	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	now := s.timestamp()
	c := &entities.Comment{
		PostID:    postID,
		UserID:    actor.UserID,
		Username:  actor.Username,
		Body:      r.Fields.Body,
		Approved:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	id, err := s.s.CreateComment(ctx, c)
	if err != nil {
		return nil, wrapStorageError(err, "failed to create comment")
	}
	c.ID = id

	log.WithField("id", id).WithField("post", postID).Info("comment submitted and awaits moderation")

	return c, nil
}

func (s *srv) GetOwnedComment(ctx context.Context, actor *entities.Actor, id int64) (*entities.Comment, error) {
	if actor == nil {
		return nil, service.ErrUnauthenticated
	}

	c, err := s.s.GetComment(ctx, id)
	if err != nil {
		return nil, wrapStorageError(err, "failed to get comment")
	}

	if err := policy.EnforceOwner(actor, c, policy.CommentAuthor); err != nil {
		return nil, err
	}

	return c, nil
}

func (s *srv) EditComment(ctx context.Context, actor *entities.Actor, id int64, in form.CommentInput) (*entities.Comment, error) {
	c, err := s.GetOwnedComment(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	r := form.Comment(in)
	if !r.Valid() {
		return nil, &service.ValidationError{Fields: r.Errors}
	}

	c.Body = r.Fields.Body
	c.UpdatedAt = s.touch(c.CreatedAt)

	if err := s.s.UpdateComment(ctx, c); err != nil {
		return nil, wrapStorageError(err, "failed to update comment")
	}

	return c, nil
}

func (s *srv) DeleteComment(ctx context.Context, actor *entities.Actor, id int64) (*entities.Comment, error) {
	c, err := s.GetOwnedComment(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := s.s.DeleteComment(ctx, id); err != nil {
		return nil, wrapStorageError(err, "failed to delete comment")
	}

	return c, nil
}

func (s *srv) ModerateComments(ctx context.Context, actor *entities.Actor, approve bool, ids []int64) (int64, error) {
	if err := policy.RequireStaff(actor); err != nil {
		return 0, err
	}

	n, err := s.s.SetCommentsApproved(ctx, approve, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to moderate comments: %w", err)
	}

	log.WithField("approved", approve).WithField("count", n).WithField("by", actor.Username).Info("comments moderated")

	return n, nil
}

func (s *srv) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	b, err := s.c.Get(ctx, categoriesCacheKey)
	switch {
	case err == nil:
		var categories []*entities.Category
		if err := json.Unmarshal(b, &categories); err != nil {
			log.WithError(err).Warn("failed to decode cached categories")
			break
		}
		return categories, nil
	case !errors.Is(err, cache.ErrMiss):
		log.WithError(err).Warn("failed to get categories from cache")
	}

	categories, err := s.s.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	if b, err := json.Marshal(categories); err != nil {
		log.WithError(err).Warn("failed to encode categories")
	} else if err := s.c.Set(ctx, categoriesCacheKey, b, categoriesCacheTTL); err != nil {
		log.WithError(err).Warn("failed to cache categories")
	}

	return categories, nil
}

func (s *srv) CreateCategory(ctx context.Context, actor *entities.Actor, in form.CategoryInput) (int64, error) {
	if err := policy.RequireStaff(actor); err != nil {
		return 0, err
	}

	r := form.Category(in)
	if !r.Valid() {
		return 0, &service.ValidationError{Fields: r.Errors}
	}

	id, err := s.s.CreateCategory(ctx, &entities.Category{
		Name:        r.Fields.Name,
		Description: r.Fields.Description,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return 0, service.Invalid("name", "Category with this Name already exists.")
		}
		return 0, fmt.Errorf("failed to create category: %w", err)
	}

	s.invalidateCategories(ctx)

	return id, nil
}

func (s *srv) DeleteCategory(ctx context.Context, actor *entities.Actor, id int64) error {
	if err := policy.RequireStaff(actor); err != nil {
		return err
	}

	if err := s.s.DeleteCategory(ctx, id); err != nil {
		return wrapStorageError(err, "failed to delete category")
	}

	s.invalidateCategories(ctx)

	return nil
}

func (s *srv) Signup(ctx context.Context, in form.SignupInput) (*entities.User, error) {
	r := form.Signup(in)
	if !r.Valid() {
		return nil, &service.ValidationError{Fields: r.Errors}
	}

	hash, err := auth.HashPassword(r.Fields.Password)
	if err != nil {
		return nil, err
	}

	u := &entities.User{
		Username:     r.Fields.Username,
		Email:        r.Fields.Email,
		PasswordHash: hash,
		CreatedAt:    s.timestamp(),
	}

	if err := s.s.InTx(ctx, func(s storage.Storage) error {
		id, err := s.CreateUser(ctx, u)
		if err != nil {
			return err
		}
		u.ID = id

		return s.SetProfile(ctx, &entities.Profile{UserID: id})
	}); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, service.Invalid("username", "A user with that username already exists.")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.WithField("username", u.Username).Info("user signed up")

	return u, nil
}

func (s *srv) Authenticate(ctx context.Context, username, password string) (*entities.User, error) {
	u, err := s.s.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, service.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, service.ErrInvalidCredentials
	}

	return u, nil
}

func (s *srv) GetOrCreateProfile(ctx context.Context, username string) (*entities.Profile, error) {
	u, err := s.s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, wrapStorageError(err, "failed to get user")
	}

	return s.getOrCreateProfile(ctx, u.ID, u.Username)
}

func (s *srv) getOrCreateProfile(ctx context.Context, userID int64, username string) (*entities.Profile, error) {
	p, err := s.s.GetProfile(ctx, userID)
	switch {
	case err == nil:
		return p, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	p = &entities.Profile{UserID: userID, Username: username}
	if err := s.s.SetProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return p, nil
}

func (s *srv) UpdateProfile(ctx context.Context, actor *entities.Actor, in form.ProfileInput) (*entities.Profile, error) {
	if actor == nil {
		return nil, service.ErrUnauthenticated
	}

	r := form.ProfileFields(in, s.now())
	if !r.Valid() {
		return nil, &service.ValidationError{Fields: r.Errors}
	}

	p, err := s.getOrCreateProfile(ctx, actor.UserID, actor.Username)
	if err != nil {
		return nil, err
	}

	if err := policy.EnforceOwner(actor, p, policy.ProfileOwner); err != nil {
		return nil, err
	}

	p.Bio = r.Fields.Bio
	p.DateOfBirth = r.Fields.DateOfBirth

	if err := s.s.SetProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return p, nil
}

func (s *srv) SendContactMessage(ctx context.Context, in form.ContactInput) (bool, error) {
	r := form.Contact(in)
	if !r.Valid() {
		return false, &service.ValidationError{Fields: r.Errors}
	}

	return s.sender.Send(ctx, contact.Message{
		Name:    r.Fields.Name,
		Email:   r.Fields.Email,
		Message: r.Fields.Message,
	}), nil
}

// touch returns modification time which is never before created.
func (s *srv) touch(created time.Time) time.Time {
	now := s.timestamp()
	if now.Before(created) {
		return created
	}

	return now
}

func (s *srv) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}

	if _, err := s.s.GetCategory(ctx, *id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return service.Invalid("category", "Select a valid choice.")
		}
		return fmt.Errorf("failed to get category: %w", err)
	}

	return nil
}

func (s *srv) invalidateCategories(ctx context.Context) {
	if err := s.c.Delete(ctx, categoriesCacheKey); err != nil {
		log.WithError(err).Warn("failed to invalidate categories cache")
	}
}

func wrapStorageError(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return service.ErrNotFound
	}

	return fmt.Errorf("%s: %w", msg, err)
}
