// Package postgres is implementation of storage interface.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/Decentr-net/animenexus/internal/entities"
	"github.com/Decentr-net/animenexus/internal/storage"
)

var log = logrus.WithField("layer", "storage").WithField("package", "postgres")
var errBeginCalledWithinTx = errors.New("can not run InTx in tx")

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

const postSelect = `
	SELECT p.id, p.title, p.content, p.cover_image, p.author_id, u.username AS author,
		p.category_id, COALESCE(c.name, '') AS category, p.featured, p.created_at, p.updated_at, p.published_at
	FROM post p
	JOIN "user" u ON u.id = p.author_id
	LEFT JOIN category c ON c.id = p.category_id
`

const commentSelect = `
	SELECT cm.id, cm.post_id, cm.user_id, u.username, cm.body, cm.approved, cm.created_at, cm.updated_at
	FROM comment cm
	JOIN "user" u ON u.id = cm.user_id
`

type pg struct {
	ext sqlx.ExtContext
}

type userDTO struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Staff        bool      `db:"staff"`
	CreatedAt    time.Time `db:"created_at"`
}

type profileDTO struct {
	UserID      int64        `db:"user_id"`
	Username    string       `db:"username"`
	DateOfBirth sql.NullTime `db:"date_of_birth"`
	Bio         string       `db:"bio"`
}

type categoryDTO struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
}

type postDTO struct {
	ID          int64         `db:"id"`
	Title       string        `db:"title"`
	Content     string        `db:"content"`
	CoverImage  string        `db:"cover_image"`
	AuthorID    int64         `db:"author_id"`
	Author      string        `db:"author"`
	CategoryID  sql.NullInt64 `db:"category_id"`
	Category    string        `db:"category"`
	Featured    bool          `db:"featured"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
	PublishedAt sql.NullTime  `db:"published_at"`
}

type commentDTO struct {
	ID        int64     `db:"id"`
	PostID    int64     `db:"post_id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	Body      string    `db:"body"`
	Approved  bool      `db:"approved"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// New creates new instance of pg.
func New(db *sql.DB) storage.Storage {
	return pg{
		ext: sqlx.NewDb(db, "postgres"),
	}
}

func (s pg) InTx(ctx context.Context, f func(s storage.Storage) error) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return errBeginCalledWithinTx
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to create tx: %w", err)
	}

	if err := f(pg{ext: tx}); err != nil {
		if err := tx.Rollback(); err != nil {
			log.WithError(err).Error("failed to rollback tx")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}

	return nil
}

func (s pg) Ping(ctx context.Context) error {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return nil
	}

	return db.PingContext(ctx)
}

func (s pg) CreateUser(ctx context.Context, u *entities.User) (int64, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO "user"(username, email, password_hash, staff, created_at)
			VALUES($1, $2, $3, $4, $5)
			RETURNING id
		`,
		u.Username, u.Email, u.PasswordHash, u.Staff, u.CreatedAt.UTC(),
	); err != nil {
		return 0, wrapExecError(err)
	}

	return id, nil
}

func (s pg) GetUserByID(ctx context.Context, id int64) (*entities.User, error) {
	return s.getUser(ctx, `id = $1`, id)
}

func (s pg) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	return s.getUser(ctx, `username = $1`, username)
}

func (s pg) getUser(ctx context.Context, where string, arg interface{}) (*entities.User, error) {
	var u userDTO

	if err := sqlx.GetContext(ctx, s.ext, &u,
		`SELECT id, username, email, password_hash, staff, created_at FROM "user" WHERE `+where,
		arg,
	); err != nil {
		return nil, wrapQueryError(err)
	}

	return &entities.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Staff:        u.Staff,
		CreatedAt:    u.CreatedAt,
	}, nil
}

func (s pg) GetProfile(ctx context.Context, userID int64) (*entities.Profile, error) {
	var p profileDTO

	if err := sqlx.GetContext(ctx, s.ext, &p, `
			SELECT p.user_id, u.username, p.date_of_birth, p.bio
			FROM profile p
			JOIN "user" u ON u.id = p.user_id
			WHERE p.user_id = $1
		`,
		userID,
	); err != nil {
		return nil, wrapQueryError(err)
	}

	out := &entities.Profile{
		UserID:   p.UserID,
		Username: p.Username,
		Bio:      p.Bio,
	}

	if p.DateOfBirth.Valid {
		out.DateOfBirth = &p.DateOfBirth.Time
	}

	return out, nil
}

func (s pg) SetProfile(ctx context.Context, p *entities.Profile) error {
	var dob sql.NullTime
	if p.DateOfBirth != nil {
		dob = sql.NullTime{Time: *p.DateOfBirth, Valid: true}
	}

	if _, err := s.ext.ExecContext(ctx, `
			INSERT INTO profile(user_id, date_of_birth, bio)
			VALUES($1, $2, $3)
			ON CONFLICT(user_id) DO UPDATE SET
			date_of_birth=excluded.date_of_birth, bio=excluded.bio
		`,
		p.UserID, dob, p.Bio,
	); err != nil {
		return wrapExecError(err)
	}

	return nil
}

func (s pg) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	var c []*categoryDTO

	if err := sqlx.SelectContext(ctx, s.ext, &c, `SELECT id, name, description FROM category ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Category, len(c))
	for i, v := range c {
		out[i] = toCategory(v)
	}

	return out, nil
}

func (s pg) GetCategory(ctx context.Context, id int64) (*entities.Category, error) {
	var c categoryDTO

	if err := sqlx.GetContext(ctx, s.ext, &c, `SELECT id, name, description FROM category WHERE id = $1`, id); err != nil {
		return nil, wrapQueryError(err)
	}

	return toCategory(&c), nil
}

func (s pg) CreateCategory(ctx context.Context, c *entities.Category) (int64, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id,
		`INSERT INTO category(name, description) VALUES($1, $2) RETURNING id`,
		c.Name, c.Description,
	); err != nil {
		return 0, wrapExecError(err)
	}

	return id, nil
}

func (s pg) DeleteCategory(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM category WHERE id = $1`, id)
}

func (s pg) ListPosts(ctx context.Context, p storage.ListPostsParams) ([]*entities.Post, error) {
	where, args := postsWhere(p.PostsFilter)

	query := postSelect + where + ` ORDER BY p.featured DESC, p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`
	args = append(args, p.Limit, p.Offset)

	var posts []*postDTO
	if err := sqlx.SelectContext(ctx, s.ext, &posts, s.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Post, len(posts))
	for i, v := range posts {
		out[i] = toPost(v)
	}

	return out, nil
}

func (s pg) CountPosts(ctx context.Context, f storage.PostsFilter) (int, error) {
	where, args := postsWhere(f)

	var n int
	if err := sqlx.GetContext(ctx, s.ext, &n,
		s.ext.Rebind(`SELECT COUNT(*) FROM post p LEFT JOIN category c ON c.id = p.category_id`+where),
		args...,
	); err != nil {
		return 0, fmt.Errorf("failed to query: %w", err)
	}

	return n, nil
}

func (s pg) GetPost(ctx context.Context, id int64) (*entities.Post, error) {
	var p postDTO

	if err := sqlx.GetContext(ctx, s.ext, &p, postSelect+` WHERE p.id = $1`, id); err != nil {
		return nil, wrapQueryError(err)
	}

	return toPost(&p), nil
}

func (s pg) CreatePost(ctx context.Context, p *entities.Post) (int64, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO post(title, content, cover_image, author_id, category_id, featured, created_at, updated_at, published_at)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id
		`,
		p.Title, p.Content, p.CoverImage, p.AuthorID, nullInt64(p.CategoryID), p.Featured,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(), nullTime(p.PublishedAt),
	); err != nil {
		return 0, wrapExecError(err)
	}

	return id, nil
}

func (s pg) UpdatePost(ctx context.Context, p *entities.Post) error {
	res, err := s.ext.ExecContext(ctx, `
			UPDATE post SET title=$2, content=$3, cover_image=$4, category_id=$5, featured=$6, updated_at=$7, published_at=$8
			WHERE id=$1
		`,
		p.ID, p.Title, p.Content, p.CoverImage, nullInt64(p.CategoryID), p.Featured, p.UpdatedAt.UTC(), nullTime(p.PublishedAt),
	)
	if err != nil {
		return wrapExecError(err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) DeletePost(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM post WHERE id = $1`, id)
}

func (s pg) ListPostCovers(ctx context.Context) ([]storage.PostCover, error) {
	var c []struct {
		ID    int64  `db:"id"`
		Cover string `db:"cover_image"`
	}

	if err := sqlx.SelectContext(ctx, s.ext, &c, `SELECT id, cover_image FROM post WHERE cover_image <> '' ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]storage.PostCover, len(c))
	for i, v := range c {
		out[i] = storage.PostCover{PostID: v.ID, Cover: v.Cover}
	}

	return out, nil
}

func (s pg) SetPostCover(ctx context.Context, id int64, cover string) error {
	res, err := s.ext.ExecContext(ctx, `UPDATE post SET cover_image=$2 WHERE id=$1`, id, cover)
	if err != nil {
		return wrapExecError(err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) ListComments(ctx context.Context, p storage.ListCommentsParams) ([]*entities.Comment, error) {
	query := commentSelect + ` WHERE cm.post_id = ?`
	args := []interface{}{p.PostID}

	if p.Approved != nil {
		query += ` AND cm.approved = ?`
		args = append(args, *p.Approved)
	}

	query += ` ORDER BY cm.created_at DESC, cm.id DESC`

	var c []*commentDTO
	if err := sqlx.SelectContext(ctx, s.ext, &c, s.ext.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	out := make([]*entities.Comment, len(c))
	for i, v := range c {
		out[i] = toComment(v)
	}

	return out, nil
}

func (s pg) GetComment(ctx context.Context, id int64) (*entities.Comment, error) {
	var c commentDTO

	if err := sqlx.GetContext(ctx, s.ext, &c, commentSelect+` WHERE cm.id = $1`, id); err != nil {
		return nil, wrapQueryError(err)
	}

	return toComment(&c), nil
}

func (s pg) CreateComment(ctx context.Context, c *entities.Comment) (int64, error) {
	var id int64

	if err := sqlx.GetContext(ctx, s.ext, &id, `
			INSERT INTO comment(post_id, user_id, body, approved, created_at, updated_at)
			VALUES($1, $2, $3, $4, $5, $6)
			RETURNING id
		`,
		c.PostID, c.UserID, c.Body, c.Approved, c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	); err != nil {
		err = wrapExecError(err)
		if errors.Is(err, storage.ErrInvalidReference) {
			return 0, storage.ErrNotFound
		}
		return 0, err
	}

	return id, nil
}

func (s pg) UpdateComment(ctx context.Context, c *entities.Comment) error {
	res, err := s.ext.ExecContext(ctx,
		`UPDATE comment SET body=$2, updated_at=$3 WHERE id=$1`,
		c.ID, c.Body, c.UpdatedAt.UTC(),
	)
	if err != nil {
		return wrapExecError(err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s pg) DeleteComment(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, `DELETE FROM comment WHERE id = $1`, id)
}

func (s pg) SetCommentsApproved(ctx context.Context, approved bool, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`UPDATE comment SET approved = ? WHERE id IN (?)`, approved, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to construct IN clause: %w", err)
	}

	res, err := s.ext.ExecContext(ctx, s.ext.Rebind(query), args...)
	if err != nil {
		return 0, wrapExecError(err)
	}

	c, _ := res.RowsAffected()

	return c, nil
}

func (s pg) deleteByID(ctx context.Context, query string, id int64) error {
	res, err := s.ext.ExecContext(ctx, query, id)
	if err != nil {
		return wrapExecError(err)
	}

	if c, _ := res.RowsAffected(); c == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func postsWhere(f storage.PostsFilter) (string, []interface{}) {
	if f.Category == nil {
		return "", nil
	}

	return ` WHERE LOWER(c.name) = LOWER(?)`, []interface{}{*f.Category}
}

func wrapQueryError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}

	return fmt.Errorf("failed to query: %w", err)
}

func wrapExecError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, pqErr.Constraint)
		case foreignKeyViolation:
			return fmt.Errorf("%w: %s", storage.ErrInvalidReference, pqErr.Constraint)
		}
	}

	return fmt.Errorf("failed to exec: %w", err)
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}

	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func toCategory(c *categoryDTO) *entities.Category {
	return &entities.Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
	}
}

func toPost(p *postDTO) *entities.Post {
	out := &entities.Post{
		ID:         p.ID,
		Title:      p.Title,
		Content:    p.Content,
		CoverImage: p.CoverImage,
		AuthorID:   p.AuthorID,
		Author:     p.Author,
		Category:   p.Category,
		Featured:   p.Featured,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}

	if p.CategoryID.Valid {
		v := p.CategoryID.Int64
		out.CategoryID = &v
	}

	if p.PublishedAt.Valid {
		v := p.PublishedAt.Time
		out.PublishedAt = &v
	}

	return out
}

func toComment(c *commentDTO) *entities.Comment {
	return &entities.Comment{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		Username:  c.Username,
		Body:      c.Body,
		Approved:  c.Approved,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
