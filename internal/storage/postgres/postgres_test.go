//go:build integration
// +build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	m "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Decentr-net/animenexus/internal/entities"
	"github.com/Decentr-net/animenexus/internal/storage"
)

var (
	db  *sql.DB
	ctx = context.Background()
	s   storage.Storage
)

func TestMain(m *testing.M) {
	shutdown := setup()

	s = New(db)

	code := m.Run()
	shutdown()
	os.Exit(code)
}

func setup() func() {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:12",
		Env:          map[string]string{"POSTGRES_PASSWORD": "root"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp"),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		logrus.WithError(err).Fatalf("failed to create container")
	}

	host, err := c.Host(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("failed to get host")
	}

	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		logrus.WithError(err).Fatal("failed to map port")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=postgres password=root sslmode=disable", host, port.Int())

	db, err = sql.Open("postgres", dsn)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open connection")
	}

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("failed to ping postgres")
	}

	shutdownFn := func() {
		if c != nil {
			c.Terminate(ctx)
		}
	}

	migrate("postgres", "root", host, "postgres", port.Int())

	return shutdownFn
}

func migrate(username, password, hostname, dbname string, port int) {
	_, currFile, _, ok := runtime.Caller(0)
	if !ok {
		logrus.Fatal("failed to get current file location")
	}

	migrations := filepath.Join(currFile, "../../../../scripts/migrations/postgres/")

	migrator, err := m.New(
		fmt.Sprintf("file://%s", migrations),
		fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			username, password, hostname, port, dbname),
	)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create migrator")
	}
	defer migrator.Close()

	if err := migrator.Up(); err != nil {
		logrus.WithError(err).Fatal("failed to migrate")
	}
}

func cleanup(t *testing.T) {
	_, err := db.ExecContext(ctx, `DELETE FROM comment`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM post`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM category`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM profile`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `DELETE FROM "user"`)
	require.NoError(t, err)
}

func createUser(t *testing.T, username string) int64 {
	id, err := s.CreateUser(ctx, &entities.User{Username: username, PasswordHash: "hash", CreatedAt: time.Now()})
	require.NoError(t, err)

	return id
}

func createPost(t *testing.T, author int64, title string, category *int64, featured bool, createdAt time.Time) int64 {
	id, err := s.CreatePost(ctx, &entities.Post{
		Title:      title,
		Content:    "content",
		AuthorID:   author,
		CategoryID: category,
		Featured:   featured,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	})
	require.NoError(t, err)

	return id
}

func TestPg_Users(t *testing.T) {
	defer cleanup(t)

	id := createUser(t, "ann")

	u, err := s.GetUserByUsername(ctx, "ann")
	require.NoError(t, err)
	require.Equal(t, id, u.ID)

	_, err = s.CreateUser(ctx, &entities.User{Username: "ann", PasswordHash: "hash", CreatedAt: time.Now()})
	require.True(t, errors.Is(err, storage.ErrAlreadyExists))

	_, err = s.GetUserByID(ctx, id+1)
	require.Equal(t, storage.ErrNotFound, err)
}

func TestPg_Profile(t *testing.T) {
	defer cleanup(t)

	id := createUser(t, "ann")

	_, err := s.GetProfile(ctx, id)
	require.Equal(t, storage.ErrNotFound, err)

	dob := time.Date(1990, 5, 6, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SetProfile(ctx, &entities.Profile{UserID: id, Bio: "bio"}))
	require.NoError(t, s.SetProfile(ctx, &entities.Profile{UserID: id, Bio: "new bio", DateOfBirth: &dob}))

	p, err := s.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ann", p.Username)
	assert.Equal(t, "new bio", p.Bio)
	require.NotNil(t, p.DateOfBirth)
	assert.Equal(t, dob.Format("2006-01-02"), p.DateOfBirth.Format("2006-01-02"))
}

func TestPg_ListPosts(t *testing.T) {
	defer cleanup(t)

	author := createUser(t, "ann")
	cat, err := s.CreateCategory(ctx, &entities.Category{Name: "Best Movies"})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	p1 := createPost(t, author, "old", &cat, false, now.Add(-3*time.Hour))
	p2 := createPost(t, author, "new", nil, false, now.Add(-time.Hour))
	p3 := createPost(t, author, "featured old", &cat, true, now.Add(-4*time.Hour))
	p4 := createPost(t, author, "featured new", nil, true, now.Add(-2*time.Hour))

	posts, err := s.ListPosts(ctx, storage.ListPostsParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, posts, 4)
	assert.Equal(t, []int64{p4, p3, p2, p1}, []int64{posts[0].ID, posts[1].ID, posts[2].ID, posts[3].ID})
	assert.Equal(t, "ann", posts[0].Author)

	f := "BEST movies"
	posts, err = s.ListPosts(ctx, storage.ListPostsParams{PostsFilter: storage.PostsFilter{Category: &f}, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, p1, posts[0].ID)
	assert.Equal(t, "Best Movies", posts[0].Category)

	n, err := s.CountPosts(ctx, storage.PostsFilter{Category: &f})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// category delete keeps posts
	require.NoError(t, s.DeleteCategory(ctx, cat))
	p, err := s.GetPost(ctx, p1)
	require.NoError(t, err)
	assert.Nil(t, p.CategoryID)
	assert.Empty(t, p.Category)
}

func TestPg_UpdatePost(t *testing.T) {
	defer cleanup(t)

	author := createUser(t, "ann")
	now := time.Now().UTC().Truncate(time.Second)
	id := createPost(t, author, "title", nil, false, now)

	p, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	require.Equal(t, p.CreatedAt.Unix(), p.UpdatedAt.Unix())

	p.Title = "new"
	p.UpdatedAt = now.Add(time.Minute)
	p.PublishedAt = &p.UpdatedAt
	require.NoError(t, s.UpdatePost(ctx, p))

	p, err = s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new", p.Title)
	assert.Equal(t, now.Add(time.Minute).Unix(), p.UpdatedAt.Unix())
	require.NotNil(t, p.PublishedAt)

	p.ID = id + 100
	require.Equal(t, storage.ErrNotFound, s.UpdatePost(ctx, p))
}

func TestPg_DeletePost_Cascade(t *testing.T) {
	defer cleanup(t)

	author := createUser(t, "ann")
	now := time.Now()
	id := createPost(t, author, "title", nil, false, now)

	cid, err := s.CreateComment(ctx, &entities.Comment{PostID: id, UserID: author, Body: "hi", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	require.NoError(t, s.DeletePost(ctx, id))
	require.Equal(t, storage.ErrNotFound, s.DeletePost(ctx, id))

	_, err = s.GetComment(ctx, cid)
	require.Equal(t, storage.ErrNotFound, err)
}

func TestPg_Comments(t *testing.T) {
	defer cleanup(t)

	author := createUser(t, "ann")
	now := time.Now().UTC().Truncate(time.Second)
	post := createPost(t, author, "title", nil, false, now)

	_, err := s.CreateComment(ctx, &entities.Comment{PostID: post + 1, UserID: author, Body: "hi", CreatedAt: now, UpdatedAt: now})
	require.Equal(t, storage.ErrNotFound, err)

	c1, err := s.CreateComment(ctx, &entities.Comment{PostID: post, UserID: author, Body: "first", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	c2, err := s.CreateComment(ctx, &entities.Comment{PostID: post, UserID: author, Body: "second", CreatedAt: now.Add(time.Minute), UpdatedAt: now.Add(time.Minute)})
	require.NoError(t, err)

	approved := true
	list, err := s.ListComments(ctx, storage.ListCommentsParams{PostID: post, Approved: &approved})
	require.NoError(t, err)
	require.Empty(t, list)

	n, err := s.SetCommentsApproved(ctx, true, []int64{c1, c2})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	list, err = s.ListComments(ctx, storage.ListCommentsParams{PostID: post, Approved: &approved})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c2, list[0].ID)
	assert.Equal(t, c1, list[1].ID)
	assert.Equal(t, "ann", list[0].Username)

	c, err := s.GetComment(ctx, c1)
	require.NoError(t, err)
	c.Body = "edited"
	c.UpdatedAt = now.Add(time.Hour)
	require.NoError(t, s.UpdateComment(ctx, c))

	c, err = s.GetComment(ctx, c1)
	require.NoError(t, err)
	assert.Equal(t, "edited", c.Body)
	assert.True(t, c.Approved)

	require.NoError(t, s.DeleteComment(ctx, c1))
	require.Equal(t, storage.ErrNotFound, s.DeleteComment(ctx, c1))
}

func TestPg_PostCovers(t *testing.T) {
	defer cleanup(t)

	author := createUser(t, "ann")
	id := createPost(t, author, "title", nil, false, time.Now())
	createPost(t, author, "no cover", nil, false, time.Now())

	require.NoError(t, s.SetPostCover(ctx, id, "media/covers/a.jpg"))

	covers, err := s.ListPostCovers(ctx)
	require.NoError(t, err)
	require.Equal(t, []storage.PostCover{{PostID: id, Cover: "media/covers/a.jpg"}}, covers)
}

func TestPg_Categories(t *testing.T) {
	defer cleanup(t)

	_, err := s.CreateCategory(ctx, &entities.Category{Name: "b"})
	require.NoError(t, err)
	id, err := s.CreateCategory(ctx, &entities.Category{Name: "a", Description: "desc"})
	require.NoError(t, err)

	_, err = s.CreateCategory(ctx, &entities.Category{Name: "a"})
	require.True(t, errors.Is(err, storage.ErrAlreadyExists))

	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)

	c, err := s.GetCategory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "desc", c.Description)

	require.NoError(t, s.DeleteCategory(ctx, id))
	require.Equal(t, storage.ErrNotFound, s.DeleteCategory(ctx, id))
}
