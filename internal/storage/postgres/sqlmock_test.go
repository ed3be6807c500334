package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/animenexus/internal/entities"
	"github.com/Decentr-net/animenexus/internal/storage"
)

var postColumns = []string{
	"id", "title", "content", "cover_image", "author_id", "author",
	"category_id", "category", "featured", "created_at", "updated_at", "published_at",
}

func newMock(t *testing.T) (storage.Storage, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(db), mock
}

func TestPg_GetPost_Mock(t *testing.T) {
	s, mock := newMock(t)
	ctx := context.Background()
	now := time.Unix(100, 0).UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow(int64(1), "T", "C", "", int64(2), "ann", nil, "", false, now, now, nil))

	p, err := s.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, &entities.Post{
		ID:        1,
		Title:     "T",
		Content:   "C",
		AuthorID:  2,
		Author:    "ann",
		CreatedAt: now,
		UpdatedAt: now,
	}, p)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE p.id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(postColumns))

	_, err = s.GetPost(ctx, 2)
	require.Equal(t, storage.ErrNotFound, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPg_ListPosts_Mock(t *testing.T) {
	s, mock := newMock(t)
	now := time.Unix(100, 0).UTC()
	category := "Best Movies"

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE LOWER(c.name) = LOWER($1) ORDER BY p.featured DESC, p.created_at DESC, p.id DESC LIMIT $2 OFFSET $3",
	)).
		WithArgs("best movies", int64(6), int64(12)).
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow(int64(5), "T", "C", "cover", int64(2), "ann", int64(3), category, true, now, now, now))

	f := "best movies"
	posts, err := s.ListPosts(context.Background(), storage.ListPostsParams{
		PostsFilter: storage.PostsFilter{Category: &f},
		Limit:       6,
		Offset:      12,
	})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.NotNil(t, posts[0].CategoryID)
	assert.EqualValues(t, 3, *posts[0].CategoryID)
	assert.Equal(t, category, posts[0].Category)
	require.NotNil(t, posts[0].PublishedAt)
	assert.True(t, posts[0].Featured)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPg_CountPosts_Mock(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM post p LEFT JOIN category c ON c.id = p.category_id")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(13)))

	n, err := s.CountPosts(context.Background(), storage.PostsFilter{})
	require.NoError(t, err)
	require.Equal(t, 13, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPg_DeletePost_Mock(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM post WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.DeletePost(context.Background(), 3))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM post WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.Equal(t, storage.ErrNotFound, s.DeletePost(context.Background(), 3))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPg_CreateUser_Duplicate(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "user"`)).
		WithArgs("ann", "", "hash", false, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "user_username_key"})

	_, err := s.CreateUser(context.Background(), &entities.User{Username: "ann", PasswordHash: "hash", CreatedAt: time.Now()})
	require.True(t, errors.Is(err, storage.ErrAlreadyExists))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPg_CreateComment_MissingPost(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO comment")).
		WithArgs(int64(1), int64(2), "hi", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: foreignKeyViolation, Constraint: "comment_post_id_fkey"})

	now := time.Now()
	_, err := s.CreateComment(context.Background(), &entities.Comment{PostID: 1, UserID: 2, Body: "hi", CreatedAt: now, UpdatedAt: now})
	require.Equal(t, storage.ErrNotFound, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPg_SetCommentsApproved_Mock(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE comment SET approved = $1 WHERE id IN ($2, $3)")).
		WithArgs(true, int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.SetCommentsApproved(context.Background(), true, []int64{1, 2})
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	n, err = s.SetCommentsApproved(context.Background(), true, nil)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPg_InTx_Mock(t *testing.T) {
	s, mock := newMock(t)
	errTest := errors.New("test")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM comment WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	require.Equal(t, errTest, s.InTx(context.Background(), func(s storage.Storage) error {
		require.NoError(t, s.DeleteComment(context.Background(), 1))
		return errTest
	}))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profile")).
		WithArgs(int64(1), nil, "bio").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.InTx(context.Background(), func(s storage.Storage) error {
		require.Equal(t, errBeginCalledWithinTx, s.InTx(context.Background(), func(storage.Storage) error { return nil }))
		return s.SetProfile(context.Background(), &entities.Profile{UserID: 1, Bio: "bio"})
	}))

	require.NoError(t, mock.ExpectationsWereMet())
}
