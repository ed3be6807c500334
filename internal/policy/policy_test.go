package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/animenexus/internal/entities"
)

func TestEnforceOwner(t *testing.T) {
	post := &entities.Post{ID: 1, AuthorID: 10}

	tt := []struct {
		name  string
		actor *entities.Actor
		err   error
	}{
		{
			name:  "owner",
			actor: &entities.Actor{UserID: 10},
		},
		{
			name:  "other",
			actor: &entities.Actor{UserID: 11},
			err:   ErrForbidden,
		},
		{
			name:  "staff_is_not_owner",
			actor: &entities.Actor{UserID: 12, Staff: true},
			err:   ErrForbidden,
		},
		{
			name: "anonymous",
			err:  ErrUnauthenticated,
		},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.err, EnforceOwner(tc.actor, post, PostAuthor))
		})
	}
}

func TestCanModifyComment(t *testing.T) {
	c := &entities.Comment{ID: 1, PostID: 2, UserID: 3}

	require.True(t, CanModifyComment(&entities.Actor{UserID: 3}, c))
	require.False(t, CanModifyComment(&entities.Actor{UserID: 2}, c))
	require.False(t, CanModifyComment(nil, c))

	// same inputs, same answer
	require.Equal(t, CanModifyComment(&entities.Actor{UserID: 3}, c), CanModifyComment(&entities.Actor{UserID: 3}, c))
}

func TestCanModifyPost(t *testing.T) {
	p := &entities.Post{AuthorID: 5}

	require.True(t, CanModifyPost(&entities.Actor{UserID: 5}, p))
	require.False(t, CanModifyPost(&entities.Actor{UserID: 6}, p))
	require.False(t, CanModifyPost(nil, p))
}

func TestRequireStaff(t *testing.T) {
	require.Equal(t, ErrUnauthenticated, RequireStaff(nil))
	require.Equal(t, ErrForbidden, RequireStaff(&entities.Actor{UserID: 1}))
	require.NoError(t, RequireStaff(&entities.Actor{UserID: 1, Staff: true}))
}
