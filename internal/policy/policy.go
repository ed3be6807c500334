// Package policy decides whether an actor may modify an entity.
//
// Ownership is the only rule: an actor may edit or delete a post it authored or a comment it wrote.
// Staff actors get no bypass here; moderation goes through separate administrative operations.
package policy

import (
	"errors"

	"github.com/Decentr-net/animenexus/internal/entities"
)

var (
	// ErrUnauthenticated is returned when the action requires an actor and there is none.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the actor is present but does not own the entity.
	ErrForbidden = errors.New("forbidden")
)

// CanModify reports whether actor may modify an entity owned by owner.
func CanModify(actor *entities.Actor, owner int64) bool {
	return actor != nil && actor.UserID == owner
}

// EnforceOwner checks actor against the owner returned by ownerOf.
func EnforceOwner[T any](actor *entities.Actor, entity T, ownerOf func(T) int64) error {
	if actor == nil {
		return ErrUnauthenticated
	}

	if !CanModify(actor, ownerOf(entity)) {
		return ErrForbidden
	}

	return nil
}

// PostAuthor is the owner field of a post.
func PostAuthor(p *entities.Post) int64 {
	return p.AuthorID
}

// CommentAuthor is the owner field of a comment.
func CommentAuthor(c *entities.Comment) int64 {
	return c.UserID
}

// ProfileOwner is the owner field of a profile.
func ProfileOwner(p *entities.Profile) int64 {
	return p.UserID
}

// CanModifyPost ...
func CanModifyPost(actor *entities.Actor, p *entities.Post) bool {
	return EnforceOwner(actor, p, PostAuthor) == nil
}

// CanModifyComment ...
func CanModifyComment(actor *entities.Actor, c *entities.Comment) bool {
	return EnforceOwner(actor, c, CommentAuthor) == nil
}

// RequireStaff checks that actor is a staff member.
func RequireStaff(actor *entities.Actor) error {
	if actor == nil {
		return ErrUnauthenticated
	}

	if !actor.Staff {
		return ErrForbidden
	}

	return nil
}
