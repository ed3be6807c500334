package server

import (
	"fmt"
	"net/http"

	"github.com/Decentr-net/animenexus/internal/api"
	"github.com/Decentr-net/animenexus/internal/auth"
	"github.com/Decentr-net/animenexus/internal/form"
)

const awaitingModerationMessage = "Your comment has been submitted and is awaiting moderation."

func (s server) submitComment(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts/{id}/comments Comments SubmitComment
	//
	// Submits comment to post. Comments are hidden until approved by moderator.
	// Anonymous requests are redirected to login with next pointing to the post; the comment is not kept.
	//
	// ---
	// consumes:
	// - application/json
	// produces:
	// - application/json
	// parameters:
	// - name: id
	//   in: path
	//   required: true
	//   type: integer
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/CommentRequest"
	// responses:
	//   '201':
	//     description: Comment is submitted
	//     schema:
	//       "$ref": "#/definitions/SubmitCommentResponse"
	//   '303':
	//     description: requester is not logged in
	//   '400':
	//     description: invalid input
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '404':
	//     description: post not found
	//     schema:
	//       "$ref": "#/definitions/Error"

	id, ok := extractID(w, r)
	if !ok {
		return
	}

	var req CommentRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := s.s.SubmitComment(r.Context(), auth.ActorFrom(r.Context()), id, form.CommentInput{Body: req.Body})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusCreated, SubmitCommentResponse{
		Comment: toComment(c),
		Message: awaitingModerationMessage,
	})
}

// getOwnedComment returns comment for edit form or delete confirmation.
func (s server) getOwnedComment(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r)
	if !ok {
		return
	}

	c, err := s.s.GetOwnedComment(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, toComment(c))
}

func (s server) editComment(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r)
	if !ok {
		return
	}

	var req CommentRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := s.s.EditComment(r.Context(), auth.ActorFrom(r.Context()), id, form.CommentInput{Body: req.Body})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, toComment(c))
}

func (s server) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r)
	if !ok {
		return
	}

	c, err := s.s.DeleteComment(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, MessageResponse{
		Message: "Comment deleted.",
		Next:    fmt.Sprintf("/v1/posts/%d", c.PostID),
	})
}
