package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/Decentr-net/animenexus/internal/api"
	"github.com/Decentr-net/animenexus/internal/auth"
	"github.com/Decentr-net/animenexus/internal/form"
	"github.com/Decentr-net/animenexus/internal/media"
	"github.com/Decentr-net/animenexus/internal/policy"
	"github.com/Decentr-net/animenexus/internal/service"
)

var errInvalidRequest = errors.New("invalid request")

func (s server) home(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET / Posts Home
	//
	// Returns the first posts of the catalog, featured first.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: page
	//   description: 1-indexed page, out of range values are clamped
	//   in: query
	//   required: false
	//   type: integer
	//   default: 1
	// responses:
	//   '200':
	//     description: Posts
	//     schema:
	//       "$ref": "#/definitions/ListPostsResponse"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	s.writePostsPage(w, r, service.ListPostsParams{
		Page:     extractPage(r),
		PageSize: service.HomePageSize,
	})
}

func (s server) listPosts(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts Posts ListPosts
	//
	// Returns a page of posts ordered by featured flag and creation time.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: category
	//   description: filters posts by category name, case-insensitive
	//   in: query
	//   required: false
	//   type: string
	//   example: Best Movies
	// - name: page
	//   description: 1-indexed page, out of range values are clamped
	//   in: query
	//   required: false
	//   type: integer
	//   default: 1
	// responses:
	//   '200':
	//     description: Posts
	//     schema:
	//       "$ref": "#/definitions/ListPostsResponse"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	s.writePostsPage(w, r, service.ListPostsParams{
		Category: r.URL.Query().Get("category"),
		Page:     extractPage(r),
		PageSize: service.DefaultPageSize,
	})
}

func (s server) writePostsPage(w http.ResponseWriter, r *http.Request, p service.ListPostsParams) {
	page, err := s.s.ListPosts(r.Context(), p)
	if err != nil {
		api.WriteInternalErrorf(r.Context(), w, "failed to list posts: %s", err.Error())
		return
	}

	api.WriteOK(w, http.StatusOK, newListPostsResponse(page))
}

func (s server) getPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /posts/{id} Posts GetPost
	//
	// Returns post with its approved comments.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: id
	//   in: path
	//   required: true
	//   type: integer
	// responses:
	//   '200':
	//     description: Post
	//     schema:
	//       "$ref": "#/definitions/PostDetailsResponse"
	//   '404':
	//     description: post not found
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	id, ok := extractID(w, r)
	if !ok {
		return
	}

	post, err := s.s.GetPost(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("failed to get post: %w", err))
		return
	}

	comments, err := s.s.ListApprovedComments(r.Context(), id)
	if err != nil {
		api.WriteInternalErrorf(r.Context(), w, "failed to list comments: %s", err.Error())
		return
	}

	api.WriteOK(w, http.StatusOK, PostDetailsResponse{
		Post:     toPost(post),
		Comments: newComments(comments),
		CanEdit:  policy.CanModifyPost(auth.ActorFrom(r.Context()), post),
	})
}

func (s server) createPost(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /posts Posts CreatePost
	//
	// Creates a post authored by requester.
	//
	// ---
	// consumes:
	// - application/json
	// produces:
	// - application/json
	// parameters:
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/CreatePostRequest"
	// responses:
	//   '201':
	//     description: Post is created
	//     schema:
	//       "$ref": "#/definitions/IDResponse"
	//   '303':
	//     description: requester is not logged in
	//   '400':
	//     description: invalid input
	//     schema:
	//       "$ref": "#/definitions/Error"

	var req CreatePostRequest
	if !decode(w, r, &req) {
		return
	}

	id, err := s.s.CreatePost(r.Context(), auth.ActorFrom(r.Context()), form.PostInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/v1/posts/%d", id))
	api.WriteOK(w, http.StatusCreated, IDResponse{ID: id})
}

// getOwnedPost returns post for edit form or delete confirmation.
func (s server) getOwnedPost(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r)
	if !ok {
		return
	}

	post, err := s.s.GetOwnedPost(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, toPost(post))
}

func (s server) editPost(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r)
	if !ok {
		return
	}

	var req EditPostRequest
	if !decode(w, r, &req) {
		return
	}

	post, err := s.s.EditPost(r.Context(), auth.ActorFrom(r.Context()), id, form.PostPatch{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: req.CategoryID,
		CoverImage: req.CoverImage,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, toPost(post))
}

func (s server) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r)
	if !ok {
		return
	}

	if err := s.s.DeletePost(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, MessageResponse{Message: "Post deleted.", Next: auth.HomePath})
}

func (s server) publishPost(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r)
	if !ok {
		return
	}

	post, err := s.s.PublishPost(r.Context(), auth.ActorFrom(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, toPost(post))
}

func (s server) uploadCover(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /covers Posts UploadCover
	//
	// Uploads cover image. Returned url is used as cover_image of a post.
	//
	// ---
	// consumes:
	// - multipart/form-data
	// produces:
	// - application/json
	// parameters:
	// - name: cover_image
	//   in: formData
	//   required: true
	//   type: file
	// responses:
	//   '201':
	//     description: Cover is uploaded
	//     schema:
	//       "$ref": "#/definitions/CoverResponse"
	//   '400':
	//     description: invalid input
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '503':
	//     description: uploads are disabled
	//     schema:
	//       "$ref": "#/definitions/Error"

	if err := r.ParseMultipartForm(maxCoverSize); err != nil {
		api.WriteError(w, http.StatusBadRequest, errInvalidRequest.Error())
		return
	}

	f, h, err := r.FormFile("cover_image")
	if err != nil {
		api.WriteValidationError(w, map[string]string{"cover_image": "This field is required."})
		return
	}
	defer f.Close() // nolint:errcheck

	url, err := s.s.UploadCover(r.Context(), auth.ActorFrom(r.Context()), service.Cover{
		Filename:    h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		if errors.Is(err, media.ErrDisabled) {
			api.WriteError(w, http.StatusServiceUnavailable, "uploads are disabled")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusCreated, CoverResponse{URL: url})
}

func (s server) listCategories(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /categories Categories ListCategories
	//
	// Returns all categories ordered by name.
	//
	// ---
	// produces:
	// - application/json
	// responses:
	//   '200':
	//     description: Categories
	//     schema:
	//       type: array
	//       items:
	//         "$ref": "#/definitions/Category"
	//   '500':
	//     description: internal server error
	//     schema:
	//       "$ref": "#/definitions/Error"

	categories, err := s.s.ListCategories(r.Context())
	if err != nil {
		api.WriteInternalErrorf(r.Context(), w, "failed to list categories: %s", err.Error())
		return
	}

	api.WriteOK(w, http.StatusOK, newCategories(categories))
}

func (s server) sendContactMessage(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /contact Contact SendContactMessage
	//
	// Sends contact form message. Delivery is attempted once.
	//
	// ---
	// consumes:
	// - application/json
	// produces:
	// - application/json
	// parameters:
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/ContactRequest"
	// responses:
	//   '200':
	//     description: Message is sent
	//     schema:
	//       "$ref": "#/definitions/MessageResponse"
	//   '400':
	//     description: invalid input
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '429':
	//     description: too many requests
	//     schema:
	//       "$ref": "#/definitions/Error"
	//   '503':
	//     description: message is not sent
	//     schema:
	//       "$ref": "#/definitions/Error"

	var req ContactRequest
	if !decode(w, r, &req) {
		return
	}

	sent, err := s.s.SendContactMessage(r.Context(), form.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if !sent {
		api.WriteError(w, http.StatusServiceUnavailable, "Failed to send your message. Please try again later.")
		return
	}

	api.WriteOK(w, http.StatusOK, MessageResponse{Message: "Your message has been sent successfully!"})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.WriteError(w, http.StatusBadRequest, errInvalidRequest.Error())
		return false
	}

	return true
}

// extractID parses id path parameter. Malformed ids are answered as not found.
func extractID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		api.WriteError(w, http.StatusNotFound, "not found")
		return 0, false
	}

	return id, true
}

// extractPage parses page query parameter. Malformed values mean the first page.
func extractPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}

	return page
}
