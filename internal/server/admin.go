package server

import (
	"net/http"

	"github.com/Decentr-net/animenexus/internal/api"
	"github.com/Decentr-net/animenexus/internal/auth"
	"github.com/Decentr-net/animenexus/internal/form"
)

func (s server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !decode(w, r, &req) {
		return
	}

	id, err := s.s.CreateCategory(r.Context(), auth.ActorFrom(r.Context()), form.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusCreated, IDResponse{ID: id})
}

func (s server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := extractID(w, r)
	if !ok {
		return
	}

	if err := s.s.DeleteCategory(r.Context(), auth.ActorFrom(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, MessageResponse{Message: "Category deleted."})
}

// moderateComments approves or rejects selected comments.
func (s server) moderateComments(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ModerateRequest
		if !decode(w, r, &req) {
			return
		}

		n, err := s.s.ModerateComments(r.Context(), auth.ActorFrom(r.Context()), approve, req.IDs)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		api.WriteOK(w, http.StatusOK, ModerateResponse{Updated: n})
	}
}
