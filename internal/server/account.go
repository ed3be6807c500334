package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/Decentr-net/animenexus/internal/api"
	"github.com/Decentr-net/animenexus/internal/auth"
	"github.com/Decentr-net/animenexus/internal/entities"
	"github.com/Decentr-net/animenexus/internal/form"
	"github.com/Decentr-net/animenexus/internal/service"
)

func (s server) signup(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /signup Accounts Signup
	//
	// Creates user with an empty profile and logs it in.
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
	//     "$ref": "#/definitions/SignupRequest"
	// responses:
	//   '201':
	//     description: User is created
	//     schema:
	//       "$ref": "#/definitions/User"
	//   '400':
	//     description: invalid input
	//     schema:
	//       "$ref": "#/definitions/Error"

	var req SignupRequest
	if !decode(w, r, &req) {
		return
	}

	u, err := s.s.Signup(r.Context(), form.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if !s.issueSession(w, r, u) {
		return
	}

	api.WriteOK(w, http.StatusCreated, User{ID: u.ID, Username: u.Username, Email: u.Email})
}

func (s server) login(w http.ResponseWriter, r *http.Request) {
	// swagger:operation POST /login Accounts Login
	//
	// Logs user in. The response contains a local location from next query parameter to continue with.
	//
	// ---
	// consumes:
	// - application/json
	// produces:
	// - application/json
	// parameters:
	// - name: next
	//   in: query
	//   required: false
	//   type: string
	//   example: /v1/posts/1
	// - name: request
	//   in: body
	//   required: true
	//   schema:
	//     "$ref": "#/definitions/LoginRequest"
	// responses:
	//   '200':
	//     description: User is logged in
	//     schema:
	//       "$ref": "#/definitions/MessageResponse"
	//   '400':
	//     description: invalid credentials
	//     schema:
	//       "$ref": "#/definitions/Error"

	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	u, err := s.s.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			api.WriteError(w, http.StatusBadRequest, "Please enter a correct username and password.")
			return
		}
		api.WriteInternalErrorf(r.Context(), w, "failed to authenticate: %s", err.Error())
		return
	}

	if !s.issueSession(w, r, u) {
		return
	}

	api.WriteOK(w, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Welcome back, %s! 🎉", u.Username),
		Next:    auth.SafeNext(r.URL.Query().Get("next")),
	})
}

func (s server) logout(w http.ResponseWriter, _ *http.Request) {
	s.sessions.Clear(w)

	api.WriteOK(w, http.StatusOK, MessageResponse{Message: "You have signed out.", Next: auth.HomePath})
}

func (s server) issueSession(w http.ResponseWriter, r *http.Request, u *entities.User) bool {
	if err := s.sessions.Issue(w, u); err != nil {
		api.WriteInternalErrorf(r.Context(), w, "failed to issue session: %s", err.Error())
		return false
	}

	return true
}

func (s server) getProfile(w http.ResponseWriter, r *http.Request) {
	// swagger:operation GET /profile/{username} Accounts GetProfile
	//
	// Returns user's profile. Profile is created on first access.
	//
	// ---
	// produces:
	// - application/json
	// parameters:
	// - name: username
	//   in: path
	//   required: true
	//   type: string
	// responses:
	//   '200':
	//     description: Profile
	//     schema:
	//       "$ref": "#/definitions/Profile"
	//   '404':
	//     description: user not found
	//     schema:
	//       "$ref": "#/definitions/Error"

	s.writeProfile(w, r, chi.URLParam(r, "username"))
}

func (s server) getOwnProfile(w http.ResponseWriter, r *http.Request) {
	s.writeProfile(w, r, auth.ActorFrom(r.Context()).Username)
}

func (s server) writeProfile(w http.ResponseWriter, r *http.Request, username string) {
	p, err := s.s.GetOrCreateProfile(r.Context(), username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, toProfile(p))
}

func (s server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !decode(w, r, &req) {
		return
	}

	p, err := s.s.UpdateProfile(r.Context(), auth.ActorFrom(r.Context()), form.ProfileInput{
		Bio:         req.Bio,
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	api.WriteOK(w, http.StatusOK, toProfile(p))
}
