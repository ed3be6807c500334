// Package form contains validation functions for every input shape accepted by the service.
// Each function returns a Result which is either valid with cleaned fields or invalid with field errors.
package form

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTitleLength        = 200
	maxCategoryNameLength = 255
	maxNameLength         = 100
	maxUsernameLength     = 150
	minPasswordLength     = 8

	dateLayout = "2006-01-02"
)

// nolint:gochecknoglobals
var (
	emailRegexp    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegexp = regexp.MustCompile(`^[\w.@+-]+$`)
)

// Errors maps field name to the error message shown next to the field.
type Errors map[string]string

// Error implements error interface.
func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for k, v := range e {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v))
	}

	return strings.Join(parts, "; ")
}

// Result is an outcome of validation.
type Result[T any] struct {
	Fields T
	Errors Errors
}

// Valid ...
func (r Result[T]) Valid() bool {
	return len(r.Errors) == 0
}

func newResult[T any](fields T, errs Errors) Result[T] {
	if len(errs) == 0 {
		return Result[T]{Fields: fields}
	}

	return Result[T]{Fields: fields, Errors: errs}
}

// PostInput ...
type PostInput struct {
	Title      string
	Content    string
	CategoryID *int64
	CoverImage string
}

// PostPatch contains changed post fields. nil means unchanged, CategoryID pointing to 0 clears category.
type PostPatch struct {
	Title      *string
	Content    *string
	CategoryID *int64
	CoverImage *string
}

// CommentInput ...
type CommentInput struct {
	Body string
}

// ContactInput ...
type ContactInput struct {
	Name    string
	Email   string
	Message string
}

// SignupInput ...
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// ProfileInput ...
type ProfileInput struct {
	Bio         string
	DateOfBirth string
}

// Profile is cleaned ProfileInput.
type Profile struct {
	Bio         string
	DateOfBirth *time.Time
}

// CategoryInput ...
type CategoryInput struct {
	Name        string
	Description string
}

// Post validates new post fields.
func Post(in PostInput) Result[PostInput] {
	errs := Errors{}

	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.CoverImage = strings.TrimSpace(in.CoverImage)

	checkTitle(errs, in.Title)
	required(errs, "content", in.Content)

	if in.CategoryID != nil && *in.CategoryID <= 0 {
		in.CategoryID = nil
	}

	return newResult(in, errs)
}

// Patch validates changed post fields only.
func Patch(in PostPatch) Result[PostPatch] {
	errs := Errors{}

	if in.Title != nil {
		v := strings.TrimSpace(*in.Title)
		in.Title = &v
		checkTitle(errs, v)
	}

	if in.Content != nil {
		v := strings.TrimSpace(*in.Content)
		in.Content = &v
		required(errs, "content", v)
	}

	if in.CoverImage != nil {
		v := strings.TrimSpace(*in.CoverImage)
		in.CoverImage = &v
	}

	if in.CategoryID != nil && *in.CategoryID < 0 {
		errs["category"] = "Select a valid choice."
	}

	return newResult(in, errs)
}

// Comment ...
func Comment(in CommentInput) Result[CommentInput] {
	errs := Errors{}

	in.Body = strings.TrimSpace(in.Body)
	required(errs, "body", in.Body)

	return newResult(in, errs)
}

// Contact ...
func Contact(in ContactInput) Result[ContactInput] {
	errs := Errors{}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)

	if required(errs, "name", in.Name) {
		maxLength(errs, "name", in.Name, maxNameLength)
	}
	if required(errs, "email", in.Email) && !IsEmail(in.Email) {
		errs["email"] = "Enter a valid email address."
	}
	required(errs, "message", in.Message)

	return newResult(in, errs)
}

// Signup ...
func Signup(in SignupInput) Result[SignupInput] {
	errs := Errors{}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	if required(errs, "username", in.Username) && maxLength(errs, "username", in.Username, maxUsernameLength) {
		if !usernameRegexp.MatchString(in.Username) {
			errs["username"] = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
		}
	}

	if in.Email != "" && !IsEmail(in.Email) {
		errs["email"] = "Enter a valid email address."
	}

	if required(errs, "password", in.Password) && utf8.RuneCountInString(in.Password) < minPasswordLength {
		errs["password"] = fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength)
	}

	return newResult(in, errs)
}

// ProfileFields validates profile input and parses date of birth.
func ProfileFields(in ProfileInput, now time.Time) Result[Profile] {
	errs := Errors{}
	out := Profile{Bio: strings.TrimSpace(in.Bio)}

	if s := strings.TrimSpace(in.DateOfBirth); s != "" {
		d, err := time.Parse(dateLayout, s)
		switch {
		case err != nil:
			errs["date_of_birth"] = "Enter a valid date."
		case d.After(now):
			errs["date_of_birth"] = "Date of birth can not be in the future."
		default:
			out.DateOfBirth = &d
		}
	}

	return newResult(out, errs)
}

// Category ...
func Category(in CategoryInput) Result[CategoryInput] {
	errs := Errors{}

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if required(errs, "name", in.Name) {
		maxLength(errs, "name", in.Name, maxCategoryNameLength)
	}

	return newResult(in, errs)
}

// IsEmail reports whether s has a syntactic email shape.
func IsEmail(s string) bool {
	if !emailRegexp.MatchString(s) {
		return false
	}

	a, err := mail.ParseAddress(s)

	return err == nil && a.Address == s
}

func checkTitle(errs Errors, title string) {
	if required(errs, "title", title) {
		maxLength(errs, "title", title, maxTitleLength)
	}
}

func required(errs Errors, field, v string) bool {
	if v == "" {
		errs[field] = "This field is required."
		return false
	}

	return true
}

func maxLength(errs Errors, field, v string, n int) bool {
	if l := utf8.RuneCountInString(v); l > n {
		errs[field] = fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", n, l)
		return false
	}

	return true
}
