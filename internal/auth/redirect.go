package auth

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	// LoginPath ...
	LoginPath = "/v1/login"
	// HomePath is used when next is missing or unsafe.
	HomePath = "/v1/"
)

// LoginURL returns login location which brings user back to next after login.
func LoginURL(next string) string {
	return LoginPath + "?" + url.Values{"next": []string{SafeNext(next)}}.Encode()
}

// RedirectToLogin answers with 303 to login page. The original request is never replayed.
func RedirectToLogin(w http.ResponseWriter, r *http.Request, next string) {
	http.Redirect(w, r, LoginURL(next), http.StatusSeeOther)
}

// SafeNext returns next if it is a local path, HomePath otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return HomePath
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return HomePath
	}

	return next
}
