package httperr

import "net/http"

// NotFoundHandler replies with the standard envelope for unknown routes.
//
// Installed as the router fallback so unmatched paths never produce a
// plain-text body.
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Write(w, r, New(http.StatusNotFound, "method_not_found", "method not found"))
	}
}

// MethodNotAllowedHandler replies with the standard envelope for known
// routes hit with an unsupported HTTP method.
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		Write(w, r, New(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed"))
	}
}
