package middleware

import (
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RealIP returns a stage that rewrites RemoteAddr from the True-Client-IP,
// X-Real-IP, or X-Forwarded-For headers, in that order of preference.
//
// Install it only behind a trusted reverse proxy: the headers are trivially
// spoofable when the service is reachable directly.
func RealIP() Stage {
	return Stage{
		Name: "real_ip",
		Wrap: chimw.RealIP,
	}
}
