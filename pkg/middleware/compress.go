package middleware

import (
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Compress returns a stage applying gzip/deflate response compression at
// the given level for compressible content types. Compression is skipped
// automatically for responses that already carry a Content-Encoding.
func Compress(level int) Stage {
	if level <= 0 {
		level = 5
	}
	return Stage{
		Name: "compress",
		Wrap: chimw.Compress(level),
	}
}
