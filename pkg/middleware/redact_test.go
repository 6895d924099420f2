package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactorIsSensitive(t *testing.T) {
	r := NewRedactor("X-Api-Key")

	assert.True(t, r.IsSensitive("Authorization"))
	assert.True(t, r.IsSensitive("authorization"))
	assert.True(t, r.IsSensitive("AUTHORIZATION"))
	assert.True(t, r.IsSensitive("Cookie"))
	assert.True(t, r.IsSensitive("x-api-key"))
	assert.False(t, r.IsSensitive("Content-Type"))
	assert.False(t, r.IsSensitive("Accept"))
}

func TestRedactorClean(t *testing.T) {
	t.Run("replaces sensitive values", func(t *testing.T) {
		red := NewRedactor()
		h := http.Header{}
		h.Set("Authorization", "Bearer token123")
		h.Set("Content-Type", "application/json")
		h.Add("Accept", "application/json")
		h.Add("Accept", "text/plain")

		cleaned := red.Clean(h)

		assert.Equal(t, []string{RedactedValue}, cleaned["Authorization"])
		assert.Equal(t, "application/json", cleaned.Get("Content-Type"))
		assert.Equal(t, []string{"application/json", "text/plain"}, cleaned["Accept"])

		// Original is untouched
		assert.Equal(t, "Bearer token123", h.Get("Authorization"))
	})

	t.Run("no sensitive headers returns input unchanged", func(t *testing.T) {
		red := NewRedactor()
		h := http.Header{}
		h.Set("Content-Type", "application/json")

		cleaned := red.Clean(h)
		assert.Equal(t, h, cleaned)
	})

	t.Run("multi-valued sensitive header collapses to one value", func(t *testing.T) {
		red := NewRedactor()
		h := http.Header{}
		h.Add("Cookie", "a=1")
		h.Add("Cookie", "b=2")

		cleaned := red.Clean(h)
		assert.Equal(t, []string{RedactedValue}, cleaned["Cookie"])
	})
}

func TestRedactorValue(t *testing.T) {
	red := NewRedactor()
	h := http.Header{}
	h.Set("Authorization", "Bearer token123")
	h.Set("Content-Type", "application/json")

	assert.Equal(t, RedactedValue, red.Value(h, "Authorization"))
	assert.Equal(t, "application/json", red.Value(h, "Content-Type"))
	assert.Equal(t, "", red.Value(h, "X-Missing"))

	// Absent sensitive header reads as empty, not redacted
	assert.Equal(t, "", red.Value(h, "Cookie"))
}

func TestRedactStageInstallsRedactor(t *testing.T) {
	custom := NewRedactor("X-Api-Key")

	var seen *Redactor
	h := Redact(custom).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RedactorFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen)
	assert.Same(t, custom, seen)
	assert.True(t, seen.IsSensitive("X-Api-Key"))
}

func TestRedactorFromDefaults(t *testing.T) {
	red := RedactorFrom(context.Background())
	require.NotNil(t, red)
	assert.True(t, red.IsSensitive("Authorization"))
	assert.False(t, red.IsSensitive("X-Api-Key"))
}

func TestRedactNilUsesDefault(t *testing.T) {
	var seen *Redactor
	h := Redact(nil).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RedactorFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, seen)
	assert.True(t, seen.IsSensitive("Authorization"))
}
