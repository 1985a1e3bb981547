package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"notevault/internal/config"
	"notevault/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("decodes body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"inbox"}`))
		var p payload
		require.NoError(t, ParseJSON(httptest.NewRecorder(), r, &p))
		assert.Equal(t, "inbox", p.Name)
	})

	t.Run("malformed json", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		var p payload
		err := ParseJSON(httptest.NewRecorder(), r, &p)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("oversized body", func(t *testing.T) {
		body := `{"name":"` + strings.Repeat("a", config.MaxRequestBodyBytes) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var p payload
		err := ParseJSON(httptest.NewRecorder(), r, &p)
		assert.ErrorIs(t, err, domain.ErrPayloadTooLarge)
	})
}
