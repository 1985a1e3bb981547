package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorWithExtrasFlattensFields(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondErrorWithExtras(rec, http.StatusPreconditionFailed, "stale version", map[string]interface{}{
		"code":            "VERSION_MISMATCH",
		"current_version": 4,
	})

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "VERSION_MISMATCH", body["code"])
	assert.Equal(t, float64(4), body["current_version"])
	assert.Equal(t, "stale version", body["detail"])
	assert.Equal(t, "Precondition Failed", body["title"])
	assert.Contains(t, body["type"], "rfc7232")
}

func TestRespondJSONUnencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondJSON(rec, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
