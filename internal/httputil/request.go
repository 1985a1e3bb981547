package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"notevault/internal/config"
	"notevault/internal/domain"
)

// ParseJSON decodes JSON from the request body into the given destination.
// Bodies over config.MaxRequestBodyBytes yield a domain.PayloadTooLargeError,
// malformed JSON a domain.ValidationError.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &domain.PayloadTooLargeError{
				Message: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
				Limit:   int(maxErr.Limit),
			}
		}
		return &domain.ValidationError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	return nil
}
