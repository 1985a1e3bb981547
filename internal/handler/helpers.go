package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"notevault/internal/domain"
	"notevault/internal/httputil"

	"github.com/google/uuid"
)

// Problem codes carried in the "code" extra of error responses
const (
	codeInvalidData     = "INVALID_DATA"
	codeNotFound        = "NOT_FOUND"
	codeRootFolder      = "ROOT_FOLDER"
	codeFolderCycle     = "FOLDER_CYCLE"
	codeVersionMismatch = "VERSION_MISMATCH"
	codePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	codeUnauthorized    = "UNAUTHORIZED"
	codeConflict        = "CONFLICT"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var (
		validationErr   *domain.ValidationError
		invalidOpErr    *domain.InvalidOperationError
		preconditionErr *domain.PreconditionFailedError
		tooLargeErr     *domain.PayloadTooLargeError
	)

	switch {
	case errors.Is(err, domain.ErrNotModified):
		w.WriteHeader(http.StatusNotModified)
	case errors.As(err, &validationErr):
		extras := map[string]interface{}{"code": codeInvalidData}
		if len(validationErr.Fields) > 0 {
			extras["fields"] = validationErr.Fields
		}
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, validationErr.Error(), extras)
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondErrorWithExtras(w, http.StatusBadRequest, err.Error(), map[string]interface{}{"code": codeInvalidData})
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondErrorWithExtras(w, http.StatusNotFound, err.Error(), map[string]interface{}{"code": codeNotFound})
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondErrorWithExtras(w, http.StatusUnauthorized, err.Error(), map[string]interface{}{"code": codeUnauthorized})
	case errors.As(err, &invalidOpErr):
		code := codeRootFolder
		if invalidOpErr.Reason == domain.ReasonFolderCycle {
			code = codeFolderCycle
		}
		httputil.RespondErrorWithExtras(w, http.StatusUnprocessableEntity, invalidOpErr.Error(), map[string]interface{}{"code": code})
	case errors.As(err, &preconditionErr):
		httputil.RespondErrorWithExtras(w, http.StatusPreconditionFailed, preconditionErr.Error(), map[string]interface{}{
			"code":            codeVersionMismatch,
			"current_version": preconditionErr.CurrentVersion,
		})
	case errors.As(err, &tooLargeErr):
		httputil.RespondErrorWithExtras(w, http.StatusRequestEntityTooLarge, tooLargeErr.Error(), map[string]interface{}{
			"code":  codePayloadTooLarge,
			"limit": tooLargeErr.Limit,
		})
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondErrorWithExtras(w, http.StatusConflict, err.Error(), map[string]interface{}{"code": codeConflict})
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// PathParam reads a UUID path value in canonical form. On failure it writes a
// 400 and returns false.
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		handleError(w, &domain.ValidationError{
			Message: label + " is required",
			Fields:  map[string]string{name: "cannot be blank"},
		})
		return "", false
	}
	id, err := uuid.Parse(value)
	if err != nil {
		handleError(w, &domain.ValidationError{
			Message: label + " must be a valid UUID",
			Fields:  map[string]string{name: "must be a valid UUID"},
		})
		return "", false
	}
	return id.String(), true
}

// optionalQueryID reads an optional UUID query parameter
func optionalQueryID(r *http.Request, name string) (*string, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, &domain.ValidationError{
			Message: name + " must be a valid UUID",
			Fields:  map[string]string{name: "must be a valid UUID"},
		}
	}
	canonical := id.String()
	return &canonical, nil
}
