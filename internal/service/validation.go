package service

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"notevault/internal/config"
	"notevault/internal/domain"
)

var (
	noSlashes = validation.Match(regexp.MustCompile(`^[^/]+$`)).Error("cannot contain slashes")

	// isUUID accepts empty values; combine with validation.Required when needed
	isUUID = validation.By(func(value interface{}) error {
		v, isNil := validation.Indirect(value)
		if isNil {
			return nil
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return nil
		}
		if err := uuid.Validate(s); err != nil {
			return errors.New("must be a valid UUID")
		}
		return nil
	})

	validTags = validation.By(func(value interface{}) error {
		v, isNil := validation.Indirect(value)
		if isNil {
			return nil
		}
		return validation.Validate(v,
			validation.Length(0, config.MaxTags),
			validation.Each(validation.Required, validation.Length(1, config.MaxTagLength)),
		)
	})
)

// toValidationError converts ozzo errors into a domain.ValidationError
// keyed by JSON field name
func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for name, fieldErr := range fieldErrs {
			fields[name] = fieldErr.Error()
		}
		return &domain.ValidationError{Message: err.Error(), Fields: fields}
	}

	return &domain.ValidationError{Message: err.Error()}
}

// validateID checks an identifier and rewrites it to canonical lowercase
// hyphenated form. Stored IDs are always canonical, so comparisons against
// values read back from a store only hold after this runs.
func validateID(field string, id *string) error {
	if err := toValidationError(validation.Errors{
		field: validation.Validate(*id, validation.Required, isUUID),
	}.Filter()); err != nil {
		return err
	}
	*id = canonicalUUID(*id)
	return nil
}

// canonicalOptionalID rewrites an optional request-body ID after validation
func canonicalOptionalID(id *string) {
	if id != nil {
		*id = canonicalUUID(*id)
	}
}

// canonicalUUID formats an already validated UUID
func canonicalUUID(id string) string {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return id
	}
	return parsed.String()
}

func requireUser(userID string) error {
	if userID == "" {
		return domain.ErrUnauthorized
	}
	return nil
}

// normalizeTags trims tags and drops duplicates, keeping first occurrence order
func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// now returns the current time at the precision every store keeps
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
