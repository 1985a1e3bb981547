package httputil

import (
	"strconv"
	"strings"
)

// FormatETag renders a note version as a strong entity tag
func FormatETag(version int64) string {
	return `"` + strconv.FormatInt(version, 10) + `"`
}

// ParseETag extracts the version from an If-Match or If-None-Match header.
// Weak tags are accepted. Lists are resolved to their first entry; "*" and
// anything that is not a version yield ok=false.
func ParseETag(header string) (version int64, ok bool) {
	value := strings.TrimSpace(header)
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	value = strings.TrimPrefix(value, "W/")
	value = strings.Trim(value, `"`)

	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}
