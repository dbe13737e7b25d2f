package server

import (
	"fmt"
	"net/http"
	"strings"

	"gav/internal/sanitize"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// listWindow parses and clamps limit/skip pagination parameters.
func listWindow(r *http.Request) (limit, skip int, err error) {
	limit, err = queryIntDefault(r, "limit", defaultListLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > maxListLimit {
		return 0, 0, badRequestCode(fmt.Errorf("limit must be between 1 and %d", maxListLimit), ErrCodeInvalidQuery)
	}
	skip, err = queryIntDefault(r, "skip", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, skip, nil
}

// cleanQueryParam sanitizes a free-text query parameter before it is
// used as a filter value.
func cleanQueryParam(r *http.Request, key string) string {
	return sanitize.CleanString(strings.TrimSpace(r.URL.Query().Get(key)))
}

// cleanTags sanitizes and splits a comma-separated tag field.
func cleanTags(raw string) []string {
	return splitCSV(sanitize.CleanString(raw))
}
