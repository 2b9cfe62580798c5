package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// maxMunicipalityLen bounds the municipality query parameter.
const maxMunicipalityLen = 120

var (
	errMissingMunicipality = errors.New("municipality parameter is required")
	errInvalidMunicipality = errors.New("municipality parameter is invalid")
)

// municipalityKeys are the accepted query keys, in lookup order.
var municipalityKeys = []string{"municipality", "name"}

// ParseMunicipality extracts the municipality name from query values. Control
// characters are dropped; everything else, whitespace included, is matched
// exactly as the aggregates store it.
func ParseMunicipality(query url.Values) (string, error) {
	for _, key := range municipalityKeys {
		raw, ok := query[key]
		if !ok || len(raw) == 0 {
			continue
		}
		v := sanitizeInput(raw[0])
		if strings.TrimSpace(v) == "" {
			return "", errMissingMunicipality
		}
		if !utf8.ValidString(v) || utf8.RuneCountInString(v) > maxMunicipalityLen {
			return "", errInvalidMunicipality
		}
		return v, nil
	}
	return "", errMissingMunicipality
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET is a convenience function for read-only handlers; HEAD is
// accepted too.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}
