package validators

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
)

// ParseIDParam reads a positive numeric route parameter.
func ParseIDParam(r *http.Request, key string) (uint, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || value == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+key).WithDetails(map[string]any{"field": key, "value": raw})
	}
	return uint(value), nil
}

// TextParam returns the unescaped, trimmed route parameter key, cut to at
// most maxRunes characters.
func TextParam(r *http.Request, key string, maxRunes int) string {
	raw := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	raw = strings.TrimSpace(raw)
	if maxRunes <= 0 || utf8.RuneCountInString(raw) <= maxRunes {
		return raw
	}
	return string([]rune(raw)[:maxRunes])
}
