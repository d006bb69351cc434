package workspace

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const unsafeNameChars = `<>:"/\|?*`

const maxSlugLength = 64

// ValidateName checks a display name for profiles and queries: 1 to 100
// characters, no path separators, no characters Windows refuses in file
// names, and no control characters.
func ValidateName(field, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return &ValidationError{Field: field, Reason: "name must not be empty"}
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxNameLength {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("name must be at most %d characters, got %d", MaxNameLength, n)}
	}
	if trimmed == "." || trimmed == ".." {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q is reserved", trimmed)}
	}
	for _, r := range trimmed {
		if strings.ContainsRune(unsafeNameChars, r) || unicode.IsControl(r) {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("name contains invalid character %q", r)}
		}
	}
	return nil
}

// Slugify turns a display name into a lowercase, path-safe identifier.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		slug = "item"
	}
	return slug
}

// ValidID reports whether id has the shape Slugify and uniqueSlug produce:
// lowercase ASCII letters and digits separated by single dashes. Only such
// ids may be joined into workspace paths.
func ValidID(id string) bool {
	if id == "" || len(id) > maxSlugLength+12 || id[0] == '-' || id[len(id)-1] == '-' {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-' && id[i-1] != '-':
		default:
			return false
		}
	}
	return true
}

// uniqueSlug returns base, or base-2, base-3, ... for the first candidate
// taken does not claim.
func uniqueSlug(base string, taken func(string) bool) string {
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := base + "-" + strconv.Itoa(i)
		if !taken(candidate) {
			return candidate
		}
	}
}
