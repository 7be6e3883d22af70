package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// identifierRegex matches type names, view names and property wire names.
// View names may start with an underscore (internal views such as "_graph").
var identifierRegex = regexp.MustCompile(`^_?[A-Za-z][A-Za-z0-9_.-]*$`)

// validateIdentifier applies the shared rules for names that end up in URLs,
// cache keys and output documents.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences or separators
//   - Maximum length of 128 characters
func validateIdentifier(code Code, kind, name string) error {
	if name == "" {
		return New(code, "%s cannot be empty", kind)
	}

	if len(name) > 128 {
		return New(code, "%s too long (max 128 characters)", kind)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(code, "%s contains invalid control characters", kind)
		}
	}

	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return New(code, "%s contains invalid characters", kind)
	}

	if !identifierRegex.MatchString(name) {
		return New(code, "invalid %s: %q", kind, name)
	}

	return nil
}

// ValidateTypeName validates an entity type name such as "Folder".
func ValidateTypeName(name string) error {
	return validateIdentifier(ErrCodeInvalidType, "type name", name)
}

// ValidateViewName validates a view name such as "public" or "_graph".
func ValidateViewName(name string) error {
	return validateIdentifier(ErrCodeInvalidView, "view name", name)
}

// ValidateKeyName validates a property wire name such as "parentId".
func ValidateKeyName(name string) error {
	return validateIdentifier(ErrCodeInvalidKey, "property name", name)
}

// ValidatePath validates a file path passed on the command line or in config.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateFormat validates an output format name against the supported set.
func ValidateFormat(format string, supported []string) error {
	for _, s := range supported {
		if s == format {
			return nil
		}
	}
	return New(ErrCodeInvalidFormat, "unsupported format %q (want one of %s)", format, strings.Join(supported, ", "))
}
