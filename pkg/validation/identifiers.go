package validation

// MaxNameLength is the longest accepted scenario or account name.
const MaxNameLength = 64

// IsValidIdentifierChar checks if a character is valid for identifiers
// (alphanumeric, hyphen, or underscore).
func IsValidIdentifierChar(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '-' || ch == '_'
}

// IsValidName reports whether name starts with a letter, contains only
// identifier characters and is at most MaxNameLength long.
func IsValidName(name string) bool {
	if name == "" || len(name) > MaxNameLength {
		return false
	}

	first := rune(name[0])
	if !(first >= 'a' && first <= 'z') && !(first >= 'A' && first <= 'Z') {
		return false
	}

	for _, ch := range name {
		if !IsValidIdentifierChar(ch) {
			return false
		}
	}
	return true
}
