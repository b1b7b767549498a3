package model

import "strconv"

// Ref returns a folder reference for id. A nil reference means root.
func Ref(id int64) *int64 {
	return &id
}

// SameFolder reports whether two folder references point at the same folder.
func SameFolder(a, b *int64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// CloneRef copies a folder reference so callers can't alias internal state.
func CloneRef(ref *int64) *int64 {
	if ref == nil {
		return nil
	}
	return Ref(*ref)
}

// FormatRef renders a folder reference for logs and CLI output.
func FormatRef(ref *int64) string {
	if ref == nil {
		return "root"
	}
	return strconv.FormatInt(*ref, 10)
}
