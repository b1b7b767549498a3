package model

import (
	"fmt"
	"strings"
)

// DeletePolicy decides what happens to the contents of a deleted folder.
type DeletePolicy int

const (
	// DeleteCascade removes the folder, every descendant folder and every
	// bookmark inside any of them.
	DeleteCascade DeletePolicy = iota
	// DeleteReparent removes only the folder; its direct child folders and
	// bookmarks move to root.
	DeleteReparent
)

func (p DeletePolicy) String() string {
	switch p {
	case DeleteCascade:
		return "cascade"
	case DeleteReparent:
		return "reparent"
	default:
		return fmt.Sprintf("DeletePolicy(%d)", int(p))
	}
}

// ParseDeletePolicy parses "cascade" or "reparent". Empty means cascade.
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cascade":
		return DeleteCascade, nil
	case "reparent", "reparent-to-root":
		return DeleteReparent, nil
	default:
		return DeleteCascade, &ValidationError{Field: "delete_policy", Message: fmt.Sprintf("unknown delete policy %q", s)}
	}
}
