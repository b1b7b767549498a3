package model

import "strings"

// Folder represents a container for bookmarks and other folders.
type Folder struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"` // nil = root level
}

// NewFolderParams holds parameters for creating a new Folder.
type NewFolderParams struct {
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// Validate rejects params that must never reach persistence.
func (p NewFolderParams) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	return nil
}
