package model

import "strings"

// Bookmark represents a saved URL with a title and an optional note.
type Bookmark struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Note     string `json:"note,omitempty"`
	FolderID *int64 `json:"folder_id"` // nil = root level
}

// NewBookmarkParams holds parameters for creating a new Bookmark.
type NewBookmarkParams struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Note     string `json:"note,omitempty"`
	FolderID *int64 `json:"folder_id"`
}

// Validate rejects params that must never reach persistence.
func (p NewBookmarkParams) Validate() error {
	return validateBookmarkFields(p.Title, p.URL)
}

// BookmarkEdit holds the mutable fields of an existing Bookmark.
// The folder is not editable: bookmarks are never moved in place.
type BookmarkEdit struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Note  string `json:"note,omitempty"`
}

// Validate applies the same rules as bookmark creation.
func (e BookmarkEdit) Validate() error {
	return validateBookmarkFields(e.Title, e.URL)
}

func validateBookmarkFields(title, url string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if strings.TrimSpace(url) == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	return nil
}
