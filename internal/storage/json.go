package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/nikbrunner/bmtree/internal/model"
)

// JSONStorage implements Storage using a JSON file.
// Every call re-reads the file, so writes from other processes are seen on the next list.
type JSONStorage struct {
	mu     sync.Mutex
	path   string
	policy model.DeletePolicy
}

// NewJSONStorage creates a new JSONStorage with the given file path.
func NewJSONStorage(path string, policy model.DeletePolicy) *JSONStorage {
	return &JSONStorage{path: path, policy: policy}
}

// Path returns the storage file path.
func (s *JSONStorage) Path() string {
	return s.path
}

// Load reads the store from the JSON file.
// Returns an empty store if the file doesn't exist.
func (s *JSONStorage) Load() (*model.Store, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Return empty store for missing file
			return model.NewStore(), nil
		}
		return nil, err
	}

	var store model.Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, err
	}
	store.Normalize()

	return &store, nil
}

// Save writes the store to the JSON file.
// Creates the directory if it doesn't exist.
func (s *JSONStorage) Save(store *model.Store) error {
	// Ensure directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return err
	}

	// Write to a sibling file first so a crash never leaves a truncated store.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// read runs fn against a freshly loaded store.
func (s *JSONStorage) read(ctx context.Context, fn func(*model.Store)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.Load()
	if err != nil {
		return err
	}
	fn(store)
	return nil
}

// update loads the store, applies fn and saves only when fn succeeds and changed something.
func (s *JSONStorage) update(ctx context.Context, fn func(*model.Store) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	store, err := s.Load()
	if err != nil {
		return err
	}
	changed, err := fn(store)
	if err != nil || !changed {
		return err
	}
	return s.Save(store)
}

func (s *JSONStorage) ListFolders(ctx context.Context, parentID *int64) ([]model.Folder, error) {
	var folders []model.Folder
	err := s.read(ctx, func(store *model.Store) {
		folders = store.GetFoldersInFolder(parentID)
	})
	return folders, err
}

func (s *JSONStorage) ListBookmarks(ctx context.Context, folderID *int64) ([]model.Bookmark, error) {
	var bookmarks []model.Bookmark
	err := s.read(ctx, func(store *model.Store) {
		bookmarks = store.GetBookmarksInFolder(folderID)
	})
	return bookmarks, err
}

func (s *JSONStorage) CreateFolder(ctx context.Context, params model.NewFolderParams) (model.Folder, error) {
	var folder model.Folder
	err := s.update(ctx, func(store *model.Store) (bool, error) {
		var err error
		folder, err = store.AddFolder(params)
		return err == nil, err
	})
	return folder, err
}

func (s *JSONStorage) CreateBookmark(ctx context.Context, params model.NewBookmarkParams) (model.Bookmark, error) {
	var bookmark model.Bookmark
	err := s.update(ctx, func(store *model.Store) (bool, error) {
		var err error
		bookmark, err = store.AddBookmark(params)
		return err == nil, err
	})
	return bookmark, err
}

func (s *JSONStorage) DeleteFolder(ctx context.Context, id int64) error {
	return s.update(ctx, func(store *model.Store) (bool, error) {
		return store.DeleteFolder(id, s.policy), nil
	})
}

func (s *JSONStorage) DeleteBookmark(ctx context.Context, id int64) error {
	return s.update(ctx, func(store *model.Store) (bool, error) {
		return store.DeleteBookmark(id), nil
	})
}

func (s *JSONStorage) RenameFolder(ctx context.Context, id int64, name string) (model.Folder, error) {
	var folder model.Folder
	err := s.update(ctx, func(store *model.Store) (bool, error) {
		var err error
		folder, err = store.RenameFolder(id, name)
		return err == nil, err
	})
	return folder, err
}

func (s *JSONStorage) UpdateBookmark(ctx context.Context, id int64, edit model.BookmarkEdit) (model.Bookmark, error) {
	var bookmark model.Bookmark
	err := s.update(ctx, func(store *model.Store) (bool, error) {
		var err error
		bookmark, err = store.UpdateBookmark(id, edit)
		return err == nil, err
	})
	return bookmark, err
}
