package storage

import (
	"context"
	"sync"

	"github.com/nikbrunner/bmtree/internal/model"
)

// MemoryStorage implements Storage over an in-process model.Store.
type MemoryStorage struct {
	mu     sync.RWMutex
	store  *model.Store
	policy model.DeletePolicy
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage(policy model.DeletePolicy) *MemoryStorage {
	return &MemoryStorage{store: model.NewStore(), policy: policy}
}

// NewMemoryStorageFrom wraps an existing store, e.g. one loaded from disk.
func NewMemoryStorageFrom(store *model.Store, policy model.DeletePolicy) *MemoryStorage {
	store.Normalize()
	return &MemoryStorage{store: store, policy: policy}
}

func (m *MemoryStorage) ListFolders(ctx context.Context, parentID *int64) ([]model.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneFolders(m.store.GetFoldersInFolder(parentID)), nil
}

func (m *MemoryStorage) ListBookmarks(ctx context.Context, folderID *int64) ([]model.Bookmark, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneBookmarks(m.store.GetBookmarksInFolder(folderID)), nil
}

func (m *MemoryStorage) CreateFolder(ctx context.Context, params model.NewFolderParams) (model.Folder, error) {
	if err := ctx.Err(); err != nil {
		return model.Folder{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.store.AddFolder(params)
	if err != nil {
		return model.Folder{}, err
	}
	return cloneFolders([]model.Folder{f})[0], nil
}

func (m *MemoryStorage) CreateBookmark(ctx context.Context, params model.NewBookmarkParams) (model.Bookmark, error) {
	if err := ctx.Err(); err != nil {
		return model.Bookmark{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.store.AddBookmark(params)
	if err != nil {
		return model.Bookmark{}, err
	}
	return cloneBookmarks([]model.Bookmark{b})[0], nil
}

func (m *MemoryStorage) DeleteFolder(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.DeleteFolder(id, m.policy)
	return nil
}

func (m *MemoryStorage) DeleteBookmark(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store.DeleteBookmark(id)
	return nil
}

func (m *MemoryStorage) RenameFolder(ctx context.Context, id int64, name string) (model.Folder, error) {
	if err := ctx.Err(); err != nil {
		return model.Folder{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, err := m.store.RenameFolder(id, name)
	if err != nil {
		return model.Folder{}, err
	}
	return cloneFolders([]model.Folder{f})[0], nil
}

func (m *MemoryStorage) UpdateBookmark(ctx context.Context, id int64, edit model.BookmarkEdit) (model.Bookmark, error) {
	if err := ctx.Err(); err != nil {
		return model.Bookmark{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.store.UpdateBookmark(id, edit)
	if err != nil {
		return model.Bookmark{}, err
	}
	return cloneBookmarks([]model.Bookmark{b})[0], nil
}
