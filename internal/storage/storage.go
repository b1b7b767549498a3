package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nikbrunner/bmtree/internal/model"
)

// Storage is the persistence boundary consumed by sessions.
// A nil folder reference means root. Deletes of absent ids return nil.
type Storage interface {
	ListFolders(ctx context.Context, parentID *int64) ([]model.Folder, error)
	ListBookmarks(ctx context.Context, folderID *int64) ([]model.Bookmark, error)
	CreateFolder(ctx context.Context, params model.NewFolderParams) (model.Folder, error)
	CreateBookmark(ctx context.Context, params model.NewBookmarkParams) (model.Bookmark, error)
	DeleteFolder(ctx context.Context, id int64) error
	DeleteBookmark(ctx context.Context, id int64) error
}

// Editor is implemented by storages that can change existing records.
type Editor interface {
	RenameFolder(ctx context.Context, id int64, name string) (model.Folder, error)
	UpdateBookmark(ctx context.Context, id int64, edit model.BookmarkEdit) (model.Bookmark, error)
}

// Backend names accepted by OpenStorage.
const (
	BackendAuto   = "auto"
	BackendMemory = "memory"
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend      string
	Path         string // JSON file or SQLite database; defaults under ~/.config/bm
	RemoteURL    string
	Timeout      time.Duration
	DeletePolicy model.DeletePolicy
}

// OpenStorage opens the backend named in opts.
// With BackendAuto it prefers SQLite if the database file exists, otherwise falls back to JSON.
func OpenStorage(opts Options) (Storage, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemoryStorage(opts.DeletePolicy), nil

	case BackendJSON:
		path, err := pathOrDefault(opts.Path, DefaultConfigPath)
		if err != nil {
			return nil, err
		}
		return NewJSONStorage(path, opts.DeletePolicy), nil

	case BackendSQLite:
		path, err := pathOrDefault(opts.Path, DefaultSQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQLiteStorage(path, opts.DeletePolicy)

	case BackendRemote:
		return NewRemoteStorage(opts.RemoteURL, opts.Timeout)

	case BackendAuto, "":
		sqlitePath, err := DefaultSQLitePath()
		if err != nil {
			return nil, err
		}
		// If SQLite database exists, use it
		if _, err := os.Stat(sqlitePath); err == nil {
			return NewSQLiteStorage(sqlitePath, opts.DeletePolicy)
		}
		jsonPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		return NewJSONStorage(jsonPath, opts.DeletePolicy), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// Close releases backend resources if the storage holds any.
func Close(s Storage) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func pathOrDefault(path string, fallback func() (string, error)) (string, error) {
	if path != "" {
		return path, nil
	}
	return fallback()
}

// DefaultConfigPath returns the default JSON data path: ~/.config/bm/bookmarks.json
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bm", "bookmarks.json"), nil
}

// DefaultSQLitePath returns the default SQLite database path: ~/.config/bm/bookmarks.db
func DefaultSQLitePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bm", "bookmarks.db"), nil
}

func cloneFolders(in []model.Folder) []model.Folder {
	out := make([]model.Folder, len(in))
	for i, f := range in {
		f.ParentID = model.CloneRef(f.ParentID)
		out[i] = f
	}
	return out
}

func cloneBookmarks(in []model.Bookmark) []model.Bookmark {
	out := make([]model.Bookmark, len(in))
	for i, b := range in {
		b.FolderID = model.CloneRef(b.FolderID)
		out[i] = b
	}
	return out
}
