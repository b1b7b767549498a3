package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/bmtree/internal/model"
)

const currentSchemaVersion = 2

// SQLiteStorage implements Storage using a SQLite database.
type SQLiteStorage struct {
	db     *sql.DB
	path   string
	policy model.DeletePolicy
}

// NewSQLiteStorage creates a new SQLiteStorage with the given database path.
func NewSQLiteStorage(path string, policy model.DeletePolicy) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db, path: path, policy: policy}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the migration level of the open database.
func (s *SQLiteStorage) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	return version, err
}

// migrate runs database migrations.
func (s *SQLiteStorage) migrate() error {
	// Check current schema version
	version, err := s.SchemaVersion()
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema v%d is newer than supported v%d", version, currentSchemaVersion)
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("migrate v1: %w", err)
		}
	}

	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("migrate v2: %w", err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (s *SQLiteStorage) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS folders (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			parent_id INTEGER,
			FOREIGN KEY (parent_id) REFERENCES folders(id) ON DELETE SET NULL
		);

		CREATE INDEX IF NOT EXISTS idx_folders_parent_id ON folders(parent_id);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			folder_id INTEGER,
			FOREIGN KEY (folder_id) REFERENCES folders(id) ON DELETE SET NULL
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_folder_id ON bookmarks(folder_id);

		DELETE FROM schema_version;
		INSERT INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds the free-text note column to bookmarks.
func (s *SQLiteStorage) migrateV2() error {
	migration := `
		ALTER TABLE bookmarks ADD COLUMN note TEXT NOT NULL DEFAULT '';
		UPDATE schema_version SET version = 2;
	`
	_, err := s.db.Exec(migration)
	return err
}

func (s *SQLiteStorage) ListFolders(ctx context.Context, parentID *int64) ([]model.Folder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, parent_id
		FROM folders
		WHERE parent_id IS ?
		ORDER BY id
	`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	folders := []model.Folder{}
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

func (s *SQLiteStorage) ListBookmarks(ctx context.Context, folderID *int64) ([]model.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, note, folder_id
		FROM bookmarks
		WHERE folder_id IS ?
		ORDER BY id
	`, folderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookmarks := []model.Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

func (s *SQLiteStorage) CreateFolder(ctx context.Context, params model.NewFolderParams) (model.Folder, error) {
	if err := params.Validate(); err != nil {
		return model.Folder{}, err
	}

	var folder model.Folder
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireFolder(ctx, tx, params.ParentID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO folders (name, parent_id) VALUES (?, ?)",
			params.Name, params.ParentID,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		folder = model.Folder{ID: id, Name: params.Name, ParentID: model.CloneRef(params.ParentID)}
		return nil
	})
	return folder, err
}

func (s *SQLiteStorage) CreateBookmark(ctx context.Context, params model.NewBookmarkParams) (model.Bookmark, error) {
	if err := params.Validate(); err != nil {
		return model.Bookmark{}, err
	}

	var bookmark model.Bookmark
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireFolder(ctx, tx, params.FolderID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO bookmarks (title, url, note, folder_id) VALUES (?, ?, ?, ?)",
			params.Title, params.URL, params.Note, params.FolderID,
		)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		bookmark = model.Bookmark{
			ID:       id,
			Title:    params.Title,
			URL:      params.URL,
			Note:     params.Note,
			FolderID: model.CloneRef(params.FolderID),
		}
		return nil
	})
	return bookmark, err
}

// DeleteFolder removes a folder according to the storage's delete policy.
func (s *SQLiteStorage) DeleteFolder(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if s.policy == model.DeleteReparent {
			if _, err := tx.ExecContext(ctx, "UPDATE folders SET parent_id = NULL WHERE parent_id = ?", id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, "UPDATE bookmarks SET folder_id = NULL WHERE folder_id = ?", id); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", id)
			return err
		}

		ids, err := subtreeIDs(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, fid := range ids {
			if _, err := tx.ExecContext(ctx, "DELETE FROM bookmarks WHERE folder_id = ?", fid); err != nil {
				return err
			}
		}
		// Deepest first so no row ever points at a deleted parent.
		for i := len(ids) - 1; i >= 0; i-- {
			if _, err := tx.ExecContext(ctx, "DELETE FROM folders WHERE id = ?", ids[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStorage) DeleteBookmark(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ?", id)
	return err
}

func (s *SQLiteStorage) RenameFolder(ctx context.Context, id int64, name string) (model.Folder, error) {
	if err := (model.NewFolderParams{Name: name}).Validate(); err != nil {
		return model.Folder{}, err
	}

	var folder model.Folder
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE folders SET name = ? WHERE id = ?", name, id); err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, "SELECT id, name, parent_id FROM folders WHERE id = ?", id)
		var err error
		folder, err = scanFolder(row)
		if errors.Is(err, sql.ErrNoRows) {
			return &model.NotFoundError{Kind: "folder", ID: id}
		}
		return err
	})
	return folder, err
}

func (s *SQLiteStorage) UpdateBookmark(ctx context.Context, id int64, edit model.BookmarkEdit) (model.Bookmark, error) {
	if err := edit.Validate(); err != nil {
		return model.Bookmark{}, err
	}

	var bookmark model.Bookmark
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE bookmarks SET title = ?, url = ?, note = ? WHERE id = ?",
			edit.Title, edit.URL, edit.Note, id,
		); err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx, "SELECT id, title, url, note, folder_id FROM bookmarks WHERE id = ?", id)
		var err error
		bookmark, err = scanBookmark(row)
		if errors.Is(err, sql.ErrNoRows) {
			return &model.NotFoundError{Kind: "bookmark", ID: id}
		}
		return err
	})
	return bookmark, err
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// requireFolder returns a NotFoundError unless ref is root or an existing folder.
func requireFolder(ctx context.Context, tx *sql.Tx, ref *int64) error {
	if ref == nil {
		return nil
	}
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM folders WHERE id = ?", *ref).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.NotFoundError{Kind: "folder", ID: *ref}
	}
	return err
}

// subtreeIDs returns id followed by its descendants, parents before children.
// Empty when id does not exist.
func subtreeIDs(ctx context.Context, tx *sql.Tx, id int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `
		WITH RECURSIVE subtree(id, depth) AS (
			SELECT id, 0 FROM folders WHERE id = ?
			UNION ALL
			SELECT f.id, s.depth + 1 FROM folders f JOIN subtree s ON f.parent_id = s.id
		)
		SELECT id FROM subtree ORDER BY depth, id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var fid int64
		if err := rows.Scan(&fid); err != nil {
			return nil, err
		}
		ids = append(ids, fid)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFolder(row rowScanner) (model.Folder, error) {
	var f model.Folder
	var parentID sql.NullInt64
	if err := row.Scan(&f.ID, &f.Name, &parentID); err != nil {
		return model.Folder{}, err
	}
	if parentID.Valid {
		f.ParentID = model.Ref(parentID.Int64)
	}
	return f, nil
}

func scanBookmark(row rowScanner) (model.Bookmark, error) {
	var b model.Bookmark
	var folderID sql.NullInt64
	if err := row.Scan(&b.ID, &b.Title, &b.URL, &b.Note, &folderID); err != nil {
		return model.Bookmark{}, err
	}
	if folderID.Valid {
		b.FolderID = model.Ref(folderID.Int64)
	}
	return b, nil
}
