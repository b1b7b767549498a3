package exporter

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nikbrunner/bmtree/internal/storage"
)

// DefaultExportPath returns the default export file path.
// Format: ~/Downloads/bookmarks-export-YYYY-MM-DD.html
func DefaultExportPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	filename := fmt.Sprintf("bookmarks-export-%s.html", time.Now().Format("2006-01-02"))
	return filepath.Join(home, "Downloads", filename), nil
}

// ExportHTML walks the whole tree through s and renders it in Netscape
// bookmark HTML format. Bookmark notes are written as <DD> descriptions.
func ExportHTML(ctx context.Context, s storage.Storage) (string, error) {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	// Write root level items
	if err := writeItems(ctx, &b, s, nil, 1); err != nil {
		return "", err
	}

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String(), nil
}

// WriteFile exports to path, creating its directory if needed.
func WriteFile(ctx context.Context, s storage.Storage, path string) error {
	out, err := ExportHTML(ctx, s)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0644)
}

// writeItems recursively writes folders and bookmarks for a given parent.
func writeItems(ctx context.Context, b *strings.Builder, s storage.Storage, parentID *int64, indent int) error {
	prefix := strings.Repeat("    ", indent)

	folders, err := s.ListFolders(ctx, parentID)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	for _, folder := range folders {
		fmt.Fprintf(b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(folder.Name))
		fmt.Fprintf(b, "%s<DL><p>\n", prefix)

		folderID := folder.ID
		if err := writeItems(ctx, b, s, &folderID, indent+1); err != nil {
			return err
		}

		fmt.Fprintf(b, "%s</DL><p>\n", prefix)
	}

	bookmarks, err := s.ListBookmarks(ctx, parentID)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	for _, bookmark := range bookmarks {
		fmt.Fprintf(b,
			"%s<DT><A HREF=\"%s\">%s</A>\n",
			prefix,
			html.EscapeString(bookmark.URL),
			html.EscapeString(bookmark.Title),
		)
		if bookmark.Note != "" {
			fmt.Fprintf(b, "%s<DD>%s\n", prefix, html.EscapeString(bookmark.Note))
		}
	}
	return nil
}
