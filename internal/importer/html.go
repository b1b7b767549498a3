package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/storage"
)

// Entry is a bookmark read from an export file.
type Entry struct {
	Title string
	URL   string
	Note  string
}

// Folder is a folder read from an export file, with its contents in
// document order. The tree returned by ParseHTML has an unnamed root.
type Folder struct {
	Name      string
	Folders   []*Folder
	Bookmarks []Entry
}

// Count returns the number of folders and bookmarks below f.
func (f *Folder) Count() (folders, bookmarks int) {
	bookmarks = len(f.Bookmarks)
	for _, sub := range f.Folders {
		nf, nb := sub.Count()
		folders += 1 + nf
		bookmarks += nb
	}
	return folders, bookmarks
}

// ParseHTML parses Netscape bookmark HTML into a folder tree.
// A <DD> directly after a bookmark becomes its note.
func ParseHTML(r io.Reader) (*Folder, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	root := &Folder{}
	// Track current folder stack for hierarchy
	stack := []*Folder{root}
	var pending *Folder // folder waiting to be pushed on next DL

	// lastBookmark points at the bookmark a following <DD> describes.
	var lastFolder *Folder
	lastIndex := -1

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				lastFolder = nil
				name := getTextContent(n)
				if name != "" {
					parent := stack[len(stack)-1]
					folder := &Folder{Name: name}
					parent.Folders = append(parent.Folders, folder)
					pending = folder
				}
				return // Don't recurse into H3

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					// Skip bookmarks without URL
					return
				}
				title := getTextContent(n)
				if title == "" {
					title = href // fallback to URL as title
				}
				parent := stack[len(stack)-1]
				parent.Bookmarks = append(parent.Bookmarks, Entry{Title: title, URL: href})
				lastFolder, lastIndex = parent, len(parent.Bookmarks)-1
				return // Don't recurse into A

			case "dd":
				// Only the DD's own text; a nested DL is still parsed below.
				if lastFolder != nil {
					lastFolder.Bookmarks[lastIndex].Note = getOwnText(n)
				}
				lastFolder = nil

			case "dl":
				pushed := false
				if pending != nil {
					stack = append(stack, pending)
					pending = nil
					pushed = true
				}
				lastFolder = nil

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushed {
					stack = stack[:len(stack)-1]
				}
				lastFolder = nil
				return // Don't recurse further, we handled children
			}
		}

		// Recurse into children
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return root, nil
}

// Result reports what Import created.
type Result struct {
	Folders   int
	Bookmarks int
}

// Import creates tree's folders and bookmarks under parentID (nil = root)
// through the storage boundary. On error, everything created so far stays
// and Result counts it.
func Import(ctx context.Context, s storage.Storage, tree *Folder, parentID *int64) (Result, error) {
	var res Result
	err := importFolder(ctx, s, tree, parentID, &res)
	return res, err
}

func importFolder(ctx context.Context, s storage.Storage, f *Folder, parentID *int64, res *Result) error {
	for _, e := range f.Bookmarks {
		_, err := s.CreateBookmark(ctx, model.NewBookmarkParams{
			Title:    e.Title,
			URL:      e.URL,
			Note:     e.Note,
			FolderID: parentID,
		})
		if err != nil {
			return fmt.Errorf("import bookmark %q: %w", e.Title, err)
		}
		res.Bookmarks++
	}

	for _, sub := range f.Folders {
		created, err := s.CreateFolder(ctx, model.NewFolderParams{Name: sub.Name, ParentID: parentID})
		if err != nil {
			return fmt.Errorf("import folder %q: %w", sub.Name, err)
		}
		res.Folders++
		if err := importFolder(ctx, s, sub, model.Ref(created.ID), res); err != nil {
			return err
		}
	}
	return nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getOwnText returns the text of n's direct text children only.
func getOwnText(n *html.Node) string {
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			text.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
