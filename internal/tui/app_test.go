package tui_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"gotest.tools/v3/assert"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/session"
	"github.com/nikbrunner/bmtree/internal/storage"
	"github.com/nikbrunner/bmtree/internal/tui"
)

// keyMsg builds the KeyMsg bubbletea delivers for a named key or typed text.
func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends keys in order and returns the command of the last one.
func press(app tui.App, keys ...string) (tui.App, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = app.Update(keyMsg(k))
		app = updated.(tui.App)
	}
	return app, cmd
}

// run executes cmd synchronously and feeds its message back to the app.
func run(t *testing.T, app tui.App, cmd tea.Cmd) tui.App {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	updated, _ := app.Update(cmd())
	return updated.(tui.App)
}

// pressAndRun presses keys and runs the command the last one produced.
func pressAndRun(t *testing.T, app tui.App, keys ...string) tui.App {
	t.Helper()
	app, cmd := press(app, keys...)
	return run(t, app, cmd)
}

func newApp(t *testing.T, s storage.Storage) tui.App {
	t.Helper()
	sess := session.New(session.Params{Storage: s})
	app := tui.NewApp(tui.AppParams{
		Session:   sess,
		Clipboard: func(string) error { return nil },
	})
	return run(t, app, app.Init())
}

// seed creates folders at root followed by bookmarks at root.
func seed(t *testing.T, folders []string, bookmarks ...model.NewBookmarkParams) *storage.MemoryStorage {
	t.Helper()
	s := storage.NewMemoryStorage(model.DeleteCascade)
	for _, name := range folders {
		_, err := s.CreateFolder(context.Background(), model.NewFolderParams{Name: name})
		assert.NilError(t, err)
	}
	for _, p := range bookmarks {
		_, err := s.CreateBookmark(context.Background(), p)
		assert.NilError(t, err)
	}
	return s
}

func TestApp_LoadsRootOnInit(t *testing.T) {
	s := seed(t, []string{"Work"}, model.NewBookmarkParams{Title: "GitHub", URL: "https://github.com"})

	app := newApp(t, s)

	items := app.Items()
	assert.Equal(t, len(items), 2)
	assert.Assert(t, items[0].IsFolder(), "folders come first")
	assert.Equal(t, items[0].Title(), "Work")
	assert.Equal(t, items[1].Title(), "GitHub")
	assert.Assert(t, app.CurrentFolderID() == nil)
}

func TestApp_Navigation_JK(t *testing.T) {
	app := newApp(t, seed(t, []string{"Folder 1", "Folder 2", "Folder 3"}))

	if app.Cursor() != 0 {
		t.Errorf("expected initial cursor 0, got %d", app.Cursor())
	}

	app, _ = press(app, "j")
	if app.Cursor() != 1 {
		t.Errorf("after j, expected cursor 1, got %d", app.Cursor())
	}

	app, _ = press(app, "k")
	if app.Cursor() != 0 {
		t.Errorf("after k, expected cursor 0, got %d", app.Cursor())
	}

	// Press k at top should stay at 0 (no wrap)
	app, _ = press(app, "k")
	if app.Cursor() != 0 {
		t.Errorf("k at top should stay at 0, got %d", app.Cursor())
	}

	// j at bottom should stay at bottom
	app, _ = press(app, "j", "j", "j", "j")
	if app.Cursor() != 2 {
		t.Errorf("j at bottom should stay at 2, got %d", app.Cursor())
	}
}

func TestApp_Navigation_GG(t *testing.T) {
	app := newApp(t, seed(t, []string{"A", "B", "C"}))

	app, _ = press(app, "G")
	assert.Equal(t, app.Cursor(), 2)

	// A single g waits for the second one
	app, _ = press(app, "g")
	assert.Equal(t, app.Cursor(), 2)

	app, _ = press(app, "g")
	assert.Equal(t, app.Cursor(), 0)
}

func TestApp_Navigation_HL(t *testing.T) {
	s := seed(t, []string{"Alpha", "Work"})
	work := model.Ref(2)
	_, err := s.CreateFolder(context.Background(), model.NewFolderParams{Name: "Projects", ParentID: work})
	assert.NilError(t, err)

	app := newApp(t, s)
	app, _ = press(app, "j")

	app = pressAndRun(t, app, "l")
	assert.Assert(t, model.SameFolder(app.CurrentFolderID(), work), "expected to enter Work")
	assert.Equal(t, app.Cursor(), 0, "cursor resets when entering a folder")
	assert.Equal(t, app.Items()[0].Title(), "Projects")

	app = pressAndRun(t, app, "h")
	assert.Assert(t, app.CurrentFolderID() == nil, "expected to be back at root")
	assert.Equal(t, app.Cursor(), 1, "cursor lands on the folder just left")
}

func TestApp_EnterOnBookmarkDoesNothing(t *testing.T) {
	app := newApp(t, seed(t, nil, model.NewBookmarkParams{Title: "Go", URL: "https://go.dev"}))

	_, cmd := press(app, "l")
	assert.Assert(t, cmd == nil)
}

func TestApp_BackAtRootDoesNothing(t *testing.T) {
	app := newApp(t, seed(t, []string{"Work"}))

	_, cmd := press(app, "h")
	assert.Assert(t, cmd == nil)
}

func TestApp_AddFolder(t *testing.T) {
	s := seed(t, nil)
	app := newApp(t, s)

	app, _ = press(app, "A")
	assert.Equal(t, app.Mode(), tui.ModeAddFolder)

	app, _ = press(app, "Docs")
	app = pressAndRun(t, app, "enter")

	assert.Equal(t, app.Mode(), tui.ModeNormal)
	assert.Equal(t, len(app.Items()), 1)
	assert.Equal(t, app.Items()[0].Title(), "Docs")
	assert.Equal(t, app.Message(), `Added folder "Docs"`)
}

func TestApp_AddBookmarkInsideFolder(t *testing.T) {
	s := seed(t, []string{"Work"})
	app := newApp(t, s)
	app = pressAndRun(t, app, "l")

	app, _ = press(app, "a", "Go", "tab", "https://go.dev", "tab", "language docs")
	app = pressAndRun(t, app, "enter")

	bookmarks, err := s.ListBookmarks(context.Background(), model.Ref(1))
	assert.NilError(t, err)
	assert.Equal(t, len(bookmarks), 1)
	assert.Equal(t, bookmarks[0].Title, "Go")
	assert.Equal(t, bookmarks[0].URL, "https://go.dev")
	assert.Equal(t, bookmarks[0].Note, "language docs")
	assert.Equal(t, len(app.Items()), 1)
}

func TestApp_ValidationKeepsModalOpen(t *testing.T) {
	s := seed(t, nil)
	app := newApp(t, s)

	app, _ = press(app, "a", "Go")
	app = pressAndRun(t, app, "enter")

	assert.Equal(t, app.Mode(), tui.ModeAddBookmark)
	assert.Assert(t, strings.Contains(app.View(), "url is required"))
	bookmarks, _ := s.ListBookmarks(context.Background(), nil)
	assert.Equal(t, len(bookmarks), 0, "invalid input must not be stored")

	app, _ = press(app, "tab", "https://go.dev")
	app = pressAndRun(t, app, "enter")

	assert.Equal(t, app.Mode(), tui.ModeNormal)
	assert.Equal(t, len(app.Items()), 1)
}

func TestApp_CancelForm(t *testing.T) {
	s := seed(t, nil)
	app := newApp(t, s)

	app, cmd := press(app, "A", "Docs", "esc")
	assert.Assert(t, cmd == nil)
	assert.Equal(t, app.Mode(), tui.ModeNormal)

	folders, _ := s.ListFolders(context.Background(), nil)
	assert.Equal(t, len(folders), 0)
}

func TestApp_EditBookmarkAndRenameFolder(t *testing.T) {
	s := seed(t, []string{"Work"}, model.NewBookmarkParams{Title: "Go", URL: "https://go.dev"})
	app := newApp(t, s)

	// Inputs are prefilled; typing appends.
	app, _ = press(app, "e", " 2")
	app = pressAndRun(t, app, "enter")
	assert.Equal(t, app.Items()[0].Title(), "Work 2")

	app, _ = press(app, "j", "e", "tab", "tab", "great")
	app = pressAndRun(t, app, "enter")

	b, err := s.ListBookmarks(context.Background(), nil)
	assert.NilError(t, err)
	assert.Equal(t, b[0].Title, "Go")
	assert.Equal(t, b[0].Note, "great")
	assert.Equal(t, app.Message(), `Updated "Go"`)
}

type readOnly struct {
	storage.Storage
}

func TestApp_EditUnsupported(t *testing.T) {
	app := newApp(t, readOnly{seed(t, []string{"Work"})})

	app, _ = press(app, "e", "x")
	app = pressAndRun(t, app, "enter")

	assert.Equal(t, app.Mode(), tui.ModeNormal)
	assert.Assert(t, strings.Contains(app.Message(), "not supported"), app.Message())
	assert.Equal(t, app.Items()[0].Title(), "Work")
}

func TestApp_DeleteConfirm(t *testing.T) {
	s := seed(t, []string{"Work"}, model.NewBookmarkParams{Title: "Go", URL: "https://go.dev"})
	app := newApp(t, s)

	app, _ = press(app, "d")
	assert.Equal(t, app.Mode(), tui.ModeConfirmDelete)

	app, cmd := press(app, "n")
	assert.Assert(t, cmd == nil)
	assert.Equal(t, app.Mode(), tui.ModeNormal)
	assert.Equal(t, len(app.Items()), 2)

	app = pressAndRun(t, app, "d", "y")
	assert.Equal(t, len(app.Items()), 1)
	assert.Equal(t, app.Items()[0].Title(), "Go")
	assert.Equal(t, app.Message(), `Deleted folder "Work"`)
}

func TestApp_DeleteLastItemClampsCursor(t *testing.T) {
	app := newApp(t, seed(t, []string{"A", "B"}))
	app, _ = press(app, "j")

	app = pressAndRun(t, app, "d", "enter")
	assert.Equal(t, len(app.Items()), 1)
	assert.Equal(t, app.Cursor(), 0)
}

func TestApp_YankURL(t *testing.T) {
	var copied string
	sess := session.New(session.Params{
		Storage: seed(t, []string{"Work"}, model.NewBookmarkParams{Title: "Go", URL: "https://go.dev"}),
	})
	app := tui.NewApp(tui.AppParams{
		Session:   sess,
		Clipboard: func(text string) error { copied = text; return nil },
	})
	app = run(t, app, app.Init())

	// Folders have no URL
	app, _ = press(app, "Y")
	assert.Equal(t, copied, "")

	app, _ = press(app, "j", "Y")
	assert.Equal(t, copied, "https://go.dev")
	assert.Equal(t, app.Message(), "Copied https://go.dev")
}

func TestApp_YankURLFailure(t *testing.T) {
	sess := session.New(session.Params{
		Storage: seed(t, nil, model.NewBookmarkParams{Title: "Go", URL: "https://go.dev"}),
	})
	app := tui.NewApp(tui.AppParams{
		Session:   sess,
		Clipboard: func(string) error { return errors.New("no clipboard") },
	})
	app = run(t, app, app.Init())

	app, _ = press(app, "Y")
	assert.Equal(t, app.Message(), "copy failed: no clipboard")
}

// failingStorage fails listings of one folder with a transport error.
type failingStorage struct {
	storage.Storage
	folder int64
}

func (f failingStorage) ListFolders(ctx context.Context, parentID *int64) ([]model.Folder, error) {
	if parentID != nil && *parentID == f.folder {
		return nil, &model.TransportError{Op: "list folders", Err: errors.New("connection refused")}
	}
	return f.Storage.ListFolders(ctx, parentID)
}

func TestApp_TransportErrorKeepsListing(t *testing.T) {
	app := newApp(t, failingStorage{Storage: seed(t, []string{"Work"}), folder: 1})

	app = pressAndRun(t, app, "l")

	assert.Assert(t, app.CurrentFolderID() == nil, "listing must stay at root")
	assert.Equal(t, app.Items()[0].Title(), "Work")
	assert.Assert(t, strings.HasPrefix(app.Message(), "storage unavailable"), app.Message())

	// The navigator was restored, so refreshing lists root again.
	app = pressAndRun(t, app, "r")
	assert.Assert(t, app.CurrentFolderID() == nil)
}

// gatedStorage blocks listings of one folder until gate is closed.
type gatedStorage struct {
	storage.Storage
	folder  int64
	entered chan struct{}
	gate    chan struct{}
}

func (g gatedStorage) ListFolders(ctx context.Context, parentID *int64) ([]model.Folder, error) {
	if parentID != nil && *parentID == g.folder {
		g.entered <- struct{}{}
		<-g.gate
	}
	return g.Storage.ListFolders(ctx, parentID)
}

func TestApp_StaleListingIsDropped(t *testing.T) {
	g := gatedStorage{
		Storage: seed(t, []string{"Slow", "Fast"}),
		folder:  1,
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	app := newApp(t, g)

	app, slow := press(app, "l")
	msgs := make(chan tea.Msg, 1)
	go func() { msgs <- slow() }()
	<-g.entered

	app = pressAndRun(t, app, "j", "l")
	assert.Assert(t, model.SameFolder(app.CurrentFolderID(), model.Ref(2)))

	close(g.gate)
	updated, _ := app.Update(<-msgs)
	app = updated.(tui.App)

	assert.Assert(t, model.SameFolder(app.CurrentFolderID(), model.Ref(2)), "stale listing must not replace the newer one")
	assert.Equal(t, app.Message(), "")
}

func TestApp_HelpToggle(t *testing.T) {
	app := newApp(t, seed(t, nil))

	app, _ = press(app, "?")
	assert.Equal(t, app.Mode(), tui.ModeHelp)

	app, _ = press(app, "x")
	assert.Equal(t, app.Mode(), tui.ModeNormal)
}

func TestApp_Quit(t *testing.T) {
	app := newApp(t, seed(t, nil))

	_, cmd := press(app, "q")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
