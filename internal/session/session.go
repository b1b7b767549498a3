// Package session keeps one user's position in the folder tree in sync with
// storage. Every intent moves the navigator, then re-queries storage for the
// cursor's contents; the result is the session's authoritative view.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/navigator"
	"github.com/nikbrunner/bmtree/internal/storage"
)

// ErrSuperseded is returned when a later intent started before this one's
// listing arrived. The stale listing is not installed.
var ErrSuperseded = errors.New("session: superseded by a later intent")

// View is the listing of the folder under the cursor.
type View struct {
	FolderID  *int64           `json:"folder_id"`
	Folders   []model.Folder   `json:"folders"`
	Bookmarks []model.Bookmark `json:"bookmarks"`
	CanGoBack bool             `json:"can_go_back"`
	Depth     int              `json:"depth"`
}

func (v View) clone() View {
	out := v
	out.FolderID = model.CloneRef(v.FolderID)
	out.Folders = make([]model.Folder, len(v.Folders))
	for i, f := range v.Folders {
		f.ParentID = model.CloneRef(f.ParentID)
		out.Folders[i] = f
	}
	out.Bookmarks = make([]model.Bookmark, len(v.Bookmarks))
	for i, b := range v.Bookmarks {
		b.FolderID = model.CloneRef(b.FolderID)
		out.Bookmarks[i] = b
	}
	return out
}

// Params configures a new Session.
type Params struct {
	ID           string // generated when empty
	Storage      storage.Storage
	HistoryLimit int
	Logger       *zerolog.Logger
}

// Session owns a navigator, a storage handle and the last installed view.
// The mutex guards session state only and is never held across storage calls.
type Session struct {
	id      string
	storage storage.Storage
	log     zerolog.Logger

	mu     sync.Mutex
	nav    *navigator.Navigator
	view   View
	intent uint64
}

// New creates a session positioned at root. Its view is empty until the
// first Refresh.
func New(params Params) *Session {
	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}
	logger := zerolog.Nop()
	if params.Logger != nil {
		logger = *params.Logger
	}
	return &Session{
		id:      id,
		storage: params.Storage,
		log:     logger.With().Str("session", id).Logger(),
		nav:     navigator.New(params.HistoryLimit),
		view:    View{Folders: []model.Folder{}, Bookmarks: []model.Bookmark{}},
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CurrentView returns a copy of the last installed view.
func (s *Session) CurrentView() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.clone()
}

// History returns the navigator's back stack, oldest first.
func (s *Session) History() []*int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.History()
}

// intentState is what an intent saw of the navigator when it started.
type intentState struct {
	n         uint64
	folder    *int64
	canGoBack bool
	depth     int
}

// begin starts a new intent. Callers must hold s.mu.
func (s *Session) begin() intentState {
	s.intent++
	return intentState{
		n:         s.intent,
		folder:    s.nav.Current(),
		canGoBack: s.nav.CanGoBack(),
		depth:     s.nav.Depth(),
	}
}

// Refresh re-lists the folder under the cursor and installs the result.
func (s *Session) Refresh(ctx context.Context) (View, error) {
	s.mu.Lock()
	st := s.begin()
	s.mu.Unlock()

	s.log.Debug().Uint64("intent", st.n).Str("folder", model.FormatRef(st.folder)).Msg("refresh")
	view, err := s.list(ctx, st)
	if err != nil {
		return View{}, err
	}
	return s.install(st, view)
}

// Enter moves the cursor into folder id and refreshes. The folder is not
// checked for existence: a missing folder lists empty.
func (s *Session) Enter(ctx context.Context, id int64) (View, error) {
	s.mu.Lock()
	before := s.nav.State()
	moved := s.nav.Enter(id)
	st := s.begin()
	s.mu.Unlock()

	s.log.Debug().Uint64("intent", st.n).Int64("folder", id).Bool("moved", moved).Msg("enter")
	return s.navigate(ctx, st, before, moved)
}

// Back returns to the previous folder and refreshes. On an empty history
// it only refreshes.
func (s *Session) Back(ctx context.Context) (View, error) {
	s.mu.Lock()
	before := s.nav.State()
	moved := s.nav.Back()
	st := s.begin()
	s.mu.Unlock()

	s.log.Debug().Uint64("intent", st.n).Str("folder", model.FormatRef(st.folder)).Bool("moved", moved).Msg("back")
	return s.navigate(ctx, st, before, moved)
}

// navigate finishes a cursor move. If the listing fails and nothing newer
// has started, the navigator goes back to where it was before the move.
func (s *Session) navigate(ctx context.Context, st intentState, before navigator.State, moved bool) (View, error) {
	view, err := s.list(ctx, st)
	if err != nil {
		s.mu.Lock()
		if moved && st.n == s.intent {
			s.nav.Restore(before)
		}
		s.mu.Unlock()
		s.log.Warn().Err(err).Uint64("intent", st.n).Msg("listing failed")
		return View{}, err
	}
	return s.install(st, view)
}

func (s *Session) list(ctx context.Context, st intentState) (View, error) {
	folders, err := s.storage.ListFolders(ctx, st.folder)
	if err != nil {
		return View{}, fmt.Errorf("list folders in %s: %w", model.FormatRef(st.folder), err)
	}
	bookmarks, err := s.storage.ListBookmarks(ctx, st.folder)
	if err != nil {
		return View{}, fmt.Errorf("list bookmarks in %s: %w", model.FormatRef(st.folder), err)
	}
	if folders == nil {
		folders = []model.Folder{}
	}
	if bookmarks == nil {
		bookmarks = []model.Bookmark{}
	}
	return View{
		FolderID:  st.folder,
		Folders:   folders,
		Bookmarks: bookmarks,
		CanGoBack: st.canGoBack,
		Depth:     st.depth,
	}, nil
}

// install makes view authoritative unless a later intent has started.
func (s *Session) install(st intentState, view View) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.n != s.intent {
		s.log.Debug().Uint64("intent", st.n).Uint64("latest", s.intent).Msg("discarding stale listing")
		return View{}, ErrSuperseded
	}
	s.view = view
	return view.clone(), nil
}

// refreshAfter re-lists once a mutation has succeeded. Being overtaken by a
// later intent is not an error for the mutation.
func (s *Session) refreshAfter(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return fmt.Errorf("refresh: %w", err)
	}
	return nil
}

func (s *Session) currentFolder() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav.Current()
}

// AddFolder creates a folder inside the current folder and refreshes.
// If the create succeeds but the refresh fails, the folder is returned
// together with the refresh error.
func (s *Session) AddFolder(ctx context.Context, name string) (model.Folder, error) {
	params := model.NewFolderParams{Name: name, ParentID: s.currentFolder()}
	if err := params.Validate(); err != nil {
		return model.Folder{}, err
	}

	folder, err := s.storage.CreateFolder(ctx, params)
	if err != nil {
		return model.Folder{}, err
	}
	s.log.Debug().Int64("id", folder.ID).Str("parent", model.FormatRef(folder.ParentID)).Msg("folder created")
	return folder, s.refreshAfter(ctx)
}

// AddBookmark creates a bookmark inside the current folder and refreshes.
func (s *Session) AddBookmark(ctx context.Context, title, url, note string) (model.Bookmark, error) {
	params := model.NewBookmarkParams{Title: title, URL: url, Note: note, FolderID: s.currentFolder()}
	if err := params.Validate(); err != nil {
		return model.Bookmark{}, err
	}

	bookmark, err := s.storage.CreateBookmark(ctx, params)
	if err != nil {
		return model.Bookmark{}, err
	}
	s.log.Debug().Int64("id", bookmark.ID).Str("folder", model.FormatRef(bookmark.FolderID)).Msg("bookmark created")
	return bookmark, s.refreshAfter(ctx)
}

// RemoveFolder deletes a folder and refreshes. Removing the folder under the
// cursor leaves the cursor where it is; the view becomes empty.
func (s *Session) RemoveFolder(ctx context.Context, id int64) error {
	if err := s.storage.DeleteFolder(ctx, id); err != nil {
		return err
	}
	s.log.Debug().Int64("id", id).Msg("folder removed")
	return s.refreshAfter(ctx)
}

// RemoveBookmark deletes a bookmark and refreshes.
func (s *Session) RemoveBookmark(ctx context.Context, id int64) error {
	if err := s.storage.DeleteBookmark(ctx, id); err != nil {
		return err
	}
	s.log.Debug().Int64("id", id).Msg("bookmark removed")
	return s.refreshAfter(ctx)
}

// RenameFolder renames a folder and refreshes. It returns
// errors.ErrUnsupported when the storage cannot edit records.
func (s *Session) RenameFolder(ctx context.Context, id int64, name string) (model.Folder, error) {
	editor, ok := s.storage.(storage.Editor)
	if !ok {
		return model.Folder{}, errors.ErrUnsupported
	}
	if err := (model.NewFolderParams{Name: name}).Validate(); err != nil {
		return model.Folder{}, err
	}

	folder, err := editor.RenameFolder(ctx, id, name)
	if err != nil {
		return model.Folder{}, err
	}
	return folder, s.refreshAfter(ctx)
}

// EditBookmark replaces a bookmark's title, url and note and refreshes.
func (s *Session) EditBookmark(ctx context.Context, id int64, edit model.BookmarkEdit) (model.Bookmark, error) {
	editor, ok := s.storage.(storage.Editor)
	if !ok {
		return model.Bookmark{}, errors.ErrUnsupported
	}
	if err := edit.Validate(); err != nil {
		return model.Bookmark{}, err
	}

	bookmark, err := editor.UpdateBookmark(ctx, id, edit)
	if err != nil {
		return model.Bookmark{}, err
	}
	return bookmark, s.refreshAfter(ctx)
}
