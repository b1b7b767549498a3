package model

// Store holds all bookmarks and folders.
type Store struct {
	Folders        []Folder   `json:"folders"`
	Bookmarks      []Bookmark `json:"bookmarks"`
	NextFolderID   int64      `json:"next_folder_id"`
	NextBookmarkID int64      `json:"next_bookmark_id"`
}

// NewStore creates an empty Store with initialized slices.
func NewStore() *Store {
	return &Store{
		Folders:        []Folder{},
		Bookmarks:      []Bookmark{},
		NextFolderID:   1,
		NextBookmarkID: 1,
	}
}

// Normalize repairs a Store decoded from disk: nil slices become empty and
// the id counters are moved past every id already in use.
func (s *Store) Normalize() {
	if s.Folders == nil {
		s.Folders = []Folder{}
	}
	if s.Bookmarks == nil {
		s.Bookmarks = []Bookmark{}
	}
	for _, f := range s.Folders {
		if f.ID >= s.NextFolderID {
			s.NextFolderID = f.ID + 1
		}
	}
	for _, b := range s.Bookmarks {
		if b.ID >= s.NextBookmarkID {
			s.NextBookmarkID = b.ID + 1
		}
	}
	if s.NextFolderID < 1 {
		s.NextFolderID = 1
	}
	if s.NextBookmarkID < 1 {
		s.NextBookmarkID = 1
	}
}

// GetFoldersInFolder returns folders with the given parent ID, in insertion order.
// Pass nil for root level folders.
func (s *Store) GetFoldersInFolder(parentID *int64) []Folder {
	result := []Folder{}
	for _, f := range s.Folders {
		if SameFolder(f.ParentID, parentID) {
			result = append(result, f)
		}
	}
	return result
}

// GetBookmarksInFolder returns bookmarks in the given folder, in insertion order.
// Pass nil for root level bookmarks.
func (s *Store) GetBookmarksInFolder(folderID *int64) []Bookmark {
	result := []Bookmark{}
	for _, b := range s.Bookmarks {
		if SameFolder(b.FolderID, folderID) {
			result = append(result, b)
		}
	}
	return result
}

// GetFolderByID finds a folder by ID, returns nil if not found.
func (s *Store) GetFolderByID(id int64) *Folder {
	for i := range s.Folders {
		if s.Folders[i].ID == id {
			return &s.Folders[i]
		}
	}
	return nil
}

// GetBookmarkByID finds a bookmark by ID, returns nil if not found.
func (s *Store) GetBookmarkByID(id int64) *Bookmark {
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id {
			return &s.Bookmarks[i]
		}
	}
	return nil
}

// AddFolder validates params and appends a folder with the next id.
func (s *Store) AddFolder(params NewFolderParams) (Folder, error) {
	if err := params.Validate(); err != nil {
		return Folder{}, err
	}
	if params.ParentID != nil && s.GetFolderByID(*params.ParentID) == nil {
		return Folder{}, &NotFoundError{Kind: "folder", ID: *params.ParentID}
	}
	if s.NextFolderID < 1 {
		s.NextFolderID = 1
	}

	folder := Folder{
		ID:       s.NextFolderID,
		Name:     params.Name,
		ParentID: CloneRef(params.ParentID),
	}
	s.NextFolderID++
	s.Folders = append(s.Folders, folder)
	return folder, nil
}

// AddBookmark validates params and appends a bookmark with the next id.
func (s *Store) AddBookmark(params NewBookmarkParams) (Bookmark, error) {
	if err := params.Validate(); err != nil {
		return Bookmark{}, err
	}
	if params.FolderID != nil && s.GetFolderByID(*params.FolderID) == nil {
		return Bookmark{}, &NotFoundError{Kind: "folder", ID: *params.FolderID}
	}
	if s.NextBookmarkID < 1 {
		s.NextBookmarkID = 1
	}

	bookmark := Bookmark{
		ID:       s.NextBookmarkID,
		Title:    params.Title,
		URL:      params.URL,
		Note:     params.Note,
		FolderID: CloneRef(params.FolderID),
	}
	s.NextBookmarkID++
	s.Bookmarks = append(s.Bookmarks, bookmark)
	return bookmark, nil
}

// RenameFolder changes the name of an existing folder.
func (s *Store) RenameFolder(id int64, name string) (Folder, error) {
	if err := (NewFolderParams{Name: name}).Validate(); err != nil {
		return Folder{}, err
	}
	folder := s.GetFolderByID(id)
	if folder == nil {
		return Folder{}, &NotFoundError{Kind: "folder", ID: id}
	}
	folder.Name = name
	return *folder, nil
}

// UpdateBookmark replaces the title, URL and note of an existing bookmark.
func (s *Store) UpdateBookmark(id int64, edit BookmarkEdit) (Bookmark, error) {
	if err := edit.Validate(); err != nil {
		return Bookmark{}, err
	}
	bookmark := s.GetBookmarkByID(id)
	if bookmark == nil {
		return Bookmark{}, &NotFoundError{Kind: "bookmark", ID: id}
	}
	bookmark.Title = edit.Title
	bookmark.URL = edit.URL
	bookmark.Note = edit.Note
	return *bookmark, nil
}

// DescendantIDs returns id and the ids of every folder nested below it.
func (s *Store) DescendantIDs(id int64) map[int64]bool {
	ids := map[int64]bool{id: true}
	queue := []int64{id}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, f := range s.Folders {
			if f.ParentID != nil && *f.ParentID == parent && !ids[f.ID] {
				ids[f.ID] = true
				queue = append(queue, f.ID)
			}
		}
	}
	return ids
}

// DeleteFolder removes a folder according to policy.
// Returns false if the folder did not exist; that is not an error.
func (s *Store) DeleteFolder(id int64, policy DeletePolicy) bool {
	if s.GetFolderByID(id) == nil {
		return false
	}

	switch policy {
	case DeleteReparent:
		folders := s.Folders[:0]
		for _, f := range s.Folders {
			if f.ID == id {
				continue
			}
			if f.ParentID != nil && *f.ParentID == id {
				f.ParentID = nil
			}
			folders = append(folders, f)
		}
		s.Folders = folders
		for i := range s.Bookmarks {
			if s.Bookmarks[i].FolderID != nil && *s.Bookmarks[i].FolderID == id {
				s.Bookmarks[i].FolderID = nil
			}
		}

	default:
		doomed := s.DescendantIDs(id)
		folders := s.Folders[:0]
		for _, f := range s.Folders {
			if !doomed[f.ID] {
				folders = append(folders, f)
			}
		}
		s.Folders = folders
		bookmarks := s.Bookmarks[:0]
		for _, b := range s.Bookmarks {
			if b.FolderID == nil || !doomed[*b.FolderID] {
				bookmarks = append(bookmarks, b)
			}
		}
		s.Bookmarks = bookmarks
	}
	return true
}

// DeleteBookmark removes a bookmark. Returns false if it did not exist.
func (s *Store) DeleteBookmark(id int64) bool {
	for i := range s.Bookmarks {
		if s.Bookmarks[i].ID == id {
			s.Bookmarks = append(s.Bookmarks[:i], s.Bookmarks[i+1:]...)
			return true
		}
	}
	return false
}
