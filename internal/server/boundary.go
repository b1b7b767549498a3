package server

import (
	"errors"
	"net/http"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/storage"
)

// GET /folders[?parent_id=N]
func (s *Server) listFolders(w http.ResponseWriter, r *http.Request) {
	parentID, err := queryRef(r, "parent_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	folders, err := s.storage.ListFolders(r.Context(), parentID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, folders)
}

// GET /bookmarks[?folder_id=N]
func (s *Server) listBookmarks(w http.ResponseWriter, r *http.Request) {
	folderID, err := queryRef(r, "folder_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bookmarks, err := s.storage.ListBookmarks(r.Context(), folderID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bookmarks)
}

// POST /folders {name, parent_id}
func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	var params model.NewFolderParams
	if err := decode(r, &params); err != nil {
		s.writeError(w, r, err)
		return
	}
	folder, err := s.storage.CreateFolder(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, folder)
}

// POST /bookmarks {title, url, note, folder_id}
func (s *Server) createBookmark(w http.ResponseWriter, r *http.Request) {
	var params model.NewBookmarkParams
	if err := decode(r, &params); err != nil {
		s.writeError(w, r, err)
		return
	}
	bookmark, err := s.storage.CreateBookmark(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, bookmark)
}

// DELETE /folders/{id}; 204 whether or not the folder existed.
func (s *Server) deleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.storage.DeleteFolder(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /bookmarks/{id}
func (s *Server) deleteBookmark(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.storage.DeleteBookmark(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type nameRequest struct {
	Name string `json:"name"`
}

// PUT /folders/{id} {name}
func (s *Server) renameFolder(w http.ResponseWriter, r *http.Request) {
	editor, ok := s.storage.(storage.Editor)
	if !ok {
		s.writeError(w, r, errors.ErrUnsupported)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	folder, err := editor.RenameFolder(r.Context(), id, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, folder)
}

// PUT /bookmarks/{id} {title, url, note}
func (s *Server) updateBookmark(w http.ResponseWriter, r *http.Request) {
	editor, ok := s.storage.(storage.Editor)
	if !ok {
		s.writeError(w, r, errors.ErrUnsupported)
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var edit model.BookmarkEdit
	if err := decode(r, &edit); err != nil {
		s.writeError(w, r, err)
		return
	}
	bookmark, err := editor.UpdateBookmark(r.Context(), id, edit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, bookmark)
}
