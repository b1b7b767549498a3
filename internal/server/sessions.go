package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/session"
	"github.com/nikbrunner/bmtree/internal/storage"
)

// sessionResponse is returned by every successful session route.
type sessionResponse struct {
	ID       string          `json:"id"`
	View     session.View    `json:"view"`
	Folder   *model.Folder   `json:"folder,omitempty"`
	Bookmark *model.Bookmark `json:"bookmark,omitempty"`
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// withSession resolves {sid} or answers 404.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := chi.URLParam(r, "sid")
		sess, ok := s.sessions.Get(sid)
		if !ok {
			respondJSON(w, http.StatusNotFound, storage.ErrorBody{Error: "session " + sid + " not found", Kind: storage.KindNotFound, Resource: "session"})
			return
		}
		h(w, r, sess)
	}
}

func respondView(w http.ResponseWriter, status int, sess *session.Session) {
	respondJSON(w, status, sessionResponse{ID: sess.ID(), View: sess.CurrentView()})
}

// POST /sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	if _, err := sess.Refresh(r.Context()); err != nil {
		s.sessions.Delete(sess.ID())
		s.writeError(w, r, err)
		return
	}
	respondView(w, http.StatusCreated, sess)
}

// GET /sessions/{sid}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	respondView(w, http.StatusOK, sess)
}

// DELETE /sessions/{sid}
func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "sid"))
	w.WriteHeader(http.StatusNoContent)
}

// POST /sessions/{sid}/refresh
func (s *Server) refreshSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if _, err := sess.Refresh(r.Context()); err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	respondView(w, http.StatusOK, sess)
}

type enterRequest struct {
	FolderID *int64 `json:"folder_id"`
}

// POST /sessions/{sid}/enter {folder_id}
func (s *Server) enterFolder(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req enterRequest
	if err := decode(r, &req); err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	if req.FolderID == nil {
		s.writeSessionError(w, r, sess, &model.ValidationError{Field: "folder_id", Message: "folder_id is required"})
		return
	}
	if _, err := sess.Enter(r.Context(), *req.FolderID); err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	respondView(w, http.StatusOK, sess)
}

// POST /sessions/{sid}/back
func (s *Server) goBack(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if _, err := sess.Back(r.Context()); err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	respondView(w, http.StatusOK, sess)
}

// POST /sessions/{sid}/folders {name}
func (s *Server) addFolder(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	folder, err := sess.AddFolder(r.Context(), req.Name)
	if err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID(), View: sess.CurrentView(), Folder: &folder})
}

// POST /sessions/{sid}/bookmarks {title, url, note}
func (s *Server) addBookmark(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req model.BookmarkEdit
	if err := decode(r, &req); err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	bookmark, err := sess.AddBookmark(r.Context(), req.Title, req.URL, req.Note)
	if err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID(), View: sess.CurrentView(), Bookmark: &bookmark})
}

// PUT /sessions/{sid}/folders/{id} {name}
func (s *Server) renameSessionFolder(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, err := pathID(r)
	if err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	folder, err := sess.RenameFolder(r.Context(), id, req.Name)
	if err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{ID: sess.ID(), View: sess.CurrentView(), Folder: &folder})
}

// PUT /sessions/{sid}/bookmarks/{id} {title, url, note}
func (s *Server) editSessionBookmark(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, err := pathID(r)
	if err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	var edit model.BookmarkEdit
	if err := decode(r, &edit); err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	bookmark, err := sess.EditBookmark(r.Context(), id, edit)
	if err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse{ID: sess.ID(), View: sess.CurrentView(), Bookmark: &bookmark})
}

// DELETE /sessions/{sid}/folders/{id}
func (s *Server) removeFolder(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, err := pathID(r)
	if err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	if err := sess.RemoveFolder(r.Context(), id); err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	respondView(w, http.StatusOK, sess)
}

// DELETE /sessions/{sid}/bookmarks/{id}
func (s *Server) removeBookmark(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id, err := pathID(r)
	if err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	if err := sess.RemoveBookmark(r.Context(), id); err != nil {
		s.writeSessionError(w, r, sess, err)
		return
	}
	respondView(w, http.StatusOK, sess)
}
