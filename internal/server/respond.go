package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/session"
	"github.com/nikbrunner/bmtree/internal/storage"
)

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error kind onto a status and the JSON error envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := s.errorBody(r, err)
	respondJSON(w, status, body)
}

// sessionError is the error envelope of session routes; it carries the view
// the session still shows.
type sessionError struct {
	storage.ErrorBody
	View session.View `json:"view"`
}

func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, sess *session.Session, err error) {
	status, body := s.errorBody(r, err)
	respondJSON(w, status, sessionError{ErrorBody: body, View: sess.CurrentView()})
}

func (s *Server) errorBody(r *http.Request, err error) (int, storage.ErrorBody) {
	var (
		verr *model.ValidationError
		nf   *model.NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, storage.ErrorBody{Error: verr.Message, Kind: storage.KindValidation, Field: verr.Field}
	case errors.As(err, &nf):
		return http.StatusNotFound, storage.ErrorBody{Error: nf.Error(), Kind: storage.KindNotFound, Resource: nf.Kind, ID: nf.ID}
	case model.IsTransport(err):
		s.log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream storage failed")
		return http.StatusBadGateway, storage.ErrorBody{Error: err.Error(), Kind: storage.KindTransport}
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, storage.ErrorBody{Error: err.Error(), Kind: storage.KindValidation}
	case errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict, storage.ErrorBody{Error: err.Error(), Kind: storage.KindInternal}
	case errors.Is(err, errors.ErrUnsupported):
		return http.StatusNotImplemented, storage.ErrorBody{Error: "storage does not support editing", Kind: storage.KindInternal}
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		return http.StatusInternalServerError, storage.ErrorBody{Error: "internal error", Kind: storage.KindInternal}
	}
}

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return &model.ValidationError{Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &model.ValidationError{Field: "id", Message: fmt.Sprintf("invalid id %q", raw)}
	}
	return id, nil
}

// queryRef parses an optional folder reference; absent means root.
func queryRef(r *http.Request, key string) (*int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &model.ValidationError{Field: key, Message: fmt.Sprintf("invalid folder id %q", raw)}
	}
	return model.Ref(id), nil
}
