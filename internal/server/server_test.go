package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/server"
	"github.com/nikbrunner/bmtree/internal/session"
	"github.com/nikbrunner/bmtree/internal/storage"
)

func newTestServer(t *testing.T, s storage.Storage) *httptest.Server {
	t.Helper()
	srv := server.New(s, server.Options{
		CORSOrigin: "http://localhost:3000",
		Logger:     zerolog.Nop(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		assert.NilError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, rd)
	assert.NilError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	assert.NilError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	assert.NilError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type sessionBody struct {
	ID       string          `json:"id"`
	View     session.View    `json:"view"`
	Folder   *model.Folder   `json:"folder"`
	Bookmark *model.Bookmark `json:"bookmark"`
	Error    string          `json:"error"`
	Kind     string          `json:"kind"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade))

	resp := do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, body["status"], "ok")
}

func TestBoundary_CreateAndList(t *testing.T) {
	ts := newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade))

	resp := do(t, http.MethodPost, ts.URL+"/folders", map[string]any{"name": "Work", "parent_id": nil})
	assert.Equal(t, resp.StatusCode, http.StatusCreated)
	work := decodeBody[model.Folder](t, resp)
	assert.Equal(t, work.ID, int64(1))

	resp = do(t, http.MethodPost, ts.URL+"/bookmarks", map[string]any{"title": "Docs", "url": "https://d", "folder_id": 1})
	assert.Equal(t, resp.StatusCode, http.StatusCreated)

	resp = do(t, http.MethodGet, ts.URL+"/folders", nil)
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	assert.Check(t, is.Len(decodeBody[[]model.Folder](t, resp), 1))

	resp = do(t, http.MethodGet, ts.URL+"/bookmarks?folder_id=1", nil)
	bookmarks := decodeBody[[]model.Bookmark](t, resp)
	assert.Assert(t, is.Len(bookmarks, 1))
	assert.Equal(t, bookmarks[0].Title, "Docs")

	resp = do(t, http.MethodGet, ts.URL+"/bookmarks", nil)
	assert.Check(t, is.Len(decodeBody[[]model.Bookmark](t, resp), 0))
}

func TestBoundary_StatusMapping(t *testing.T) {
	ts := newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{name: "empty name", method: http.MethodPost, path: "/folders", body: map[string]any{"name": ""}, status: 400, kind: storage.KindValidation},
		{name: "empty url", method: http.MethodPost, path: "/bookmarks", body: map[string]any{"title": "x"}, status: 400, kind: storage.KindValidation},
		{name: "missing parent", method: http.MethodPost, path: "/folders", body: map[string]any{"name": "x", "parent_id": 9}, status: 404, kind: storage.KindNotFound},
		{name: "missing folder", method: http.MethodPost, path: "/bookmarks", body: map[string]any{"title": "x", "url": "u", "folder_id": 9}, status: 404, kind: storage.KindNotFound},
		{name: "malformed query", method: http.MethodGet, path: "/folders?parent_id=abc", status: 400, kind: storage.KindValidation},
		{name: "malformed id", method: http.MethodDelete, path: "/folders/abc", status: 400, kind: storage.KindValidation},
		{name: "rename missing", method: http.MethodPut, path: "/folders/9", body: map[string]any{"name": "x"}, status: 404, kind: storage.KindNotFound},
		{name: "bad json", method: http.MethodPost, path: "/folders", body: "not an object", status: 400, kind: storage.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, resp.StatusCode, tt.status)
			body := decodeBody[storage.ErrorBody](t, resp)
			assert.Equal(t, body.Kind, tt.kind)
		})
	}
}

func TestBoundary_OversizedBody(t *testing.T) {
	srv := server.New(storage.NewMemoryStorage(model.DeleteCascade), server.Options{Logger: zerolog.Nop()})

	for _, path := range []string{"/folders", "/bookmarks"} {
		t.Run(path, func(t *testing.T) {
			body := `{"name":"` + strings.Repeat("x", 2<<20) + `"}`
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, rec.Code, http.StatusRequestEntityTooLarge)
			var eb storage.ErrorBody
			assert.NilError(t, json.NewDecoder(rec.Body).Decode(&eb))
			assert.Equal(t, eb.Kind, storage.KindValidation)
		})
	}

	resp, err := http.Get(newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade)).URL + "/folders")
	assert.NilError(t, err)
	resp.Body.Close()
	assert.Equal(t, resp.StatusCode, http.StatusOK, "small requests are unaffected")
}

func TestBoundary_DeleteAbsentIs204(t *testing.T) {
	ts := newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade))

	for _, path := range []string{"/folders/5", "/bookmarks/5"} {
		resp := do(t, http.MethodDelete, ts.URL+path, nil)
		assert.Equal(t, resp.StatusCode, http.StatusNoContent, path)
	}
}

func TestBoundary_NotFoundCarriesID(t *testing.T) {
	ts := newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade))

	resp := do(t, http.MethodPut, ts.URL+"/bookmarks/7", map[string]any{"title": "x", "url": "u"})
	assert.Equal(t, resp.StatusCode, http.StatusNotFound)
	body := decodeBody[storage.ErrorBody](t, resp)
	assert.Equal(t, body.Resource, "bookmark")
	assert.Equal(t, body.ID, int64(7))
}

func TestSessions_Flow(t *testing.T) {
	ts := newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade))

	resp := do(t, http.MethodPost, ts.URL+"/sessions", nil)
	assert.Equal(t, resp.StatusCode, http.StatusCreated)
	created := decodeBody[sessionBody](t, resp)
	assert.Assert(t, created.ID != "")
	assert.Check(t, created.View.FolderID == nil)
	base := ts.URL + "/sessions/" + created.ID

	resp = do(t, http.MethodPost, base+"/folders", map[string]string{"name": "Work"})
	assert.Equal(t, resp.StatusCode, http.StatusCreated)
	added := decodeBody[sessionBody](t, resp)
	assert.Equal(t, added.Folder.ID, int64(1))
	assert.Check(t, is.Len(added.View.Folders, 1))

	resp = do(t, http.MethodPost, base+"/enter", map[string]int64{"folder_id": 1})
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	entered := decodeBody[sessionBody](t, resp)
	assert.Equal(t, model.FormatRef(entered.View.FolderID), "1")
	assert.Check(t, entered.View.CanGoBack)

	resp = do(t, http.MethodPost, base+"/bookmarks", map[string]string{"title": "Docs", "url": "https://d"})
	assert.Equal(t, resp.StatusCode, http.StatusCreated)
	withDocs := decodeBody[sessionBody](t, resp)
	assert.Equal(t, model.FormatRef(withDocs.Bookmark.FolderID), "1")
	assert.Check(t, is.Len(withDocs.View.Bookmarks, 1))

	resp = do(t, http.MethodPost, base+"/back", nil)
	back := decodeBody[sessionBody](t, resp)
	assert.Check(t, back.View.FolderID == nil)
	assert.Check(t, is.Len(back.View.Bookmarks, 0))

	resp = do(t, http.MethodDelete, base+"/folders/1", nil)
	assert.Equal(t, resp.StatusCode, http.StatusOK)
	removed := decodeBody[sessionBody](t, resp)
	assert.Check(t, is.Len(removed.View.Folders, 0))

	resp = do(t, http.MethodGet, base, nil)
	assert.Equal(t, resp.StatusCode, http.StatusOK)

	resp = do(t, http.MethodDelete, base, nil)
	assert.Equal(t, resp.StatusCode, http.StatusNoContent)
	resp = do(t, http.MethodGet, base, nil)
	assert.Equal(t, resp.StatusCode, http.StatusNotFound)
}

func TestSessions_IndependentCursors(t *testing.T) {
	ts := newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade))

	a := decodeBody[sessionBody](t, do(t, http.MethodPost, ts.URL+"/sessions", nil))
	b := decodeBody[sessionBody](t, do(t, http.MethodPost, ts.URL+"/sessions", nil))
	assert.Check(t, a.ID != b.ID)

	do(t, http.MethodPost, ts.URL+"/sessions/"+a.ID+"/enter", map[string]int64{"folder_id": 3})

	view := decodeBody[sessionBody](t, do(t, http.MethodGet, ts.URL+"/sessions/"+b.ID, nil))
	assert.Check(t, view.View.FolderID == nil)
}

func TestSessions_ValidationCarriesView(t *testing.T) {
	ts := newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade))
	created := decodeBody[sessionBody](t, do(t, http.MethodPost, ts.URL+"/sessions", nil))

	resp := do(t, http.MethodPost, ts.URL+"/sessions/"+created.ID+"/folders", map[string]string{"name": ""})
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
	body := decodeBody[sessionBody](t, resp)
	assert.Equal(t, body.Kind, storage.KindValidation)
	assert.Check(t, body.View.Folders != nil)

	resp = do(t, http.MethodPost, ts.URL+"/sessions/"+created.ID+"/enter", map[string]any{})
	assert.Equal(t, resp.StatusCode, http.StatusBadRequest)
}

func TestSessions_UnknownSession(t *testing.T) {
	ts := newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade))

	resp := do(t, http.MethodPost, ts.URL+"/sessions/nope/back", nil)
	assert.Equal(t, resp.StatusCode, http.StatusNotFound)
}

// downStorage fails every call like an unreachable upstream.
type downStorage struct {
	storage.Storage
}

func (downStorage) ListFolders(context.Context, *int64) ([]model.Folder, error) {
	return nil, &model.TransportError{Op: "list folders", Err: errors.New("connection refused")}
}

func TestSessions_UpstreamFailureIs502(t *testing.T) {
	ts := newTestServer(t, downStorage{storage.NewMemoryStorage(model.DeleteCascade)})

	resp := do(t, http.MethodPost, ts.URL+"/sessions", nil)
	assert.Equal(t, resp.StatusCode, http.StatusBadGateway)
	body := decodeBody[storage.ErrorBody](t, resp)
	assert.Equal(t, body.Kind, storage.KindTransport)

	resp = do(t, http.MethodGet, ts.URL+"/folders", nil)
	assert.Equal(t, resp.StatusCode, http.StatusBadGateway)
}

func TestEditUnsupported(t *testing.T) {
	ts := newTestServer(t, downStorage{storage.NewMemoryStorage(model.DeleteCascade)})

	resp := do(t, http.MethodPut, ts.URL+"/folders/1", map[string]string{"name": "x"})
	assert.Equal(t, resp.StatusCode, http.StatusNotImplemented)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, storage.NewMemoryStorage(model.DeleteCascade))

	resp := do(t, http.MethodOptions, ts.URL+"/folders", nil)
	assert.Equal(t, resp.StatusCode, http.StatusNoContent)
	assert.Equal(t, resp.Header.Get("Access-Control-Allow-Origin"), "http://localhost:3000")
}
