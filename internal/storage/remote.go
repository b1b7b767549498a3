package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nikbrunner/bmtree/internal/model"
)

// Error kinds carried in ErrorBody.Kind.
const (
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindTransport  = "transport"
	KindInternal   = "internal"
)

// ErrorBody is the JSON error envelope exchanged with the bm HTTP API.
type ErrorBody struct {
	Error    string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	Field    string `json:"field,omitempty"`    // validation errors
	Resource string `json:"resource,omitempty"` // not_found errors: "folder" or "bookmark"
	ID       int64  `json:"id,omitempty"`       // not_found errors
}

// RemoteStorage implements Storage against the bm HTTP API.
type RemoteStorage struct {
	BaseURL   string
	HTTP      *http.Client
	UserAgent string
}

// NewRemoteStorage creates a client for the API rooted at baseURL.
func NewRemoteStorage(baseURL string, timeout time.Duration) (*RemoteStorage, error) {
	if baseURL == "" {
		return nil, errors.New("remote storage: base URL is empty")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("remote storage: invalid base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RemoteStorage{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		HTTP:      &http.Client{Timeout: timeout},
		UserAgent: "bm/remote",
	}, nil
}

func (r *RemoteStorage) ListFolders(ctx context.Context, parentID *int64) ([]model.Folder, error) {
	folders := []model.Folder{}
	err := r.do(ctx, "list folders", http.MethodGet, "/folders"+refQuery("parent_id", parentID), nil, &folders)
	return folders, err
}

func (r *RemoteStorage) ListBookmarks(ctx context.Context, folderID *int64) ([]model.Bookmark, error) {
	bookmarks := []model.Bookmark{}
	err := r.do(ctx, "list bookmarks", http.MethodGet, "/bookmarks"+refQuery("folder_id", folderID), nil, &bookmarks)
	return bookmarks, err
}

func (r *RemoteStorage) CreateFolder(ctx context.Context, params model.NewFolderParams) (model.Folder, error) {
	if err := params.Validate(); err != nil {
		return model.Folder{}, err
	}
	var folder model.Folder
	err := r.do(ctx, "create folder", http.MethodPost, "/folders", params, &folder)
	return folder, err
}

func (r *RemoteStorage) CreateBookmark(ctx context.Context, params model.NewBookmarkParams) (model.Bookmark, error) {
	if err := params.Validate(); err != nil {
		return model.Bookmark{}, err
	}
	var bookmark model.Bookmark
	err := r.do(ctx, "create bookmark", http.MethodPost, "/bookmarks", params, &bookmark)
	return bookmark, err
}

func (r *RemoteStorage) DeleteFolder(ctx context.Context, id int64) error {
	return ignoreNotFound(r.do(ctx, "delete folder", http.MethodDelete, "/folders/"+strconv.FormatInt(id, 10), nil, nil))
}

func (r *RemoteStorage) DeleteBookmark(ctx context.Context, id int64) error {
	return ignoreNotFound(r.do(ctx, "delete bookmark", http.MethodDelete, "/bookmarks/"+strconv.FormatInt(id, 10), nil, nil))
}

func (r *RemoteStorage) RenameFolder(ctx context.Context, id int64, name string) (model.Folder, error) {
	if err := (model.NewFolderParams{Name: name}).Validate(); err != nil {
		return model.Folder{}, err
	}
	var folder model.Folder
	body := map[string]string{"name": name}
	err := r.do(ctx, "rename folder", http.MethodPut, "/folders/"+strconv.FormatInt(id, 10), body, &folder)
	return folder, withID(err, id)
}

func (r *RemoteStorage) UpdateBookmark(ctx context.Context, id int64, edit model.BookmarkEdit) (model.Bookmark, error) {
	if err := edit.Validate(); err != nil {
		return model.Bookmark{}, err
	}
	var bookmark model.Bookmark
	err := r.do(ctx, "update bookmark", http.MethodPut, "/bookmarks/"+strconv.FormatInt(id, 10), edit, &bookmark)
	return bookmark, withID(err, id)
}

// do sends one JSON request and decodes a 2xx body into out (if non-nil).
func (r *RemoteStorage) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, body)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.UserAgent != "" {
		req.Header.Set("User-Agent", r.UserAgent)
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return &model.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return &model.TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if err := ensureOK(op, resp.StatusCode, b); err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &model.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// ensureOK maps a non-2xx response onto the model error kinds. A 404
// without the not_found envelope came from something other than the API.
func ensureOK(op string, status int, body []byte) error {
	if status >= 200 && status <= 299 {
		return nil
	}

	var eb ErrorBody
	_ = json.Unmarshal(body, &eb)
	msg := eb.Error
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	switch {
	case status == http.StatusBadRequest || eb.Kind == KindValidation:
		return &model.ValidationError{Field: eb.Field, Message: msg}
	case status == http.StatusNotFound && eb.Kind == KindNotFound:
		resource := eb.Resource
		if resource == "" {
			resource = "folder"
		}
		return &model.NotFoundError{Kind: resource, ID: eb.ID}
	default:
		return &model.TransportError{Op: op, StatusCode: status, Err: errors.New(msg)}
	}
}

// withID fills in the id of a NotFoundError produced by ensureOK.
func withID(err error, id int64) error {
	var nf *model.NotFoundError
	if errors.As(err, &nf) && nf.ID == 0 {
		nf.ID = id
	}
	return err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}

// refQuery encodes a folder reference; root is the absent parameter.
func refQuery(key string, ref *int64) string {
	if ref == nil {
		return ""
	}
	return "?" + key + "=" + strconv.FormatInt(*ref, 10)
}
