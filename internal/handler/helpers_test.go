package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leca/photex/internal/catalog"
	"github.com/leca/photex/internal/config"
	"github.com/leca/photex/internal/database"
	"github.com/leca/photex/internal/router"
	"github.com/leca/photex/internal/storage"
)

const (
	testToken  = "test-token"
	testOwner  = 42
	objectBase = "http://localhost:8080/objects"
)

// testServer creates a test HTTP server backed by SQLite and a filesystem
// object store, both in temporary directories.
func testServer(t *testing.T, tweak ...func(*config.Config)) *httptest.Server {
	t.Helper()

	db, err := database.NewSQLiteDB(filepath.Join(t.TempDir(), "photex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := storage.NewFileSystem(t.TempDir())

	cfg := &config.Config{
		AuthToken:      testToken,
		BaseURL:        "http://localhost:8080",
		ObjectBaseURL:  objectBase,
		MaxUploadBytes: 5 << 20,
	}
	for _, f := range tweak {
		f(cfg)
	}

	svc := catalog.New(db, store, catalog.Options{BaseURL: cfg.ObjectBaseURL})
	srv := router.New(svc, cfg)
	ts := httptest.NewServer(srv.Router)
	t.Cleanup(ts.Close)
	return ts
}

// accountURL returns the API path prefix for the test owner.
func accountURL(ts *httptest.Server, path string) string {
	return fmt.Sprintf("%s/accounts/%d%s", ts.URL, testOwner, path)
}

// authReq creates an *http.Request with the test bearer token.
func authReq(t *testing.T, method, url string, body io.Reader) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func jsonReq(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req := authReq(t, method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, req)
}

// uploadForm builds a multipart body. A nil file omits the file field.
func uploadForm(t *testing.T, file []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		fw, err := w.CreateFormFile("file", "photo.jpg")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func upload(t *testing.T, ts *httptest.Server, file []byte, fields map[string]string) *http.Response {
	t.Helper()
	body, contentType := uploadForm(t, file, fields)
	req := authReq(t, http.MethodPost, accountURL(ts, "/images"), body)
	req.Header.Set("Content-Type", contentType)
	return do(t, req)
}

// envelope is the response envelope for assertions.
type envelope struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// decode reads the envelope and, when target is non-nil, its result.
func decode(t *testing.T, resp *http.Response, target any) envelope {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	if target != nil {
		require.NoError(t, json.Unmarshal(env.Result, target))
	}
	return env
}

type imageResult struct {
	ID          int64                        `json:"id"`
	CatalogueID int64                        `json:"catalogueId"`
	URL         string                       `json:"url"`
	Description string                       `json:"description"`
	Metadata    map[string]map[string]string `json:"metadata"`
}

type catalogueResult struct {
	ID     int64         `json:"id"`
	Name   string        `json:"name"`
	Images []imageResult `json:"images"`
}

// uploadAndDecode uploads into the named catalogue and returns the new image.
func uploadAndDecode(t *testing.T, ts *httptest.Server, file []byte, catalogue string) imageResult {
	t.Helper()
	resp := upload(t, ts, file, map[string]string{"catalogue": catalogue, "description": "a photo"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var img imageResult
	env := decode(t, resp, &img)
	require.True(t, env.Success)
	return img
}
