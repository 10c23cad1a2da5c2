//go:build conformance

package conformance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"
)

// apiURL builds a full URL for a path under the owner's account,
// e.g. "/images" or "/catalogues/3".
func apiURL(path string) string {
	return strings.TrimRight(baseURL, "/") + "/accounts/" + ownerID + path
}

// publicURL builds a full URL for an unauthenticated path.
func publicURL(path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// doRequest performs an HTTP request and returns the response.
func doRequest(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// doJSON performs an authenticated request and returns the decoded JSON.
func doJSON(t *testing.T, method, url string, body io.Reader) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return decode(t, doRequest(t, req))
}

func decode(t *testing.T, resp *http.Response) (int, map[string]any) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal JSON: %v\nbody: %s", err, string(data))
	}
	return resp.StatusCode, raw
}

// doUpload posts a multipart upload with the given file and form fields.
func doUpload(t *testing.T, file []byte, fields map[string]string) (int, map[string]any) {
	t.Helper()
	body, contentType := multipartBody(t, file, fields)
	req, err := http.NewRequest("POST", apiURL("/images"), body)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("Content-Type", contentType)
	return decode(t, doRequest(t, req))
}

// multipartBody builds a multipart form body with a file field and extra
// text fields.
func multipartBody(t *testing.T, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	fw, err := w.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

// makeJPEG encodes a small gradient as JPEG.
func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// uniqueName returns a catalogue name no other run uses.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// assertEnvelopeShape validates the response envelope structure.
func assertEnvelopeShape(t *testing.T, raw map[string]any) {
	t.Helper()

	if success, ok := raw["success"]; !ok {
		t.Error("envelope missing 'success' field")
	} else if _, ok := success.(bool); !ok {
		t.Errorf("'success' should be bool, got %T", success)
	}

	errs, ok := raw["errors"].([]any)
	if !ok {
		t.Errorf("'errors' should be array, got %T", raw["errors"])
	}
	for i, e := range errs {
		errObj, ok := e.(map[string]any)
		if !ok {
			t.Errorf("errors[%d] should be object, got %T", i, e)
			continue
		}
		if _, ok := errObj["code"].(float64); !ok {
			t.Errorf("errors[%d].code should be numeric", i)
		}
		if _, ok := errObj["message"].(string); !ok {
			t.Errorf("errors[%d].message should be string", i)
		}
	}

	if _, ok := raw["messages"].([]any); !ok {
		t.Errorf("'messages' should be array, got %T", raw["messages"])
	}
}

// assertField validates a field exists in an object and has the expected Go type.
// Returns the typed value.
func assertField[T any](t *testing.T, obj map[string]any, field string) T {
	t.Helper()
	val, ok := obj[field]
	if !ok {
		var zero T
		t.Errorf("missing field %q", field)
		return zero
	}
	typed, ok := val.(T)
	if !ok {
		var zero T
		t.Errorf("field %q: expected %T, got %T (%v)", field, zero, val, val)
		return zero
	}
	return typed
}

// uploadAndCleanup uploads a test image into a fresh catalogue and deletes
// the catalogue when the test ends. Returns the upload result.
func uploadAndCleanup(t *testing.T) map[string]any {
	t.Helper()
	status, raw := doUpload(t, makeJPEG(t, 32, 24), map[string]string{
		"catalogue":   uniqueName("conformance"),
		"description": "conformance upload",
	})
	if status != http.StatusCreated {
		t.Fatalf("upload failed with status %d: %v", status, raw)
	}
	result, ok := raw["result"].(map[string]any)
	if !ok {
		t.Fatalf("upload result is not object: %T", raw["result"])
	}
	catalogueID := assertField[float64](t, result, "catalogueId")

	t.Cleanup(func() {
		req, _ := http.NewRequest("DELETE", apiURL(fmt.Sprintf("/catalogues/%d", int64(catalogueID))), nil)
		req.Header.Set("Authorization", "Bearer "+authToken)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
		}
	})
	return result
}
