//go:build conformance

package conformance

import (
	"net/http"
	"testing"
)

func TestAuth_NoToken_401(t *testing.T) {
	req, err := http.NewRequest("GET", apiURL("/images"), nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	resp := doRequest(t, req)
	resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", resp.StatusCode)
	}
}

func TestAuth_ValidToken_200(t *testing.T) {
	status, _ := doJSON(t, "GET", apiURL("/images"), nil)
	if status != http.StatusOK {
		t.Errorf("expected status 200, got %d", status)
	}
}

func TestAuth_PublicEndpoints(t *testing.T) {
	for _, path := range []string{"/health", "/metadata/editable"} {
		resp, err := http.Get(publicURL(path))
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected status 200, got %d", path, resp.StatusCode)
		}
	}
}
