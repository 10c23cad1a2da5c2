//go:build conformance

package conformance

import (
	"net/http"
	"testing"
)

func TestEnvelope_SuccessShape(t *testing.T) {
	status, raw := doJSON(t, "GET", apiURL("/catalogues"), nil)
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	assertEnvelopeShape(t, raw)

	if _, ok := raw["result"].([]any); !ok {
		t.Errorf("result should be an array, got %T", raw["result"])
	}
}

func TestEnvelope_ErrorShape(t *testing.T) {
	status, raw := doJSON(t, "GET", apiURL("/images/999999999"), nil)
	if status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", status)
	}
	assertEnvelopeShape(t, raw)

	if success, _ := raw["success"].(bool); success {
		t.Error("success should be false for error responses")
	}
	if raw["result"] != nil {
		t.Error("result should be nil for error responses")
	}
	if errs, _ := raw["errors"].([]any); len(errs) == 0 {
		t.Error("errors array should be non-empty for error responses")
	}
}
