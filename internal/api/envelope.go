package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Result   any          `json:"result"`
	Success  bool         `json:"success"`
	Errors   []APIError   `json:"errors"`
	Messages []APIMessage `json:"messages"`
}

// APIMessage is an informational message attached to a response.
type APIMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError describes a single failure.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse wraps result in a successful envelope.
func SuccessResponse(result any) Response {
	return Response{
		Result:   result,
		Success:  true,
		Errors:   []APIError{},
		Messages: []APIMessage{},
	}
}

// ErrorResponse builds a failed envelope with a single error.
func ErrorResponse(code int, message string) Response {
	return Response{
		Success: false,
		Errors: []APIError{
			{Code: code, Message: message},
		},
		Messages: []APIMessage{},
	}
}

// WriteJSON serialises resp as JSON and writes it to w with the given HTTP status code.
func WriteJSON(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
