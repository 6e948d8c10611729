package server

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type apiError struct {
	status      int
	code        string
	description string
	cause       error
}

func (e *apiError) Error() string {
	if e.cause != nil {
		return e.code + ": " + e.cause.Error()
	}
	return e.code + ": " + e.description
}

func (e *apiError) Unwrap() error { return e.cause }

func badRequest(desc string) *apiError {
	return &apiError{status: http.StatusBadRequest, code: "bad_request", description: desc}
}

func unprocessable(desc string) *apiError {
	return &apiError{status: http.StatusUnprocessableEntity, code: "unprocessable_entity", description: desc}
}

// internal hides cause from the client.
func internal(cause error) *apiError {
	return &apiError{status: http.StatusInternalServerError, code: "internal_error", cause: cause}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var ae *apiError
	if !errors.As(err, &ae) {
		ae = internal(err)
	}
	writeJSON(w, ae.status, ErrorResponse{Error: ae.code, ErrorDescription: ae.description})
}
