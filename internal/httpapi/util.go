package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
)

// JSONResponse wraps successful payloads.
type JSONResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// JSONError is the body of every error response.
type JSONError struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(JSONResponse{Success: true, Data: payload}); err != nil {
		s.log.Error("writing JSON response", "err", err)
	}
}

func (s *server) writeJSONError(w http.ResponseWriter, status int, message string, fields map[string]string) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "status", status, "message", message)
	} else {
		s.log.Debug("request rejected", "status", status, "message", message)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(JSONError{Message: message, Fields: fields}); err != nil {
		s.log.Error("writing JSON error response", "err", err)
	}
}

// requestError is a problem with the request itself, reported as-is.
type requestError struct {
	Status  int
	Message string
}

func (e *requestError) Error() string { return e.Message }

// decodeJSON reads a JSON request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &requestError{Status: http.StatusBadRequest, Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", &requestError{Status: http.StatusUnauthorized, Message: "authorization header missing"}
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", &requestError{Status: http.StatusUnauthorized, Message: "invalid authorization header format"}
	}
	return parts[1], nil
}
