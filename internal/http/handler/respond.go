package handler

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// envelope is the {success, data} shape of the sync endpoints.
type envelope struct {
	Success           bool                `json:"success"`
	Data              any                 `json:"data,omitempty"`
	Error             string              `json:"error,omitempty"`
	Errors            []map[string]string `json:"errors,omitempty"`
	RetryAfterSeconds int                 `json:"retryAfterSeconds,omitempty"`
}
