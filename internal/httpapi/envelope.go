package httpapi

import (
	"encoding/json"
	"net/http"

	"scrapegate/internal/classify"
)

// envelope is the response shape every route wraps its payload in.
type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

const maxErrorMessageLen = 300

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	msg := classify.Truncate(message, maxErrorMessageLen)
	writeJSON(w, status, envelope{Success: false, Message: msg, Errors: []string{msg}})
}
