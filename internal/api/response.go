package api

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope of every reply.
type Response struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Body    any    `json:"body,omitempty"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeOK(w http.ResponseWriter, message string, body any) {
	WriteJSON(w, http.StatusOK, Response{Message: message, Body: body})
}

func writeBadRequest(w http.ResponseWriter, message string, err error) {
	resp := Response{Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	WriteJSON(w, http.StatusBadRequest, resp)
}

func writeInternal(w http.ResponseWriter, message string, err error) {
	resp := Response{Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	WriteJSON(w, http.StatusInternalServerError, resp)
}
