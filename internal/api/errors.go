// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the JSON error envelope used on every non-2xx response.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes the error envelope with the given status code
func respondError(w http.ResponseWriter, code int, errCode, detail string) {
	writeJSON(w, code, errorResponse{Error: errCode, Detail: detail})
}

func writeBadRequest(w http.ResponseWriter, detail string) {
	respondError(w, http.StatusBadRequest, "bad_request", detail)
}

func writeUnauthorized(w http.ResponseWriter) {
	respondError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid API token")
}

func writeNotFound(w http.ResponseWriter, detail string) {
	respondError(w, http.StatusNotFound, "not_found", detail)
}

func writeInternalError(w http.ResponseWriter) {
	respondError(w, http.StatusInternalServerError, "internal_error", "request failed")
}
