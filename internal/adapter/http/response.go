package http

import (
	"encoding/json"
	"net/http"

	apperror "github.com/finledger/ledger/pkg/error"
)

// Envelope wraps every JSON response
type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Code    string      `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, envelope Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope)
}

func writeSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeJSON(w, statusCode, Envelope{Status: true, Message: message, Data: data})
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, Envelope{Status: false, Message: message, Code: code})
}

// writeError maps a ledger error onto its status code and stable error code
func writeError(w http.ResponseWriter, err error) {
	appErr := apperror.MapError(err)
	writeErrorResponse(w, appErr.Status, appErr.Code, appErr.Message)
}
