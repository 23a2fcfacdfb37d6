package middleware

import (
	"encoding/json"
	"net/http"

	"pillscare/internal/api"
	"pillscare/internal/utils"
)

// WriteError writes err as a JSON error body. Internal detail never leaves
// the process; see utils.PublicMessage.
func WriteError(w http.ResponseWriter, err error) {
	code := utils.ErrorCode(err)
	status := utils.AppErrorToHTTPStatus(code)
	if code == "" {
		code = "INTERNAL_ERROR"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Success: false,
		Code:    code,
		Error:   utils.PublicMessage(err),
	})
}
