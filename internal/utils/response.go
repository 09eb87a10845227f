package utils

import (
	"encoding/json"
	"net/http"

	"github.com/x1syne/ai-study-agent-sub001/internal/models"
)

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// Success writes {success:true, data}.
func Success(w http.ResponseWriter, statusCode int, data interface{}) {
	JSON(w, statusCode, models.APIResponse{Success: true, Data: data})
}

// Fail writes {success:false, error, code}.
func Fail(w http.ResponseWriter, statusCode int, code, message string) {
	JSON(w, statusCode, models.APIResponse{Success: false, Error: message, Code: code})
}
