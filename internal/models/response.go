package models

// APIResponse is the envelope every course endpoint replies with.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	return e.Message
}

// Fail converts an ErrorResponse into the public envelope.
func (e *ErrorResponse) Fail() APIResponse {
	return APIResponse{Success: false, Error: e.Message, Code: e.Code}
}

type InvalidateCacheResponse struct {
	Invalidated []string `json:"invalidated"`
}
