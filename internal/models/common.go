package models

// ErrorDetail is the structured error shape shared by the HTTP and JSON-RPC
// surfaces. Code uses the JSON-RPC numbering plus the application-specific
// codes defined in internal/errors.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	// Data carries additional context, typically the file and the boundary
	// operation involved.
	Data interface{} `json:"data,omitempty"`
}

// ErrorResponse wraps an ErrorDetail for HTTP error bodies.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
