package errors

import (
	"fmt"
	"net/http"
	"time"

	"repo-patch-server/internal/models"
)

// JSON-RPC Error Codes (as per JSON-RPC 2.0 Specification)
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Application Specific Error Codes
const (
	// CodeStoreError is a generic code for content store failures
	// (fetch/push/delete/list against the remote or local backing).
	CodeStoreError = -32001

	// CodeRevisionConflict indicates an optimistic write was rejected
	// because the revision token was stale.
	CodeRevisionConflict = -32002

	// CodeFileTooLarge indicates file content exceeds the configured limit.
	CodeFileTooLarge = -32003

	// CodeProviderError indicates the LLM provider call or the extraction
	// of its JSON reply failed.
	CodeProviderError = -32004
)

// NewErrorDetail creates a new ErrorDetail.
func NewErrorDetail(code int, message string, data interface{}) *models.ErrorDetail {
	return &models.ErrorDetail{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewParseError creates an ErrorDetail for JSON parsing errors.
func NewParseError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeParseError, "Parse error", map[string]string{"details": details})
}

// NewInvalidRequestError creates an ErrorDetail for invalid request objects.
func NewInvalidRequestError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeInvalidRequest, "Invalid Request", map[string]string{"details": details})
}

// NewMethodNotFoundError creates an ErrorDetail when a JSON-RPC method is not found.
func NewMethodNotFoundError(methodName string) *models.ErrorDetail {
	return NewErrorDetail(CodeMethodNotFound, "Method not found", map[string]string{"method": methodName})
}

// NewInvalidParamsError creates an ErrorDetail for invalid method parameters.
func NewInvalidParamsError(summaryMessage string, paramIssues map[string]interface{}) *models.ErrorDetail {
	finalMessage := "Invalid params"
	if summaryMessage != "" {
		finalMessage = summaryMessage
	}
	var dataPayload interface{}
	if paramIssues == nil {
		dataPayload = map[string]interface{}{"details": finalMessage}
	} else {
		dataPayload = map[string]interface{}{
			"details":      summaryMessage,
			"param_issues": paramIssues,
		}
	}
	return NewErrorDetail(CodeInvalidParams, finalMessage, dataPayload)
}

// NewInternalError creates an ErrorDetail for unexpected server errors.
func NewInternalError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeInternalError, "Internal error", map[string]string{"details": details})
}

// NewStoreError creates a content store ErrorDetail. The operation names the
// boundary call that failed ("fetch", "push", "delete", "list").
func NewStoreError(path, operation, details string) *models.ErrorDetail {
	return NewErrorDetail(CodeStoreError, "Content store error", map[string]string{
		"file":      path,
		"operation": operation,
		"details":   details,
	})
}

// NewRevisionConflictError creates an ErrorDetail for a rejected optimistic
// write: the revision token read at fetch time is no longer current.
func NewRevisionConflictError(path, revision string) *models.ErrorDetail {
	return NewErrorDetail(CodeRevisionConflict,
		fmt.Sprintf("Revision conflict on '%s'", path),
		map[string]interface{}{
			"file":     path,
			"revision": revision,
			"type":     "revision_conflict",
		})
}

// NewFileTooLargeError creates an ErrorDetail for files exceeding size limits.
func NewFileTooLargeError(path string, size int64, maxSizeMB int) *models.ErrorDetail {
	return NewErrorDetail(CodeFileTooLarge,
		fmt.Sprintf("File '%s' exceeds maximum allowed size of %d MB", path, maxSizeMB),
		map[string]interface{}{
			"file":        path,
			"size":        size,
			"max_size_mb": maxSizeMB,
			"type":        "file_too_large",
		})
}

// NewProviderError creates an ErrorDetail for LLM provider failures.
func NewProviderError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeProviderError, "Provider error", map[string]string{"details": details})
}

// ToErrorResponse converts an ErrorDetail to an HTTP models.ErrorResponse.
func ToErrorResponse(errDetail *models.ErrorDetail) *models.ErrorResponse {
	if errDetail == nil {
		return nil
	}
	return &models.ErrorResponse{Error: *errDetail}
}

// ToJSONRPCError converts an ErrorDetail to a models.JSONRPCError, mapping
// the Data field to models.JSONRPCErrorData where its shape allows.
func ToJSONRPCError(errDetail *models.ErrorDetail) *models.JSONRPCError {
	if errDetail == nil {
		return nil
	}
	rpcErr := &models.JSONRPCError{
		Code:    errDetail.Code,
		Message: errDetail.Message,
	}
	if errDetail.Data == nil {
		return rpcErr
	}
	switch data := errDetail.Data.(type) {
	case map[string]string:
		rpcErr.Data = &models.JSONRPCErrorData{
			Filename:  data["file"],
			Operation: data["operation"],
			Details:   data["details"],
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
	case map[string]interface{}:
		var file, operation, details string
		if v, ok := data["file"].(string); ok {
			file = v
		}
		if v, ok := data["operation"].(string); ok {
			operation = v
		}
		if pi, ok := data["param_issues"]; ok {
			details = fmt.Sprintf("Parameter issues: %v. Summary: %v", pi, data["details"])
		} else if v, ok := data["details"].(string); ok {
			details = v
		}
		rpcErr.Data = &models.JSONRPCErrorData{
			Filename:  file,
			Operation: operation,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
	default:
		rpcErr.Data = &models.JSONRPCErrorData{
			Details:   fmt.Sprintf("%v", errDetail.Data),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
	}
	return rpcErr
}

// MapErrorToHTTPStatus maps an internal error code to an HTTP status code.
func MapErrorToHTTPStatus(errorCode int, errDetail *models.ErrorDetail) int {
	switch errorCode {
	case CodeParseError, CodeInvalidRequest, CodeInvalidParams:
		return http.StatusBadRequest
	case CodeMethodNotFound:
		return http.StatusNotFound
	case CodeInternalError:
		return http.StatusInternalServerError
	case CodeStoreError:
		if errDetail != nil {
			if data, ok := errDetail.Data.(map[string]interface{}); ok {
				if t, ok := data["type"].(string); ok && t == "file_not_found" {
					return http.StatusNotFound
				}
			}
		}
		return http.StatusBadGateway
	case CodeRevisionConflict:
		return http.StatusConflict
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeProviderError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
