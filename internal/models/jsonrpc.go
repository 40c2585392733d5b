package models

import "encoding/json"

// JSONRPCRequest is one request line of the stdio transport (JSON-RPC 2.0).
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	// ID is echoed back verbatim; string or number.
	ID     interface{} `json:"id"`
	Method string      `json:"method"`
	// Params stays raw until the method is known.
	Params json.RawMessage `json:"params"`
}

// JSONRPCErrorData is the application payload of a JSON-RPC error: which file
// and method were involved and when the failure happened.
type JSONRPCErrorData struct {
	Filename  string `json:"filename,omitempty"`
	Operation string `json:"operation,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Details   string `json:"details,omitempty"`
}

// JSONRPCError is the error member of a response.
type JSONRPCError struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    *JSONRPCErrorData `json:"data,omitempty"`
}

// JSONRPCResponse is one response line. Exactly one of Result and Error is
// set.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}
