package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"repo-patch-server/internal/errors"
	"repo-patch-server/internal/models"
	"repo-patch-server/internal/service"
)

// maxStdioLineBytes bounds one JSON-RPC request line.
const maxStdioLineBytes = 64 << 20

// StdioHandler handles JSON-RPC communication over standard input/output,
// one request per line.
type StdioHandler struct {
	service service.PatchService
	logger  *zap.Logger
}

// NewStdioHandler creates a new StdioHandler.
func NewStdioHandler(svc service.PatchService, logger *zap.Logger) *StdioHandler {
	return &StdioHandler{service: svc, logger: logger}
}

func (h *StdioHandler) writeJSONRPCResponse(writer io.Writer, response models.JSONRPCResponse) {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		h.logger.Error("failed to marshal JSON-RPC response",
			zap.Any("id", response.ID), zap.Error(err))
		fallback := models.JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      response.ID,
			Error:   errors.ToJSONRPCError(errors.NewInternalError("Server error: failed to marshal response.")),
		}
		responseBytes, _ = json.Marshal(fallback)
	}

	if _, err := fmt.Fprintln(writer, string(responseBytes)); err != nil {
		h.logger.Error("failed to write JSON-RPC response", zap.Error(err))
	}
}

// Start processes JSON-RPC requests from input line by line until EOF or
// context cancellation, writing one response line per request.
func (h *StdioHandler) Start(ctx context.Context, input io.Reader, output io.Writer) error {
	h.logger.Info("stdio JSON-RPC handler starting")
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStdioLineBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineBytes := scanner.Bytes()
		if len(bytes.TrimSpace(lineBytes)) == 0 {
			continue
		}

		var jsonReq models.JSONRPCRequest
		var jsonResp models.JSONRPCResponse

		if err := json.Unmarshal(lineBytes, &jsonReq); err != nil {
			jsonResp = models.JSONRPCResponse{
				JSONRPC: "2.0",
				ID:      nil,
				Error:   errors.ToJSONRPCError(errors.NewParseError(fmt.Sprintf("Invalid JSON received: %v", err))),
			}
			h.writeJSONRPCResponse(output, jsonResp)
			continue
		}

		jsonResp.ID = jsonReq.ID
		jsonResp.JSONRPC = "2.0"

		if jsonReq.JSONRPC != "2.0" {
			jsonResp.Error = errors.ToJSONRPCError(errors.NewInvalidRequestError("Invalid JSON-RPC version. Must be '2.0'."))
			h.writeJSONRPCResponse(output, jsonResp)
			continue
		}
		if jsonReq.Method == "" {
			jsonResp.Error = errors.ToJSONRPCError(errors.NewInvalidRequestError("Method not specified."))
			h.writeJSONRPCResponse(output, jsonResp)
			continue
		}

		var serviceRespData interface{}
		var serviceErr *models.ErrorDetail

		switch jsonReq.Method {
		case "apply":
			var params models.ApplyRequest
			if err := json.Unmarshal(jsonReq.Params, &params); err != nil {
				serviceErr = errors.NewInvalidParamsError(fmt.Sprintf("Invalid params for apply: %v", err), nil)
			} else {
				serviceRespData, serviceErr = h.service.Apply(ctx, params)
			}
		case "chat":
			var params models.ChatRequest
			if err := json.Unmarshal(jsonReq.Params, &params); err != nil {
				serviceErr = errors.NewInvalidParamsError(fmt.Sprintf("Invalid params for chat: %v", err), nil)
			} else {
				serviceRespData, serviceErr = h.service.Chat(ctx, params)
			}
		default:
			serviceErr = errors.NewMethodNotFoundError(jsonReq.Method)
		}

		if serviceErr != nil {
			rpcError := errors.ToJSONRPCError(serviceErr)
			if rpcError.Data == nil {
				rpcError.Data = &models.JSONRPCErrorData{}
			}
			rpcError.Data.Operation = jsonReq.Method
			if rpcError.Data.Timestamp == "" {
				rpcError.Data.Timestamp = time.Now().UTC().Format(time.RFC3339)
			}
			jsonResp.Error = rpcError
		} else {
			jsonResp.Result = serviceRespData
		}
		h.writeJSONRPCResponse(output, jsonResp)
	}

	if err := scanner.Err(); err != nil {
		h.logger.Error("error reading from stdio", zap.Error(err))
		return err
	}

	h.logger.Info("stdio JSON-RPC handler finished")
	return nil
}
