// Package transport exposes the patch service over HTTP and over a
// line-oriented JSON-RPC stdio protocol.
package transport

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"repo-patch-server/internal/errors"
	"repo-patch-server/internal/models"
	"repo-patch-server/internal/service"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 120 * time.Second
	// Maximum accepted request body size.
	defaultMaxRequestSizeMB = 50
)

// HTTPHandler handles HTTP requests for the patch service.
type HTTPHandler struct {
	service      service.PatchService
	logger       *zap.Logger
	readTimeout  time.Duration
	writeTimeout time.Duration
	maxReqSize   int64
	Server       *http.Server
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc service.PatchService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		service:      svc,
		logger:       logger,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		maxReqSize:   int64(defaultMaxRequestSizeMB) * 1024 * 1024,
		Server:       &http.Server{},
	}
}

// RegisterRoutes sets up the HTTP routes for the handler.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/apply", h.handleApply)
	mux.HandleFunc("/chat", h.handleChat)
	mux.HandleFunc("/health", h.handleHealthCheck)
}

func (h *HTTPHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already out, nothing to do but log.
			h.logger.Error("failed to encode JSON response", zap.Error(err))
		}
	}
}

func (h *HTTPHandler) writeJSONErrorResponse(w http.ResponseWriter, httpStatusCode int, errorDetail *models.ErrorDetail) {
	if errorDetail == nil {
		errorDetail = errors.NewInternalError("An unexpected error occurred and error details were lost.")
		httpStatusCode = http.StatusInternalServerError
	}
	h.writeJSONResponse(w, httpStatusCode, models.ErrorResponse{Error: *errorDetail})
}

// decodeRequest guards the method, Content-Type and body size, then decodes
// the JSON body strictly into dst. It writes the error response itself and
// reports whether the handler should proceed.
func (h *HTTPHandler) decodeRequest(w http.ResponseWriter, r *http.Request, route string, dst interface{}) bool {
	if r.Method != http.MethodPost {
		errDetail := errors.NewInvalidRequestError(fmt.Sprintf("Method %s not allowed for %s. Use POST.", r.Method, route))
		h.writeJSONErrorResponse(w, http.StatusMethodNotAllowed, errDetail)
		return false
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		errDetail := errors.NewInvalidRequestError("Invalid Content-Type header. Must be 'application/json' or 'application/json; charset=utf-8'.")
		h.writeJSONErrorResponse(w, http.StatusUnsupportedMediaType, errDetail)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxReqSize)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var jsonSyntaxError *json.SyntaxError
		var jsonUnmarshalTypeError *json.UnmarshalTypeError
		switch {
		case err.Error() == "http: request body too large":
			errDetail := errors.NewInvalidRequestError(fmt.Sprintf("Request body exceeds maximum size of %dMB.", defaultMaxRequestSizeMB))
			h.writeJSONErrorResponse(w, http.StatusRequestEntityTooLarge, errDetail)
		case stdErrors.As(err, &jsonSyntaxError):
			msg := fmt.Sprintf("Invalid JSON syntax at offset %d: %s", jsonSyntaxError.Offset, jsonSyntaxError.Error())
			h.writeJSONErrorResponse(w, http.StatusBadRequest, errors.NewParseError(msg))
		case stdErrors.As(err, &jsonUnmarshalTypeError):
			msg := fmt.Sprintf("Invalid JSON type for field '%s'. Expected '%s' but got '%s' at offset %d.",
				jsonUnmarshalTypeError.Field, jsonUnmarshalTypeError.Type, jsonUnmarshalTypeError.Value, jsonUnmarshalTypeError.Offset)
			h.writeJSONErrorResponse(w, http.StatusBadRequest, errors.NewParseError(msg))
		default:
			h.writeJSONErrorResponse(w, http.StatusBadRequest, errors.NewParseError(fmt.Sprintf("Failed to decode request body: %v", err)))
		}
		return false
	}
	return true
}

func (h *HTTPHandler) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) handleApply(w http.ResponseWriter, r *http.Request) {
	var req models.ApplyRequest
	if !h.decodeRequest(w, r, "/apply", &req) {
		return
	}

	resp, serviceErr := h.service.Apply(r.Context(), req)
	if serviceErr != nil {
		httpStatus := errors.MapErrorToHTTPStatus(serviceErr.Code, serviceErr)
		h.writeJSONErrorResponse(w, httpStatus, serviceErr)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

func (h *HTTPHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !h.decodeRequest(w, r, "/chat", &req) {
		return
	}

	resp, serviceErr := h.service.Chat(r.Context(), req)
	if serviceErr != nil {
		httpStatus := errors.MapErrorToHTTPStatus(serviceErr.Code, serviceErr)
		h.writeJSONErrorResponse(w, httpStatus, serviceErr)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, resp)
}

// StartServer initializes and starts the HTTP server. Timeouts given as
// seconds override the handler defaults when positive.
func (h *HTTPHandler) StartServer(port int, readTimeoutSec int, writeTimeoutSec int) error {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	actualReadTimeout := h.readTimeout
	if readTimeoutSec > 0 {
		actualReadTimeout = time.Duration(readTimeoutSec) * time.Second
	}
	actualWriteTimeout := h.writeTimeout
	if writeTimeoutSec > 0 {
		actualWriteTimeout = time.Duration(writeTimeoutSec) * time.Second
	}

	h.Server.Addr = fmt.Sprintf(":%d", port)
	h.Server.Handler = mux
	h.Server.ReadTimeout = actualReadTimeout
	h.Server.WriteTimeout = actualWriteTimeout

	h.logger.Info("HTTP server starting",
		zap.Int("port", port),
		zap.Duration("read_timeout", actualReadTimeout),
		zap.Duration("write_timeout", actualWriteTimeout))

	err := h.Server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		h.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
	h.logger.Info("HTTP server shut down", zap.Int("port", port))
	return nil
}
