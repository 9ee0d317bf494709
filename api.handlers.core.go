package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds app maintenance mode infos.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

// APIHandler defines the API handler.
type APIHandler struct {
	logger        *zap.Logger
	config        *Config
	stats         *Statistics
	mode          *Maintenance
	clock         Clocker
	idsHandler    UIDHandler
	authorService AuthorServiceProvider
	bookService   BookServiceProvider
}

// NewAPIHandler provides a new instance of APIHandler.
func NewAPIHandler(
	logger *zap.Logger,
	config *Config,
	stats *Statistics,
	clock Clocker,
	idsHandler UIDHandler,
	as AuthorServiceProvider,
	bs BookServiceProvider,
) *APIHandler {
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	return &APIHandler{
		logger:        logger,
		config:        config,
		stats:         stats,
		mode:          &Maintenance{},
		clock:         clock,
		idsHandler:    idsHandler,
		authorService: as,
		bookService:   bs,
	}
}

// Index provides same details like `Status` handler by redirecting the request.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	http.Redirect(w, r, "/status", http.StatusSeeOther)
}

// Status provides basics details about the application to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if err := json.NewEncoder(w).Encode(
		map[string]interface{}{
			"requestid": requestID,
			"status":    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
			"message":   "Hello. Catalog api is available. Enjoy :)",
		},
	); err != nil {
		api.logger.Error("failed to send status response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// NotFound replies to requests targeting a route which is not defined.
func (api *APIHandler) NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := GetValueFromContext(r.Context(), ContextRequestID)
		if requestID == "" {
			requestID = api.idsHandler.Generate(RequestIDPrefix)
		}
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.WriteHeader(http.StatusNotFound)
		if err := json.NewEncoder(w).Encode(
			map[string]interface{}{
				"requestid": requestID,
				"message":   "route does not exist",
				"path":      r.Method + " " + r.URL.Path,
			},
		); err != nil {
			api.logger.Error("failed to send not found response", zap.String("request.id", requestID), zap.Error(err))
		}
	})
}

// sendError classifies err and writes the matching error response. Internal
// failures are logged since their details never reach the client.
func (api *APIHandler) sendError(w http.ResponseWriter, r *http.Request, message string, err error) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	status, details := ClassifyError(err)
	if status == http.StatusInternalServerError {
		api.logger.Error(message, zap.String("request.id", requestID), zap.Error(err))
	} else {
		api.logger.Info(message, zap.String("request.id", requestID), zap.String("error.code", string(details.Code)), zap.Error(err))
	}
	errResp := NewAPIError(requestID, status, message, details)
	if werr := WriteErrorResponse(r.Context(), w, errResp); werr != nil {
		api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(werr))
	}
}

// sendBadRequest replies with 400 for requests rejected before reaching the services.
func (api *APIHandler) sendBadRequest(w http.ResponseWriter, r *http.Request, message string, code ErrorCode, err error) {
	requestID := GetValueFromContext(r.Context(), ContextRequestID)
	api.logger.Info(message, zap.String("request.id", requestID), zap.Error(err))
	details := ErrorDetails{Code: code}
	if code == CodeInvalidInput {
		details.Fields = []FieldError{{Field: "body", Message: err.Error()}}
	}
	errResp := NewAPIError(requestID, http.StatusBadRequest, message, details)
	if werr := WriteErrorResponse(r.Context(), w, errResp); werr != nil {
		api.logger.Error("failed to send error response", zap.String("request.id", requestID), zap.Error(werr))
	}
}

// send writes a success response.
func (api *APIHandler) send(w http.ResponseWriter, r *http.Request, resp *APIResponse) {
	if err := WriteResponse(r.Context(), w, resp); err != nil {
		api.logger.Error("failed to send response", zap.String("request.id", resp.RequestID), zap.Error(err))
	}
}

// extendWriteDeadline gives listing calls more time to stream their full scan result.
//
//nolint:bodyclose
func (api *APIHandler) extendWriteDeadline(w http.ResponseWriter, r *http.Request) {
	if api.config == nil || api.config.Server.LongRequestWriteTimeout <= 0 {
		return
	}
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(api.config.Server.LongRequestWriteTimeout)); err != nil {
		api.logger.Debug("http: failed to update the write deadline",
			zap.String("request.id", GetValueFromContext(r.Context(), ContextRequestID)),
			zap.Error(err),
		)
	}
}
