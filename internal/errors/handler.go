package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/embed"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/exporter"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/infrastructure"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/loader"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/registry"
	"github.com/youssefzad/FinnishStartupDashboard-sub002/internal/services"
)

// Common error types following RFC 7807
const (
	TypeValidation  = "/errors/validation"
	TypeNotFound    = "/errors/not-found"
	TypeForbidden   = "/errors/forbidden"
	TypeRateLimit   = "/errors/rate-limit"
	TypeInternal    = "/errors/internal"
	TypeServiceDown = "/errors/service-unavailable"
	TypeTimeout     = "/errors/timeout"
	TypeMethod      = "/errors/method-not-allowed"
)

// Domain-specific error types
const (
	TypeChartNotFound   = "/errors/chart/not-found"
	TypeDatasetNotFound = "/errors/dataset/not-found"
	TypeDataNotReady    = "/errors/dataset/not-ready"
	TypeLoadFailed      = "/errors/dataset/load-failed"
	TypeEmbedParams     = "/errors/embed/invalid-params"
	TypeExportFormat    = "/errors/export/unsupported-format"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger:       infrastructure.WithComponent(logger, "error_handler"),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	traceID := requestTraceID(r)
	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", traceID)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("type", problem.Type),
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var notFound *registry.NotFoundError
	if errors.As(err, &notFound) {
		return NewProblemDetails(
			http.StatusNotFound,
			TypeChartNotFound,
			"Chart Not Found",
			notFound.Error(),
			r.URL.Path,
		).WithExtension("error_code", "CHART_NOT_FOUND").
			WithExtension("details", map[string]interface{}{"valid_ids": notFound.ValidIDs})
	}

	var paramsErr *embed.ParamsError
	if errors.As(err, &paramsErr) {
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeEmbedParams,
			"Invalid Embed Parameters",
			"One or more embed parameters were rejected",
			r.URL.Path,
		).WithExtension("error_code", "VALIDATION_FAILED").
			WithExtension("errors", paramsErr.Fields)
	}

	switch {
	case errors.Is(err, services.ErrUnknownDataset):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeDatasetNotFound,
			"Dataset Not Found",
			err.Error(),
			r.URL.Path,
		).WithExtension("error_code", "DATASET_NOT_FOUND")

	case errors.Is(err, services.ErrNotReady):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeDataNotReady,
			"Data Not Ready",
			"The primary dataset has not been loaded yet",
			r.URL.Path,
		).WithExtension("error_code", "DATA_NOT_READY")

	case errors.Is(err, exporter.ErrUnsupportedFormat):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeExportFormat,
			"Unsupported Export Format",
			err.Error(),
			r.URL.Path,
		).WithExtension("error_code", "INVALID_PARAMETER").
			WithExtension("supported", []string{string(exporter.FormatCSV), string(exporter.FormatXLSX)})

	case errors.Is(err, loader.ErrExhausted):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeLoadFailed,
			"Dataset Load Failed",
			"Every source for a required dataset failed, the previous data is still served",
			r.URL.Path,
		).WithExtension("error_code", "LOAD_FAILED")
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "INVALID_PARAMETER":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "CHART_NOT_FOUND":
		problemType = TypeChartNotFound
	case "DATASET_NOT_FOUND":
		problemType = TypeDatasetNotFound
	case "FORBIDDEN":
		problemType = TypeForbidden
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "DATA_NOT_READY":
		problemType = TypeDataNotReady
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}

	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	traceID := requestTraceID(r)

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("trace_id", traceID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", traceID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	_ = render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", requestTraceID(r))

	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethod,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", requestTraceID(r))

	_ = render.Render(w, r, problem)
}

// requestTraceID prefers the trace id set by the request id middleware
func requestTraceID(r *http.Request) string {
	if id := infrastructure.GetTraceID(r.Context()); id != "" {
		return id
	}
	return middleware.GetReqID(r.Context())
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
