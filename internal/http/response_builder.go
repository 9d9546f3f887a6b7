package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/middleware/trace"
)

// JSONResponseBuilder provides a fluent API for JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to w.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// ErrorResponse creates an error response with the given message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

// MethodNotAllowedError creates a 405 response with the Allow header set.
func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyName,
	core.ErrNameTooLong,
	core.ErrInvalidMode,
	core.ErrInvalidCategory,
	core.ErrInvalidStatus,
	core.ErrInvalidInstallments,
	core.ErrFirstBeforePurchase,
	core.ErrMissingDate,
	core.ErrDateOutOfRange,
}

// StatusFor maps a ledger error to its HTTP status and the message shown to
// the client. Internal failures never leak their detail.
func StatusFor(err error) (int, ErrorBody) {
	var seq *core.OutOfSequenceError
	switch {
	case errors.Is(err, core.ErrTransactionNotFound):
		return http.StatusNotFound, ErrorBody{Error: core.ErrTransactionNotFound.Error()}
	case errors.As(err, &seq):
		return http.StatusUnprocessableEntity, ErrorBody{Error: core.ErrOutOfSequencePaymentConfirmation.Error(), Reason: seq.Reason}
	case errors.Is(err, core.ErrConfirmationConflict), errors.Is(err, core.ErrTransactionHasConfirmations):
		return http.StatusConflict, ErrorBody{Error: err.Error()}
	case errors.Is(err, core.ErrInvalidPaymentDate), errors.Is(err, errMalformedRequest):
		return http.StatusBadRequest, ErrorBody{Error: err.Error()}
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity, ErrorBody{Error: err.Error()}
		}
	}
	return http.StatusInternalServerError, ErrorBody{Error: "internal error"}
}

// writeError logs err and writes its mapped response. op names the failing
// operation in the log.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, body := StatusFor(err)
	body.RequestID = trace.GetRequestID(r.Context())

	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op, log.FieldStatusCode, status, log.FieldError, err)
	}
	NewJSONResponse().Status(status).Body(body).Write(w)
}
