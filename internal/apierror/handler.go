package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/walletgate/walletgate/internal/observability"
	"github.com/walletgate/walletgate/internal/token"
)

// maskedMessage is returned for non-operational errors outside
// development mode.
const maskedMessage = "internal server error"

// ResponseState is implemented by response writers that can report
// whether a response has already been written down the chain.
type ResponseState interface {
	Written() bool
}

// Handler is the single exit point for request failures. It classifies
// errors, decides client-visible detail, and renders the uniform
// envelope.
type Handler struct {
	logger      observability.Logger
	development bool
}

// HandlerOption is a functional option for the handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger.
func WithHandlerLogger(logger observability.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a new error handler. In development mode the
// envelope additionally carries details and a stack trace, and
// non-operational messages pass through unmasked.
func NewHandler(development bool, opts ...HandlerOption) *Handler {
	h := &Handler{
		logger:      observability.NopLogger(),
		development: development,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// envelope is the wire shape for every failure response.
type envelope struct {
	Success bool       `json:"success"`
	Error   *errorBody `json:"error"`
}

// errorBody is the error portion of the envelope.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
	Details   any    `json:"details,omitempty"`
	Stack     string `json:"stack,omitempty"`
}

// WriteError renders err as the uniform error envelope. If a response
// has already been written down the chain, the error is logged and
// nothing further is sent, so every request gets exactly one response.
func (h *Handler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := observability.RequestIDFromContext(r.Context())

	if state, ok := w.(ResponseState); ok && state.Written() {
		h.logger.Error("error after response already sent",
			observability.String("path", r.URL.Path),
			observability.String("request_id", requestID),
			observability.Error(err),
		)
		return
	}

	apiErr := h.classify(err)

	if apiErr.Operational {
		h.logger.Warn("request failed",
			observability.String("path", r.URL.Path),
			observability.String("code", apiErr.Code),
			observability.Int("status", apiErr.Status),
			observability.String("request_id", requestID),
			observability.Error(err),
		)
	} else {
		// Unexpected failure: full error server-side, masked
		// client-side outside development mode.
		h.logger.Error("unexpected error",
			observability.String("path", r.URL.Path),
			observability.String("request_id", requestID),
			observability.Error(err),
		)
	}

	body := &errorBody{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		RequestID: requestID,
	}

	if !apiErr.Operational && !h.development {
		body.Message = maskedMessage
	}

	if h.development {
		body.Details = apiErr.Details
		body.Stack = string(debug.Stack())
	} else if apiErr.Operational {
		body.Details = apiErr.Details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: body})
}

// classify maps err to an *Error, fixing status codes for well-known
// upstream failure signatures that are not already classified.
func (h *Handler) classify(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	// Credential verification failures collapse to one outcome; no
	// hint about which check failed.
	if token.IsVerificationError(err) {
		return Unauthorized(CodeInvalidToken, "invalid or expired token")
	}
	if errors.Is(err, token.ErrNoSecret) {
		return ServerConfig("authentication is not configured")
	}

	return Internal(err.Error())
}
