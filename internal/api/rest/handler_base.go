package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/speakup-platform/speakup-backend/internal/domain/errors"
)

// maxBodySize caps event hook payloads.
const maxBodySize = 1 << 20

// ResponseEnvelope wraps every API response.
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

// ResponseMeta carries per-request metadata.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the wire shape of a failure.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// BaseHandler provides the shared encode/decode and tracing plumbing.
type BaseHandler struct {
	validator *validator.Validate
	tracer    trace.Tracer
}

// NewBaseHandler creates the shared handler base.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{
		validator: validator.New(),
		tracer:    otel.Tracer("api.rest"),
	}
}

// writeSuccess writes a 200 envelope.
func (h *BaseHandler) writeSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	h.writeEnvelope(w, r, http.StatusOK, ResponseEnvelope{
		Success: true,
		Data:    data,
	})
}

// writeError maps the application error taxonomy onto HTTP statuses.
func (h *BaseHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := &ErrorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}
	status := http.StatusInternalServerError

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Code = appErr.Code
		resp.Message = appErr.Message
		resp.Type = string(appErr.Type)
		status = appErr.StatusCode
	}
	if appErr != nil && appErr.Retryable {
		w.Header().Set("Retry-After", "5")
	}

	h.writeEnvelope(w, r, status, ResponseEnvelope{
		Success: false,
		Error:   resp,
	})
}

func (h *BaseHandler) writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env ResponseEnvelope) {
	env.Meta = ResponseMeta{
		RequestID: requestIDFrom(r.Context()),
		Timestamp: time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// decodeAndValidate reads a JSON body into dst and runs struct
// validation.
func (h *BaseHandler) decodeAndValidate(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodySize)
	defer io.Copy(io.Discard, body)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("INVALID_BODY", "request body is not valid JSON: "+err.Error())
	}
	if err := h.validator.Struct(dst); err != nil {
		return apperrors.NewValidationError("INVALID_FIELDS", err.Error())
	}
	return nil
}
