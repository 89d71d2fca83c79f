package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/mmk-sessiongate/internal/errors"
)

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeJSON(w, r, dst, true)
}

// DecodeJSONLenient is DecodeJSON without the unknown-field check, for bodies
// whose producers may send fields this service does not read.
func DecodeJSONLenient(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeJSON(w, r, dst, false)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, strict bool) bool {
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(dst); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// writeServiceError maps a service AppError onto a status and error code. Only
// the AppError's own message reaches the client; internal failures get a fixed
// message and their cause is logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	p := ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal"}
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		p.Code, p.ErrCode = http.StatusBadRequest, "validation"
	case apperrors.ErrCodeUnauthorized:
		p.Code, p.ErrCode = http.StatusUnauthorized, "authentication_required"
	case apperrors.ErrCodeForbidden:
		p.Code, p.ErrCode = http.StatusForbidden, "insufficient_permissions"
	case apperrors.ErrCodeNotFound:
		p.Code, p.ErrCode = http.StatusNotFound, "not_found"
	case apperrors.ErrCodeConflict:
		p.Code, p.ErrCode = http.StatusConflict, "conflict"
	case apperrors.ErrCodeTimeout:
		p.Code, p.ErrCode = http.StatusGatewayTimeout, "timeout"
	case apperrors.ErrCodeUnavailable:
		p.Code, p.ErrCode = http.StatusServiceUnavailable, "unavailable"
	}

	var appErr *apperrors.AppError
	if p.Code >= http.StatusInternalServerError || !errors.As(err, &appErr) {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	switch {
	case p.ErrCode == "internal":
		p.Err = errors.New("internal server error")
	case appErr != nil && appErr.Message != "":
		p.Err = errors.New(appErr.Message)
	default:
		p.Err = errors.New(http.StatusText(p.Code))
	}
	WriteError(w, p)
}
