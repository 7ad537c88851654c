package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/kamalcharan/contractnest-combined-sub008/internal/domain/schedule"
	"github.com/kamalcharan/contractnest-combined-sub008/internal/infrastructure/monitoring/logging"
	"github.com/kamalcharan/contractnest-combined-sub008/pkg/errors"
)

// maxBodyBytes bounds request bodies when the server does not set its own limit.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps an error to its status and a structured body. Errors
// without an application code are masked as internal errors.
func writeAppError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) {
		appErr = errors.New(errors.ErrCodeInternal, errors.DefaultMessageForCode(errors.ErrCodeInternal)).WithCause(err)
	}
	status := errors.HTTPStatusForCode(appErr.Code)
	log := logging.FromContext(r.Context(), logger)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", logging.String("code", appErr.Code.String()), logging.Err(err))
	} else {
		log.Debug("request rejected", logging.String("code", appErr.Code.String()), logging.Err(err))
	}

	resp := ErrorResponse{
		Code:      appErr.Code.String(),
		Message:   appErr.Message,
		Detail:    appErr.Detail,
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		resp.Message = errors.DefaultMessageForCode(appErr.Code)
		resp.Detail = ""
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a single JSON document from the request body.
func decodeJSON(r *http.Request, dest interface{}) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return errors.InvalidParam("invalid request body").WithDetail(err.Error())
	}
	return nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (schedule.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return schedule.Date{}, nil
	}
	d, err := schedule.ParseDate(v)
	if err != nil {
		return schedule.Date{}, errors.InvalidParam(name + " must be a YYYY-MM-DD date").WithDetail(v)
	}
	return d, nil
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.InvalidParam(name + " must be a non-negative integer").WithDetail(v)
	}
	return n, nil
}
