package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/authflow"
)

const (
	maxBodyBytes   = 1 << 20
	genericFailure = "Something went wrong, try again later"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

// writeError maps err to a status code. Messages of internal failures are
// logged, never returned.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *authflow.Error
	if !errors.As(err, &e) {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeMsg(w, http.StatusInternalServerError, genericFailure)
		return
	}

	status := http.StatusInternalServerError
	switch e.Kind {
	case authflow.KindBadRequest:
		status = http.StatusBadRequest
	case authflow.KindUnauthenticated:
		status = http.StatusUnauthorized
	case authflow.KindConflict:
		status = http.StatusConflict
	case authflow.KindForbidden:
		status = http.StatusForbidden
	case authflow.KindNotFound:
		status = http.StatusNotFound
	}
	writeMsg(w, status, e.Message)
}

// decode reads a JSON body into dst. An empty body leaves dst zeroed so
// the engine reports the missing fields.
func decode(r *http.Request, w http.ResponseWriter, dst any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
