package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

const _maxBodyBytes = 1 << 16

type ErrorResponse struct {
	Message string `json:"message,omitempty"`
}

func ReplyWithError(w http.ResponseWriter, statusCode int, errMsg string) {
	ReplyJSONResponse(w, statusCode, &ErrorResponse{Message: errMsg})
}

func ReplyJSONResponse(w http.ResponseWriter, statusCode int, output any) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(output)
}

func DecodeJSONBody(r *http.Request, placeholder any) error {
	reqBody, err := io.ReadAll(io.LimitReader(r.Body, _maxBodyBytes))
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}

	if err := json.Unmarshal(reqBody, placeholder); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}

	return nil
}

// GetSpanFromContext never returns nil; without an active span it hands
// back a no-op one.
func GetSpanFromContext(r *http.Request) trace.Span {
	return trace.SpanFromContext(r.Context())
}
