package appMiddleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
)

// GenericFailureMessage is the only text a caller sees for an unexpected
// server-side failure.
const GenericFailureMessage = "An error occurred while processing your request. Please try again."

// Recover turns a panic in a downstream handler into a 500 with the generic
// JSON error body and logs the stack.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				reqID := middleware.GetReqID(r.Context())
				logger.ErrorContext(r.Context(), "Recovered from panic",
					slog.Any("panic", rec),
					slog.String("req_id", reqID),
					slog.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success":    false,
					"error":      GenericFailureMessage,
					"request_id": reqID,
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
