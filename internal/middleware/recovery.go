package middleware

import (
	"errors"
	"log"
	"net/http"
	"runtime/debug"

	"ppcp-backend/internal/metrics"
	"ppcp-backend/pkg/utils"
)

// PanicRecovery turns a handler panic into a 500 and counts it.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			user, _ := GetUsernameFromContext(r.Context())
			if user == "" {
				user = "-"
			}
			log.Printf("[HTTP] PANIC RECOVERED on %s %s user=%s: %v\n%s", r.Method, r.URL.Path, user, rec, debug.Stack())
			metrics.PanicsTotal.WithLabelValues(r.Method).Inc()

			utils.Error(w, http.StatusInternalServerError, "Internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
