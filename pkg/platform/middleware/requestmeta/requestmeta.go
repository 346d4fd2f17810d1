// Package requestmeta provides middleware that stamps each request with a
// correlation ID and a single request-scoped "now".
package requestmeta

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"screener/pkg/requestcontext"
)

// HeaderRequestID carries the correlation ID in and out of the service.
const HeaderRequestID = "X-Request-ID"

// Middleware reuses an inbound X-Request-ID or mints a new one, echoes it on
// the response, and pins the request time for every downstream evaluation.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
