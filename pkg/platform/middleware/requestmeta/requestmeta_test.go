package requestmeta

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"screener/pkg/requestcontext"
)

func TestMiddleware(t *testing.T) {
	var seenID string
	var seenTimeSet bool
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = requestcontext.RequestID(r.Context())
		_, seenTimeSet = r.Context().Value(requestcontext.ContextKeyRequestTime).(time.Time)
	}))

	t.Run("mints an id when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/screen", nil))

		assert.NotEmpty(t, seenID)
		assert.Equal(t, seenID, w.Header().Get(HeaderRequestID))
		assert.True(t, seenTimeSet)
	})

	t.Run("reuses inbound id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/screen", nil)
		req.Header.Set(HeaderRequestID, "corr-123")
		handler.ServeHTTP(w, req)

		assert.Equal(t, "corr-123", seenID)
		assert.Equal(t, "corr-123", w.Header().Get(HeaderRequestID))
	})
}
