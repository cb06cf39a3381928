package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Post("/v1/messages/{id}/send", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/v1/messages/{id}/send", "409"))
	req := httptest.NewRequest(http.MethodPost, "/v1/messages/7d3c/send", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodPost, "/v1/messages/{id}/send", "409"))

	assert.Equal(t, before+1, after)
}
