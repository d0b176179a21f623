package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/departments/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/departments/1", "/departments/2", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/departments/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestObserveSave(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSave("ok", 3)
	m.ObserveSave("conflict", 1)
	m.ObserveSave("ok", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SaveChanges.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SaveChanges.WithLabelValues("conflict")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObserveSave("ok", 1) })
}
