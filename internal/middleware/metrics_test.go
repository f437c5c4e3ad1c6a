package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/service"
)

func TestMetricsLabelsByRoute(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newProtectedRouter()
	r.Use(Metrics(metrics))
	r.GET("/transfers/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/transfers/a", "/transfers/b", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	paths := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "path" {
					paths[label.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(2), paths["/transfers/:id"])
	assert.Equal(t, float64(1), paths["unmatched"])
	assert.NotContains(t, paths, "/transfers/a")
}
