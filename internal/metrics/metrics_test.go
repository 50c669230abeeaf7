package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loguhan/FactoryGame/internal/sim/world"
)

func TestObserveTick(t *testing.T) {
	m := New()
	m.ObserveTick(world.TickSummary{Tick: 10, Duration: time.Millisecond, Commands: 3, Rejected: 1, Sessions: 2, Buildings: 7, BeltItems: 12, PowerRatio: 0.5})
	m.ObserveTick(world.TickSummary{Tick: 11, Duration: time.Millisecond, Commands: 1, Sessions: 2, Buildings: 8, BeltItems: 9, LooseItems: 1, PowerRatio: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.commands))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected))
	assert.Equal(t, 8.0, testutil.ToFloat64(m.buildings))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.beltItems))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.looseItems))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.powerRatio))
	assert.Equal(t, 11.0, testutil.ToFloat64(m.lastTick))
}

func TestHandlerAndMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	depth := 3.0
	m.GaugeFunc("index_queue_depth", "Pending index writes.", func() float64 { return depth })

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, p := range []string{"/ok", "/fail", "/fail", "/missing"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.reqErrors.WithLabelValues("GET", "/fail", "409")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reqErrors.WithLabelValues("GET", "unmatched", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, "factory_index_queue_depth 3"), "gauge func missing")
	assert.True(t, strings.Contains(text, "factory_http_request_duration_seconds_bucket"), "latency histogram missing")
}
