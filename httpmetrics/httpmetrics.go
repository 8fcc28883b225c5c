package httpmetrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	keyPath   = tag.MustNewKey("path")
	keyMethod = tag.MustNewKey("method")
	keyCode   = tag.MustNewKey("code")

	renderLatency = stats.Float64("render_latency", "Time spent rendering one image", stats.UnitMilliseconds)
	renderPixels  = stats.Int64("render_pixels", "Pixels rendered", stats.UnitDimensionless)

	renderViews = []*view.View{
		{
			Name:        "render_latency",
			Description: "Distribution of render times",
			Measure:     renderLatency,
			Aggregation: view.Distribution(10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000),
		},
		{
			Name:        "render_pixels",
			Description: "Total pixels rendered",
			Measure:     renderPixels,
			Aggregation: view.Sum(),
		},
	}
)

type Wrapper struct {
	requestCount     *stats.Int64Measure
	requestCountView *view.View

	inner http.Handler
}

func New(inner http.Handler) *Wrapper {
	r := &Wrapper{}

	r.requestCount = stats.Int64("requests", "", stats.UnitDimensionless)
	r.requestCountView = &view.View{
		Name:        "requests",
		Description: "Counter of requests that have been handled",

		TagKeys: []tag.Key{keyPath, keyMethod, keyCode},

		Measure:     r.requestCount,
		Aggregation: view.Count(),
	}

	r.inner = inner

	return r
}

func (h *Wrapper) RegisterMetrics() error {
	views := append([]*view.View{h.requestCountView}, renderViews...)
	return view.Register(views...)
}

// statusRecorder remembers the status code written by the inner handler.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Wrapper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
	start := time.Now()
	h.inner.ServeHTTP(rec, r)

	glog.V(1).Infof("Served method=%s path=%q code=%d in %v", r.Method, r.URL.Path, rec.code, time.Since(start))

	stats.RecordWithOptions(
		r.Context(),
		stats.WithTags(
			tag.Insert(keyPath, r.URL.Path),
			tag.Insert(keyMethod, r.Method),
			tag.Insert(keyCode, strconv.Itoa(rec.code)),
		),
		stats.WithMeasurements(h.requestCount.M(1)))
}

// RecordRender records one finished render.
func RecordRender(ctx context.Context, elapsed time.Duration, pixels int) {
	stats.Record(ctx,
		renderLatency.M(float64(elapsed)/float64(time.Millisecond)),
		renderPixels.M(int64(pixels)))
}
