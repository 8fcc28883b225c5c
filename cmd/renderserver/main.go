// renderserver is a long-lived HTTP service that renders scene files posted to
// /render and optionally shows the published renders under /gallery/.
package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"contrib.go.opencensus.io/exporter/stackdriver"
	cloudmetrics "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/metric"
	cloudtrace "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"github.com/golang/glog"
	"github.com/joho/godotenv"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"r3trace/gallery"
	"r3trace/healthz"
	"r3trace/httpmetrics"
	"r3trace/imagesink"
	"r3trace/rendercache"
	"r3trace/renderserver"
)

var (
	listen      = flag.String("listen", "0.0.0.0:8080", "Where should we listen for incoming connections?")
	debugListen = flag.String("debug-listen", "127.0.0.1:8001", "Server address:port for debug endpoint.")
	envFile     = flag.String("env-file", ".env", "Optional file of KEY=value settings (S3 credentials).")

	cacheDir = flag.String("cache-dir", "", "Directory for the render cache.  Empty disables caching.")
	cacheTTL = flag.Duration("cache-ttl", 24*time.Hour, "How long cached renders are kept.")
	sink     = flag.String("sink", "", "Optional gs://bucket/prefix, s3://bucket/prefix or directory to publish renders to.")

	galleryBucket = flag.String("gallery-bucket", "", "GCS bucket browsed under /gallery/.  Empty disables the gallery.")
	galleryPrefix = flag.String("gallery-prefix", "", "Object prefix within -gallery-bucket.")

	tokenHashFile = flag.String("token-hash-file", "", "File holding the bcrypt hash of the bearer token.  Empty disables authentication.")
	requestRate   = flag.Float64("request-rate", 1.0, "Sustained renders per second.  0 disables rate limiting.")
	requestBurst  = flag.Int("request-burst", 4, "Renders allowed in a burst.")

	maxPixels     = flag.Int("max-pixels", 1920*1080, "Largest accepted width*height.")
	maxDepth      = flag.Int("max-depth", 8, "Largest accepted maxDepth.")
	maxRays       = flag.Int("max-rays", 256, "Largest accepted primaryRays*distributedRays.")
	renderTimeout = flag.Duration("render-timeout", 2*time.Minute, "Deadline for a single render.")
	workers       = flag.Int("workers", 0, "Rows rendered concurrently per request; 0 means one per CPU.")

	enableMetrics        = flag.Bool("enable-metrics", false, "Export OpenCensus request metrics to Stackdriver?")
	monitoring           = flag.Bool("monitoring", false, "Enable monitoring?")
	monitoringProject    = flag.String("monitoring-project", "", "Override project used for monitoring integration.  If not specified, the project associated with Application Default Credentials is used.")
	monitoringTraceRatio = flag.Float64("monitoring-trace-ratio", 0.01, "What ratio of traces should be exported?")
)

func main() {
	flag.Parse()

	glog.CopyStandardLogTo("INFO")

	glog.Infof("flags:")
	flag.VisitAll(func(f *flag.Flag) {
		glog.Infof("%s: %v", f.Name, f.Value)
	})

	if err := godotenv.Load(*envFile); err != nil {
		glog.Infof("Not loading %s: %v", *envFile, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *monitoring {
		metricsOpts := []cloudmetrics.Option{}
		traceOpts := []cloudtrace.Option{}
		if *monitoringProject != "" {
			metricsOpts = append(metricsOpts, cloudmetrics.WithProjectID(*monitoringProject))
			traceOpts = append(traceOpts, cloudtrace.WithProjectID(*monitoringProject))
		}

		_, traceShutdown, err := cloudtrace.InstallNewPipeline(traceOpts, sdktrace.WithSampler(sdktrace.TraceIDRatioBased(*monitoringTraceRatio)))
		if err != nil {
			glog.Fatalf("Failed to install Cloud Trace OpenTelemetry trace pipeline: %v", err)
		}
		defer traceShutdown()

		pusher, err := cloudmetrics.InstallNewPipeline(metricsOpts)
		if err != nil {
			glog.Fatalf("Failed to install Cloud Metrics OpenTelemetry meter pipeline: %v", err)
		}
		defer pusher.Stop(ctx)
	}

	if *enableMetrics {
		exporter, err := stackdriver.NewExporter(stackdriver.Options{
			ProjectID:         *monitoringProject,
			MetricPrefix:      "renderserver",
			ReportingInterval: 60 * time.Second,
		})
		if err != nil {
			glog.Fatalf("Error initializing metrics: %v", err)
		}
		if err := exporter.StartMetricsExporter(); err != nil {
			glog.Fatalf("Error starting metrics exporter: %v", err)
		}
		defer exporter.Flush()
		defer exporter.StopMetricsExporter()
	}

	cfg := renderserver.DefaultConfig()
	cfg.MaxPixels = *maxPixels
	cfg.MaxDepth = *maxDepth
	cfg.MaxRays = *maxRays
	cfg.RenderTimeout = *renderTimeout
	cfg.Workers = *workers
	cfg.CacheTTL = *cacheTTL
	if *requestRate > 0 {
		cfg.Limiter = rate.NewLimiter(rate.Limit(*requestRate), *requestBurst)
	}
	if *tokenHashFile != "" {
		hash, err := os.ReadFile(*tokenHashFile)
		if err != nil {
			glog.Fatalf("Failed to read token hash: %v", err)
		}
		cfg.TokenHash = []byte(strings.TrimSpace(string(hash)))
	}

	var cache *rendercache.Cache
	if *cacheDir != "" {
		var err error
		cache, err = rendercache.Open(*cacheDir)
		if err != nil {
			glog.Fatalf("Failed to open render cache: %v", err)
		}
		defer cache.Close()
	}

	var renderSink imagesink.Sink
	if *sink != "" {
		var err error
		renderSink, err = imagesink.Open(ctx, *sink, imagesink.S3ConfigFromEnv())
		if err != nil {
			glog.Fatalf("Failed to open sink: %v", err)
		}
	}

	serveMux := http.NewServeMux()
	serveMux.Handle("/render", renderserver.New(cfg, cache, renderSink))

	if *galleryBucket != "" {
		store, err := gallery.NewGCSStore(ctx, *galleryBucket)
		if err != nil {
			glog.Fatalf("Failed to create gallery store: %v", err)
		}
		site, err := gallery.New("/gallery", *galleryPrefix, store)
		if err != nil {
			glog.Fatalf("Failed to create gallery: %v", err)
		}
		serveMux.Handle("/gallery/", site)
	}

	metricsWrapper := httpmetrics.New(serveMux)
	if err := metricsWrapper.RegisterMetrics(); err != nil {
		glog.Fatalf("Failed to register metrics: %v", err)
	}

	ready := func(ctx context.Context) error {
		if cache == nil {
			return nil
		}
		_, _, err := cache.Get(rendercache.Key(nil, "readyz"))
		return err
	}

	debugServeMux := http.NewServeMux()
	debugServeMux.Handle("/healthz", healthz.New())
	debugServeMux.Handle("/readyz", healthz.NewReady(ready))
	debugServeMux.HandleFunc("/debug/pprof/", pprof.Index)
	debugServeMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	debugServeMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	debugServeMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	debugServeMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	debugServer := &http.Server{
		Addr:    *debugListen,
		Handler: debugServeMux,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	server := &http.Server{
		Addr:    *listen,
		Handler: metricsWrapper,

		ReadTimeout:    30 * time.Second,
		WriteTimeout:   *renderTimeout + 30*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := debugServer.ListenAndServe(); err != nil {
			glog.Fatalf("Debug server died: %v", err)
		}
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("Error while serving http: %v", err)
		}
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	<-signalCh

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("Error during shutdown: %v", err)
	}

	glog.Flush()
}
