// Package renderserver renders scene-file text submitted over HTTP.
package renderserver

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"r3trace/httpmetrics"
	"r3trace/imagesink"
	"r3trace/r2image"
	"r3trace/render"
	"r3trace/rendercache"
	"r3trace/scenefile"
)

type Config struct {
	// Largest accepted width*height.
	MaxPixels int
	MaxDepth  int
	// Largest accepted primaryRays*distributedRays.
	MaxRays int

	MaxSceneBytes int64

	// bcrypt hash of the bearer token.  Empty disables authentication.
	TokenHash []byte

	// Nil disables rate limiting.
	Limiter *rate.Limiter

	RenderTimeout time.Duration
	Workers       int
	CacheTTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxPixels:     1920 * 1080,
		MaxDepth:      8,
		MaxRays:       256,
		MaxSceneBytes: 1 << 20,
		RenderTimeout: 2 * time.Minute,
		CacheTTL:      24 * time.Hour,
	}
}

type Handler struct {
	cfg   Config
	cache *rendercache.Cache
	sink  imagesink.Sink
}

// New returns a render handler.  cache and sink are optional.
func New(cfg Config, cache *rendercache.Cache, sink imagesink.Sink) *Handler {
	return &Handler{
		cfg:   cfg,
		cache: cache,
		sink:  sink,
	}
}

type renderRequest struct {
	Scene           string `json:"scene"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	MaxDepth        int    `json:"maxDepth"`
	PrimaryRays     int    `json:"primaryRays"`
	DistributedRays int    `json:"distributedRays"`
	Seed            int64  `json:"seed"`
	Format          string `json:"format"`
}

func (req *renderRequest) defaults() {
	if req.PrimaryRays == 0 {
		req.PrimaryRays = 1
	}
	if req.DistributedRays == 0 {
		req.DistributedRays = 1
	}
	if req.Format == "" {
		req.Format = "png"
	}
	req.Format = strings.ToLower(req.Format)
	if req.Format == "jpg" {
		req.Format = "jpeg"
	}
}

func (h *Handler) check(req *renderRequest) error {
	if _, err := r2image.FormatFromPath("render." + req.Format); err != nil {
		return err
	}
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("image size %dx%d", req.Width, req.Height)
	}
	if req.PrimaryRays < 1 || req.DistributedRays < 1 {
		return fmt.Errorf("%d primary and %d distributed rays", req.PrimaryRays, req.DistributedRays)
	}
	// Limits divide rather than multiply so that huge factors cannot wrap.
	if h.cfg.MaxPixels > 0 && req.Width > h.cfg.MaxPixels/req.Height {
		return fmt.Errorf("image size %dx%d exceeds %d pixels", req.Width, req.Height, h.cfg.MaxPixels)
	}
	if h.cfg.MaxDepth > 0 && req.MaxDepth > h.cfg.MaxDepth {
		return fmt.Errorf("max depth %d exceeds %d", req.MaxDepth, h.cfg.MaxDepth)
	}
	if h.cfg.MaxRays > 0 && req.PrimaryRays > h.cfg.MaxRays/req.DistributedRays {
		return fmt.Errorf("%d primary x %d distributed rays exceeds %d", req.PrimaryRays, req.DistributedRays, h.cfg.MaxRays)
	}
	return nil
}

func (h *Handler) authorized(r *http.Request) bool {
	if len(h.cfg.TokenHash) == 0 {
		return true
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || token == r.Header.Get("Authorization") {
		return false
	}
	return bcrypt.CompareHashAndPassword(h.cfg.TokenHash, []byte(token)) == nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tracer := otel.Tracer("r3trace/renderserver")
	ctx, span := tracer.Start(r.Context(), "Render Serve HTTP")
	defer span.End()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if h.cfg.Limiter != nil && !h.cfg.Limiter.Allow() {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	body := io.Reader(r.Body)
	if h.cfg.MaxSceneBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.cfg.MaxSceneBytes)
	}
	reqBody, err := io.ReadAll(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	req := &renderRequest{}
	if err := json.Unmarshal(reqBody, req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	req.defaults()
	if err := h.check(req); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	span.SetAttributes(
		attribute.Int("width", req.Width),
		attribute.Int("height", req.Height),
		attribute.String("format", req.Format),
	)

	key := rendercache.Key([]byte(req.Scene), req.Width, req.Height, req.MaxDepth, req.PrimaryRays, req.DistributedRays, req.Seed, req.Format)
	contentType := r2image.ContentType(req.Format)

	if data, ok := h.cached(key); ok {
		w.Header().Set("X-Render-Cache", "hit")
		h.respond(ctx, w, key, req.Format, contentType, data)
		return
	}

	s, err := scenefile.Parse(strings.NewReader(req.Scene), "")
	if err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	renderCtx := ctx
	if h.cfg.RenderTimeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, h.cfg.RenderTimeout)
		defer cancel()
	}

	start := time.Now()
	im, err := render.RenderImage(renderCtx, s, render.Options{
		Width:                             req.Width,
		Height:                            req.Height,
		MaxDepth:                          req.MaxDepth,
		NumPrimaryRaysPerPixel:            req.PrimaryRays,
		NumDistributedRaysPerIntersection: req.DistributedRays,
		Seed:                              req.Seed,
		Workers:                           h.cfg.Workers,
	})
	switch {
	case errors.Is(err, render.ErrInvalidOptions):
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "render timed out", http.StatusServiceUnavailable)
		return
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		glog.Errorf("Error while rendering: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	elapsed := time.Since(start)
	httpmetrics.RecordRender(ctx, elapsed, req.Width*req.Height)
	glog.V(1).Infof("Rendered %dx%d, %d rays/pixel, depth %d in %v", req.Width, req.Height, req.PrimaryRays, req.MaxDepth, elapsed)

	buf := &bytes.Buffer{}
	if err := im.Encode(buf, req.Format); err != nil {
		glog.Errorf("Error while encoding render: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	data := buf.Bytes()

	if h.cache != nil {
		if err := h.cache.Put(key, data, h.cfg.CacheTTL); err != nil {
			glog.Warningf("Error while caching render: %v", err)
		}
	}

	w.Header().Set("X-Render-Cache", "miss")
	h.respond(ctx, w, key, req.Format, contentType, data)
}

func (h *Handler) cached(key []byte) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	data, ok, err := h.cache.Get(key)
	if err != nil {
		glog.Warningf("Error while reading render cache: %v", err)
		return nil, false
	}
	return data, ok
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, key []byte, format, contentType string, data []byte) {
	if h.sink != nil {
		ext := format
		if ext == "jpeg" {
			ext = "jpg"
		}
		name := hex.EncodeToString(key[4:]) + "." + ext
		url, err := h.sink.Put(ctx, name, contentType, data)
		if err != nil {
			glog.Warningf("Error while publishing render: %v", err)
		} else {
			glog.V(1).Infof("Published %s (%d bytes)", url, len(data))
			w.Header().Set("X-Render-Url", url)
		}
	}

	w.Header().Set("Content-Type", contentType)
	if _, err := w.Write(data); err != nil {
		glog.V(1).Infof("Error while writing render response: %v", err)
	}
}
