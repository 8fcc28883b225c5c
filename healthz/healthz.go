package healthz

import (
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"
)

type Handler struct {
	// Optional.  A non-nil error marks the server unready.
	check func(ctx context.Context) error
}

// New returns a liveness handler that always answers 200 OK.
func New() *Handler {
	return &Handler{}
}

// NewReady returns a readiness handler that answers 200 OK only while check
// succeeds.
func NewReady(check func(ctx context.Context) error) *Handler {
	return &Handler{check: check}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.check(ctx); err != nil {
			glog.Warningf("Readiness check failed: %v", err)
			http.Error(w, "503 Service Unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	if _, err := w.Write([]byte("200 OK")); err != nil {
		glog.Errorf("Error while writing http response: %v", err)
	}
}
