// Package landing is the default downstream application served through the
// bridge when no other application is configured.
package landing

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/louisbranch/sites/internal/services/bridge"
	"github.com/louisbranch/sites/internal/services/web/platform/httpx"
	"github.com/louisbranch/sites/internal/services/web/platform/weberror"
	webtemplates "github.com/louisbranch/sites/internal/services/web/templates"
)

// New returns the landing application.
func New(pages *weberror.Renderer) bridge.Application {
	return bridge.FromHandler(NewHandler(pages))
}

// NewHandler builds the net/http side of the landing application.
func NewHandler(pages *weberror.Renderer) http.Handler {
	if pages == nil {
		pages = weberror.New(nil)
	}
	h := &handler{pages: pages}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/", h.handleRoot)
	return mux
}

type handler struct {
	pages *weberror.Renderer
}

func (h *handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.pages.Render(w, r, http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(http.MethodGet)(w, r)
		return
	}
	templ.Handler(webtemplates.LandingPage(h.pages.Page(r))).ServeHTTP(w, r)
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(http.MethodGet)(w, r)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
