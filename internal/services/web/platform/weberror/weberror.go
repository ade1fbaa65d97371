// Package weberror renders the localized error pages used for static/media
// failures and for requests the bridge could not complete.
package weberror

import (
	"context"
	"net/http"

	"github.com/a-h/templ"
	apperrors "github.com/louisbranch/sites/internal/services/web/platform/errors"
	"github.com/louisbranch/sites/internal/services/web/platform/i18n"
	webtemplates "github.com/louisbranch/sites/internal/services/web/templates"
)

// Renderer writes error pages.
type Renderer struct {
	bundle *i18n.Bundle
}

// New builds a Renderer. A nil bundle uses the embedded catalogs.
func New(bundle *i18n.Bundle) *Renderer {
	if bundle == nil {
		bundle = i18n.Default()
	}
	return &Renderer{bundle: bundle}
}

// Page resolves the layout context for r.
func (rd *Renderer) Page(r *http.Request) webtemplates.PageContext {
	tag := rd.bundle.ResolveTag(r)
	page := webtemplates.PageContext{
		Lang: tag.String(),
		Loc:  rd.bundle.Printer(tag),
	}
	if r != nil {
		page.CurrentPath = r.URL.Path
	}
	return page
}

// Render writes the error page for status.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int) {
	if w == nil {
		return
	}
	page := rd.Page(r)
	component := webtemplates.ErrorPage(page, status)
	if r == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := component.Render(context.Background(), w); err != nil {
			http.Error(w, http.StatusText(status), status)
		}
		return
	}
	templ.Handler(component, templ.WithStatus(status)).ServeHTTP(w, r)
}

// RenderError writes the error page for the status err maps to.
func (rd *Renderer) RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status < http.StatusBadRequest {
		status = http.StatusInternalServerError
	}
	rd.Render(w, r, status)
}

// BridgeErrorHandler adapts Render to the bridge's error hook.
func (rd *Renderer) BridgeErrorHandler(w http.ResponseWriter, r *http.Request, status int, _ error) {
	rd.Render(w, r, status)
}
