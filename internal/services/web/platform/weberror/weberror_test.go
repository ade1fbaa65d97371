package weberror

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/sites/internal/services/web/platform/errors"
)

func TestRenderWritesLocalizedPage(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/media/missing.jpg", nil)
	req.Header.Set("Accept-Language", "pt-BR")
	rr := httptest.NewRecorder()

	New(nil).Render(rr, req, http.StatusNotFound)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
		t.Fatalf("Content-Type = %q, want text/html", got)
	}
	if body := rr.Body.String(); !strings.Contains(body, "Página não encontrada") {
		t.Fatalf("body missing localized title: %s", body)
	}
}

func TestRenderErrorMapsKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{apperrors.E(apperrors.KindForbidden, "outside root"), http.StatusForbidden},
		{apperrors.E(apperrors.KindNotFound, "missing"), http.StatusNotFound},
		{errors.New("disk failure"), http.StatusInternalServerError},
		{nil, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		New(nil).RenderError(rr, httptest.NewRequest(http.MethodGet, "/static/x", nil), tc.err)
		if rr.Code != tc.want {
			t.Fatalf("RenderError(%v) status = %d, want %d", tc.err, rr.Code, tc.want)
		}
	}
}

func TestBridgeErrorHandlerRendersServerError(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	New(nil).BridgeErrorHandler(rr, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusInternalServerError, errors.New("boom"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if body := rr.Body.String(); !strings.Contains(body, "Something went wrong") {
		t.Fatalf("body = %s", body)
	}
	if strings.Contains(rr.Body.String(), "boom") {
		t.Fatalf("error detail leaked into page")
	}
}

func TestRenderNilWriterSafety(t *testing.T) {
	t.Parallel()

	New(nil).Render(nil, nil, http.StatusNotFound)
}
