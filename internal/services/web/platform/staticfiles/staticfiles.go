// Package staticfiles serves files from a root directory and renders custom
// error pages instead of the default plain-text bodies.
package staticfiles

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	apperrors "github.com/louisbranch/sites/internal/services/web/platform/errors"
)

// ErrorRenderer writes the page for a failed lookup.
type ErrorRenderer interface {
	RenderError(w http.ResponseWriter, r *http.Request, err error)
}

// Handler serves files below root. Mount it behind http.StripPrefix so the
// request path is relative to root.
type Handler struct {
	root  string
	pages ErrorRenderer
}

// New builds a Handler for root.
func New(root string, pages ErrorRenderer) *Handler {
	return &Handler{root: root, pages: pages}
}

// ServeHTTP serves the requested file.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		h.fail(w, r, apperrors.E(apperrors.KindMethodNotAllowed, "method not allowed"))
		return
	}

	file, info, err := h.open(r.URL.Path)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer file.Close()

	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

// open resolves name below root. Paths leaving the root and directories are
// forbidden; missing files are not found.
func (h *Handler) open(name string) (*os.File, fs.FileInfo, error) {
	if strings.Contains(name, "\x00") {
		return nil, nil, apperrors.E(apperrors.KindForbidden, "invalid path")
	}
	if escapes(name) {
		return nil, nil, apperrors.E(apperrors.KindForbidden, "path is not in root directory")
	}
	cleaned := path.Clean("/" + name)

	root, err := filepath.Abs(h.root)
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.KindUnknown, "resolve root", err)
	}
	full := filepath.Join(root, filepath.FromSlash(cleaned))

	file, err := os.Open(full)
	if err != nil {
		return nil, nil, classify(err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, classify(err)
	}
	if info.IsDir() {
		file.Close()
		return nil, nil, apperrors.E(apperrors.KindForbidden, "directory listing is not allowed")
	}
	return file, info, nil
}

// escapes reports whether any ".." segment would climb above the root.
func escapes(name string) bool {
	depth := 0
	for _, segment := range strings.Split(strings.ReplaceAll(name, "\\", "/"), "/") {
		switch segment {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return true
			}
		default:
			depth++
		}
	}
	return false
}

func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return apperrors.Wrap(apperrors.KindNotFound, "file not found", err)
	case errors.Is(err, fs.ErrPermission):
		return apperrors.Wrap(apperrors.KindForbidden, "file not readable", err)
	default:
		return apperrors.Wrap(apperrors.KindUnknown, "open file", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.pages == nil {
		status := apperrors.HTTPStatus(err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	h.pages.RenderError(w, r, err)
}
