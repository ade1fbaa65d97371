// Package templates renders the server-owned HTML pages: error pages for
// static/media failures and the landing page.
package templates

import (
	"strings"

	"github.com/louisbranch/sites/internal/services/web/platform/i18n"
	"golang.org/x/text/message"
)

//go:generate templ generate

// PageContext provides shared layout context for pages.
type PageContext struct {
	Lang        string
	Loc         *message.Printer
	CurrentPath string
}

// T localizes key for the page, falling back to fallback.
func (p PageContext) T(key string, fallback string) string {
	return i18n.Text(p.Loc, key, fallback)
}

func (p PageContext) lang() string {
	if lang := strings.TrimSpace(p.Lang); lang != "" {
		return lang
	}
	return "en-US"
}

// documentTitle suffixes title with the app name unless they match.
func (p PageContext) documentTitle(title string) string {
	appName := p.T("app.name", "Sites")
	if title = strings.TrimSpace(title); title != "" && title != appName {
		return title + " | " + appName
	}
	return appName
}
