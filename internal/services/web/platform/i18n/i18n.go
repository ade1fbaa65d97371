// Package i18n resolves the request language and prints localized copy for
// server-rendered pages.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// LangParam is the query parameter used to select a language.
const LangParam = "lang"

//go:embed locales/*.yaml
var localesFS embed.FS

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds the loaded catalogs and the tags they cover.
type Bundle struct {
	catalog   *catalog.Builder
	supported []language.Tag
	matcher   language.Matcher
}

var defaultBundle = mustLoad(localesFS)

// Default returns the bundle built from the embedded locale files.
func Default() *Bundle {
	return defaultBundle
}

func mustLoad(fsys fs.FS) *Bundle {
	bundle, err := Load(fsys)
	if err != nil {
		panic(fmt.Sprintf("load locale catalogs: %v", err))
	}
	return bundle
}

// Load reads every locales/*.yaml file in fsys. en-US must be present and is
// the fallback language.
func Load(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locales: %w", err)
	}
	sort.Strings(paths)

	builder := catalog.NewBuilder(catalog.Fallback(language.AmericanEnglish))
	var tags []language.Tag
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		tag, err := language.Parse(strings.TrimSpace(file.Locale))
		if err != nil {
			return nil, fmt.Errorf("%s: locale: %w", path, err)
		}
		for key, msg := range file.Messages {
			if err := builder.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", path, key, err)
			}
		}
		if tag == language.AmericanEnglish {
			tags = append([]language.Tag{tag}, tags...)
			continue
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 || tags[0] != language.AmericanEnglish {
		return nil, fmt.Errorf("base locale %s is not defined", language.AmericanEnglish)
	}

	return &Bundle{
		catalog:   builder,
		supported: tags,
		matcher:   language.NewMatcher(tags),
	}, nil
}

// Supported lists the available tags, base language first.
func (b *Bundle) Supported() []language.Tag {
	return append([]language.Tag(nil), b.supported...)
}

// Match returns the closest supported tag for a list of preferences.
func (b *Bundle) Match(preferred ...language.Tag) language.Tag {
	_, index, confidence := b.matcher.Match(preferred...)
	if confidence == language.No {
		return b.supported[0]
	}
	return b.supported[index]
}

// ResolveTag picks the request language: the lang query parameter first, then
// Accept-Language, then the base language.
func (b *Bundle) ResolveTag(r *http.Request) language.Tag {
	if r == nil {
		return b.supported[0]
	}
	if raw := strings.TrimSpace(r.URL.Query().Get(LangParam)); raw != "" {
		if tag, err := language.Parse(raw); err == nil {
			return b.Match(tag)
		}
	}
	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			return b.Match(tags...)
		}
	}
	return b.supported[0]
}

// Printer returns a message printer for tag over this bundle's catalog.
func (b *Bundle) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(b.catalog))
}

// Text prints key, falling back when the catalog has no entry.
func Text(p *message.Printer, key string, fallback string) string {
	if p != nil {
		value := strings.TrimSpace(p.Sprintf(key))
		if value != "" && value != key {
			return value
		}
	}
	return fallback
}
