// Package i18n holds the translation catalog used by the chat client.
package i18n

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

const FallbackLanguage = "en"

// Source fetches translation bundles. brain.Client satisfies it.
type Source interface {
	TranslationsByLanguage(ctx context.Context, code string) (map[string]string, error)
	Languages(ctx context.Context) ([]string, error)
}

// Catalog is a set of per-language bundles plus the active language.
// It is safe for concurrent use.
type Catalog struct {
	src Source
	log zerolog.Logger

	mu      sync.RWMutex
	active  string
	bundles map[string]map[string]string
}

func NewCatalog(src Source, log zerolog.Logger) *Catalog {
	return &Catalog{
		src:     src,
		log:     log.With().Str("component", "i18n").Logger(),
		active:  FallbackLanguage,
		bundles: map[string]map[string]string{},
	}
}

// Language returns the active language code.
func (c *Catalog) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Load fetches the bundle for lang and merges it over what is already held,
// new keys overwriting old ones. When the fetch fails the navigation fallback
// bundle is merged instead and the fetch error is returned.
func (c *Catalog) Load(ctx context.Context, lang string) error {
	bundle, err := c.src.TranslationsByLanguage(ctx, lang)
	if err != nil {
		c.log.Warn().Err(err).Str("lang", lang).Msg("using fallback translations")
		c.merge(lang, fallbackBundle(lang))
		return fmt.Errorf("i18n: load %s: %w", lang, err)
	}
	c.merge(lang, bundle)
	c.log.Debug().Str("lang", lang).Int("keys", len(bundle)).Msg("translations loaded")
	return nil
}

// ChangeLanguage loads lang and makes it active. The switch happens even when
// the load fell back to the built-in bundle; the load error is still returned.
func (c *Catalog) ChangeLanguage(ctx context.Context, lang string) error {
	err := c.Load(ctx, lang)
	c.mu.Lock()
	c.active = lang
	c.mu.Unlock()
	return err
}

// Reload refetches the active language.
func (c *Catalog) Reload(ctx context.Context) error {
	return c.Load(ctx, c.Language())
}

// Add merges a bundle directly, as the catalog would after a fetch.
func (c *Catalog) Add(lang string, bundle map[string]string) {
	c.merge(lang, bundle)
}

func (c *Catalog) merge(lang string, bundle map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dst := c.bundles[lang]
	if dst == nil {
		dst = make(map[string]string, len(bundle))
		c.bundles[lang] = dst
	}
	for k, v := range bundle {
		dst[k] = v
	}
}

// T looks key up in the active bundle, then the fallback bundle, then
// returns def, or the key itself when def is empty.
func (c *Catalog) T(key, def string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.bundles[c.active][key]; ok && v != "" {
		return v
	}
	if v, ok := c.bundles[FallbackLanguage][key]; ok && v != "" {
		return v
	}
	if def != "" {
		return def
	}
	return key
}

// Negotiate picks the supported language closest to the preferred tags
// (BCP 47 strings or POSIX locales such as "fr_CA.UTF-8").
func (c *Catalog) Negotiate(ctx context.Context, preferred ...string) (string, error) {
	codes, err := c.src.Languages(ctx)
	if err != nil {
		return FallbackLanguage, fmt.Errorf("i18n: languages: %w", err)
	}
	return Match(codes, preferred...), nil
}

// Match returns the entry of supported that best matches preferred, or the
// fallback language when nothing matches.
func Match(supported []string, preferred ...string) string {
	tags := make([]language.Tag, 0, len(supported)+1)
	codes := make([]string, 0, len(supported)+1)
	// first entry is the matcher's default
	tags = append(tags, language.English)
	codes = append(codes, FallbackLanguage)
	for _, code := range supported {
		tag, err := language.Parse(code)
		if err != nil || code == FallbackLanguage {
			continue
		}
		tags = append(tags, tag)
		codes = append(codes, code)
	}

	want := make([]language.Tag, 0, len(preferred))
	for _, p := range preferred {
		if tag, err := language.Parse(normalizeLocale(p)); err == nil {
			want = append(want, tag)
		}
	}
	if len(want) == 0 {
		return FallbackLanguage
	}

	_, idx, conf := language.NewMatcher(tags).Match(want...)
	if conf == language.No {
		return FallbackLanguage
	}
	return codes[idx]
}

// normalizeLocale turns "fr_CA.UTF-8@euro" into "fr-CA".
func normalizeLocale(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '.' || ch == '@' {
			break
		}
		if ch == '_' {
			ch = '-'
		}
		out = append(out, ch)
	}
	return string(out)
}
