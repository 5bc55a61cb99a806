package language

import "strings"

// Entry pairs a BCP-47 language code with the display name the remote
// translator uses for that language.
type Entry struct {
	Code        string
	DisplayName string
}

// Auto is the pseudo-code for "detect the source language".
const Auto = "auto"

// Catalog is the immutable set of supported languages, loaded once at
// process start.
type Catalog struct {
	entries   []Entry
	byCode    map[string]string
	byDisplay map[string]string
}

// NewCatalog builds a catalog from the given entries, preserving order.
func NewCatalog(entries []Entry) *Catalog {
	c := &Catalog{
		entries:   append([]Entry(nil), entries...),
		byCode:    make(map[string]string, len(entries)),
		byDisplay: make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		c.byCode[e.Code] = e.DisplayName
		c.byDisplay[strings.ToLower(e.DisplayName)] = e.Code
	}
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return NewCatalog(builtin)
}

// All returns the entries in catalog order.
func (c *Catalog) All() []Entry {
	return append([]Entry(nil), c.entries...)
}

// LookupByCode returns the display name for a language code.
func (c *Catalog) LookupByCode(code string) (string, bool) {
	name, ok := c.byCode[code]
	return name, ok
}

// LookupByDisplayName returns the code for a display name. Matching is
// case-insensitive because the remote service returns free-text names.
func (c *Catalog) LookupByDisplayName(name string) (string, bool) {
	code, ok := c.byDisplay[strings.ToLower(strings.TrimSpace(name))]
	return code, ok
}

// Contains reports whether the code is a known language.
func (c *Catalog) Contains(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Reconcile maps a free-text detected-language name onto the catalog's
// canonical display name. Unknown names pass through unchanged.
func (c *Catalog) Reconcile(detected string) string {
	if code, ok := c.LookupByDisplayName(detected); ok {
		return c.byCode[code]
	}
	return detected
}

// BestMatch resolves a loose language tag to a supported code: exact
// match first, then the first entry sharing the short subtag, else the
// fallback. Used to pick a capture hint when the source is "auto".
func BestMatch(c *Catalog, tag, fallback string) string {
	if tag == "" {
		return fallback
	}
	if c.Contains(tag) {
		return tag
	}
	short := ShortSubtag(tag)
	for _, e := range c.entries {
		if strings.HasPrefix(e.Code, short) {
			return e.Code
		}
	}
	return fallback
}

// ShortSubtag returns the portion of a language tag before the region
// separator, e.g. "es" for "es-ES".
func ShortSubtag(tag string) string {
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i]
	}
	return tag
}

var builtin = []Entry{
	{Code: "en-US", DisplayName: "English"},
	{Code: "es-ES", DisplayName: "Spanish"},
	{Code: "fr-FR", DisplayName: "French"},
	{Code: "de-DE", DisplayName: "German"},
	{Code: "it-IT", DisplayName: "Italian"},
	{Code: "pt-BR", DisplayName: "Portuguese"},
	{Code: "nl-NL", DisplayName: "Dutch"},
	{Code: "pl-PL", DisplayName: "Polish"},
	{Code: "ru-RU", DisplayName: "Russian"},
	{Code: "uk-UA", DisplayName: "Ukrainian"},
	{Code: "tr-TR", DisplayName: "Turkish"},
	{Code: "ar-SA", DisplayName: "Arabic"},
	{Code: "hi-IN", DisplayName: "Hindi"},
	{Code: "ja-JP", DisplayName: "Japanese"},
	{Code: "ko-KR", DisplayName: "Korean"},
	{Code: "zh-CN", DisplayName: "Chinese"},
	{Code: "sv-SE", DisplayName: "Swedish"},
	{Code: "da-DK", DisplayName: "Danish"},
	{Code: "fi-FI", DisplayName: "Finnish"},
	{Code: "el-GR", DisplayName: "Greek"},
}
