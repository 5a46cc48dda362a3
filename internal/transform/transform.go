// Package transform builds provider transformation URLs from effect ids.
package transform

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"lumina/internal/catalog"
)

// QueryParam is the provider query parameter carrying the transformation chain.
const QueryParam = "tr"

// Fragment maps an effect id and optional prompt to its URL fragment.
// Unknown ids yield "".
func Fragment(c *catalog.Catalog, effectID, prompt string) string {
	e, ok := c.Lookup(effectID)
	if !ok {
		return ""
	}
	if !e.AcceptsPrompt || prompt == "" || e.Template == "" {
		return e.ID
	}
	return strings.ReplaceAll(e.Template, catalog.PromptPlaceholder, EncodeComponent(prompt))
}

// Fragments maps ids in order, skipping unknown ones. prompts holds the
// prompt for freshly applied effects only.
func Fragments(c *catalog.Catalog, ids []string, prompts map[string]string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if f := Fragment(c, id, prompts[id]); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Combine returns baseURL with the comma-joined fragment chain appended, or
// baseURL unchanged when no fragment applies.
func Combine(c *catalog.Catalog, baseURL string, ids []string, prompts map[string]string) string {
	frags := Fragments(c, ids, prompts)
	if len(frags) == 0 {
		return baseURL
	}
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + QueryParam + "=" + strings.Join(frags, ",")
}

// Key returns a short stable hash identifying a transformation URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:8])
}

// EncodeComponent percent-encodes s the way browsers' encodeURIComponent
// does: only ASCII letters, digits and -_.!~*'() pass through unescaped.
func EncodeComponent(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isUnreserved(ch) {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[ch>>4])
		b.WriteByte(hexDigits[ch&0x0f])
	}
	return b.String()
}

func isUnreserved(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}
	switch ch {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
