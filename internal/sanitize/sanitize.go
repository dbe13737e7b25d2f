// Package sanitize cleans free-text input before it is persisted or used
// as a literal filter value against the store.
package sanitize

import (
	"strings"
)

// MaxLength is the rune cap applied after all other transforms.
const MaxLength = 500

// The five entities the escape step emits. An ampersand that already
// begins one of these is left alone so that cleaning is idempotent.
var emittedEntities = []string{"&amp;", "&lt;", "&gt;", "&#34;", "&#39;"}

// stripped characters guard against document-query operator injection
// ($-keyed operators) and literal sub-document/array injection.
const strippedChars = "${}[]"

// Clean sanitizes an optional field. A nil input stays nil.
func Clean(input *string) *string {
	if input == nil {
		return nil
	}
	out := CleanString(*input)
	return &out
}

// CleanString transforms an arbitrary string into a value safe to render
// in an HTML context and safe to use as a literal query value. The
// transform order is fixed: HTML escaping first, then operator and
// structure stripping, then the script-tag rewrite, then truncation.
func CleanString(input string) string {
	out := escapeHTML(input)
	out = stripInjectionChars(out)
	out = rewriteScriptTag(out)
	return truncate(out, MaxLength)
}

// escapeHTML escapes &, <, >, " and ' to their entity forms. An & that
// already starts one of the entities this function emits is kept as-is;
// escaping it again would break idempotence of CleanString.
func escapeHTML(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(s)/2)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '&':
			if startsEmittedEntity(s[i:]) {
				b.WriteByte(c)
				continue
			}
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&#34;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func startsEmittedEntity(s string) bool {
	for _, entity := range emittedEntities {
		if strings.HasPrefix(s, entity) {
			return true
		}
	}
	return false
}

func stripInjectionChars(s string) string {
	if !strings.ContainsAny(s, strippedChars) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(strippedChars, r) {
			return -1
		}
		return r
	}, s)
}

// rewriteScriptTag replaces "<script" with "<blocked", case-insensitively.
// It runs after escaping, so any raw "<" has already become "&lt;" and the
// rewrite cannot match input that went through the escape step. The
// observed system applied the steps in this order; kept as-is.
func rewriteScriptTag(s string) string {
	const needle = "<script"
	lower := strings.ToLower(s)
	idx := strings.Index(lower, needle)
	if idx < 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for idx >= 0 {
		b.WriteString(s[:idx])
		b.WriteString("<blocked")
		s = s[idx+len(needle):]
		lower = lower[idx+len(needle):]
		idx = strings.Index(lower, needle)
	}
	b.WriteString(s)
	return b.String()
}

// truncate caps s at max runes. If the cut lands inside an entity the
// partial entity is dropped too, so the result never ends in a raw "&".
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	out := string(runes[:max])

	if amp := strings.LastIndexByte(out, '&'); amp >= 0 {
		tail := out[amp:]
		if !strings.ContainsRune(tail, ';') && isEntityPrefix(tail) {
			out = out[:amp]
		}
	}
	return out
}

func isEntityPrefix(s string) bool {
	for _, entity := range emittedEntities {
		if strings.HasPrefix(entity, s) {
			return true
		}
	}
	return false
}
