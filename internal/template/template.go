// Package template substitutes named placeholders of the form
// {{name}} into campaign and reply templates. It is a pure function
// layer: no I/O, deterministic output.
package template

import (
	"strings"

	"github.com/waveline/engage-gateway/internal/model"
)

var placeholderSep = [2]string{"{{", "}}"}

// Render replaces every {{key}} occurrence with data[key]. Placeholders
// with no matching key render as the empty string, so a template never
// leaks raw markers to a recipient.
func Render(tmpl string, data map[string]string) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	rest := tmpl
	for {
		start := strings.Index(rest, placeholderSep[0])
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], placeholderSep[1])
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start

		b.WriteString(rest[:start])
		key := strings.TrimSpace(rest[start+len(placeholderSep[0]) : end])
		b.WriteString(data[key])
		rest = rest[end+len(placeholderSep[1]):]
	}
	return b.String()
}

// ContactFields builds the standard substitution map for a contact.
// Missing attributes map to empty strings by construction.
func ContactFields(c *model.Contact) map[string]string {
	if c == nil {
		return map[string]string{}
	}
	return map[string]string{
		"name":    c.Name,
		"company": c.Company,
		"email":   c.Email,
		"phone":   c.Phone,
	}
}
