// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// Group names, list names, and item text are plain text, so the strict
// policy strips every tag rather than allowlisting a safe subset.
var strict = bluemonday.StrictPolicy()

// Strip removes all HTML markup from user-supplied text and unescapes the
// remaining entities, so "Milk <b>2%</b>" becomes "Milk 2%".
func Strip(s string) string {
	return html.UnescapeString(strict.Sanitize(s))
}
