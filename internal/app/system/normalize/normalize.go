// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Name trims surrounding whitespace. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Phone keeps only digits. "+1 (555) 222-0001" and "15552220001" normalize
// to the same value, which is what invitation-duplicate checks compare on.
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ItemText trims item text. Display casing is preserved; comparisons use
// ItemKey.
func ItemText(s string) string {
	return strings.TrimSpace(s)
}

// ItemKey is the case-insensitive, trimmed, diacritics-folded form used for
// duplicate detection within and across item batches.
func ItemKey(s string) string {
	return text.Fold(strings.TrimSpace(s))
}
