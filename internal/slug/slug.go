// Package slug derives URL-safe note identifiers from titles.
package slug

import (
	"strings"

	gosimple "github.com/gosimple/slug"
)

// MaxLength is the longest slug the notes table accepts.
const MaxLength = 100

// Normalize converts a title into a lowercase URL-safe slug,
// transliterating non-ASCII characters ("Заголовок" becomes "zagolovok").
// The result is deterministic for identical input. Collision handling is
// the store's job, not ours.
func Normalize(title string) string {
	s := gosimple.Make(title)
	if len(s) > MaxLength {
		s = strings.Trim(s[:MaxLength], "-_")
	}
	return s
}
