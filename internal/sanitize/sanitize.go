package sanitize

import (
	"regexp"
	"strings"
)

var illegal = regexp.MustCompile(`[\\/*?:"<>|]`)

// Name maps a display name to a filesystem-legal file or directory name.
// Total and deterministic: the same input always yields the same output,
// which is what makes existence-based resume checks reliable.
func Name(name string) string {
	return strings.TrimSpace(illegal.ReplaceAllString(name, "_"))
}
