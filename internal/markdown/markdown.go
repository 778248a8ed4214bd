package markdown

import (
	"fmt"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// Convert renders page HTML as Markdown. Pure: no I/O, same input gives the
// same output, which keeps rerun output byte-stable.
func Convert(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return out, nil
}
