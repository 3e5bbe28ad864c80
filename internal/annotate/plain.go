package annotate

import (
	"strings"

	"golang.org/x/net/html"
)

// PlainText returns the visible text of markup with entities decoded.
func PlainText(markup string) string {
	z := html.NewTokenizer(strings.NewReader(markup))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(z.Text())
		}
	}
}
