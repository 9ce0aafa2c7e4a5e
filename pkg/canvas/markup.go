package canvas

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DescriptionLimit is the number of characters kept from a remote description
const DescriptionLimit = 200

// StripMarkup returns the text content of an HTML fragment. Script and style contents are dropped.
func StripMarkup(fragment string) string {
	var text strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	skip := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return text.String()
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if a := atom.Lookup(name); a == atom.Script || a == atom.Style {
				skip++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if a := atom.Lookup(name); (a == atom.Script || a == atom.Style) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				text.Write(tokenizer.Text())
			}
		}
	}
}

// Truncate keeps the first limit characters of s
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}

// description turns a remote description into the stored one
func description(remote *string) string {
	if remote == nil {
		return ""
	}

	return Truncate(StripMarkup(*remote), DescriptionLimit)
}
