// Package htmltext extracts visible text from scraped HTML fragments.
// Job boards frequently leave markup inside posting titles and
// descriptions; the importer strips it before normalization.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// Extract returns the visible text of an HTML fragment, with script
// and style content dropped and whitespace collapsed. Plain text
// passes through unchanged apart from whitespace collapsing; malformed
// markup is handled leniently by the tokenizer.
func Extract(fragment string) string {
	if !strings.ContainsRune(fragment, '<') {
		return collapse(fragment)
	}

	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	skipDepth := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return collapse(b.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.WriteString(string(tokenizer.Text()))
				b.WriteByte(' ')
			}
		}
	}
}

func skippedTag(name string) bool {
	return name == "script" || name == "style"
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
