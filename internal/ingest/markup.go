package ingest

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// breakTags end a line when flattened to text.
var breakTags = map[string]bool{
	"br":  true,
	"p":   true,
	"div": true,
	"li":  true,
}

// stripMarkup flattens HTML fragments (search snippets, scraped captions)
// to plain text and decodes entities. Plain text is returned unchanged.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var sb strings.Builder

	z := html.NewTokenizer(strings.NewReader(s))

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return sb.String()
			}

			return s
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if breakTags[string(name)] && sb.Len() > 0 {
				sb.WriteByte('\n')
			}
		}
	}
}
