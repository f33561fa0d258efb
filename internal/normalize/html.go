// ABOUTME: HTML handling for record fields: tag stripping with entity decoding for feed text
// ABOUTME: and Markdown conversion of HTML-bearing titles for terminal preview

package normalize

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// tagPattern matches any <...> shaped substring.
var tagPattern = regexp.MustCompile(`<[^<>]*>`)

// StripHTML removes tag-shaped substrings, decodes entities and trims whitespace.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// TitleMarkdown converts a title that may carry inline markup (<i>, <sub>, ...)
// into Markdown. Titles without tags are returned trimmed.
func TitleMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if !tagPattern.MatchString(s) {
		return s
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return StripHTML(s)
	}
	return strings.TrimSpace(md)
}
