// Package articles turns generated knowledge-article drafts into
// ServiceNow-ready HTML bodies and short titles.
package articles

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	xhtml "golang.org/x/net/html"
)

// MaxTitleLength is the short_description length of kb_knowledge
const MaxTitleLength = 160

// Formatter normalises article bodies and titles
type Formatter struct {
	strict   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewFormatter creates a formatter. Markdown bodies keep any inline HTML they
// carry.
func NewFormatter() *Formatter {
	return &Formatter{
		strict: bluemonday.StrictPolicy(),
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

// NormalizeBody returns the HTML body for a generated article. A body that
// already contains HTML elements is returned as is; anything else is
// rendered as Markdown.
func (f *Formatter) NormalizeBody(raw string) string {
	body := dropLanguageTag(strings.TrimSpace(raw))
	if body == "" || HasMarkup(body) {
		return body
	}

	var buf strings.Builder
	if err := f.markdown.Convert([]byte(body), &buf); err != nil {
		return body
	}
	return strings.TrimSpace(buf.String())
}

// CleanTitle strips markup and double quotes from a generated title, keeps
// the first non-empty line and bounds its length
func (f *Formatter) CleanTitle(raw string) string {
	text := html.UnescapeString(f.strict.Sanitize(raw))
	text = strings.ReplaceAll(text, `"`, "")

	var title string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			title = line
			break
		}
	}
	title = strings.TrimLeft(title, "# ")
	title = strings.Join(strings.Fields(title), " ")

	if runes := []rune(title); len(runes) > MaxTitleLength {
		title = strings.TrimSpace(string(runes[:MaxTitleLength]))
	}
	return title
}

// Excerpt returns at most n characters of s
func Excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// HasMarkup reports whether content contains at least one known HTML
// element. Markdown autolinks such as <https://example.com> do not count.
func HasMarkup(content string) bool {
	z := xhtml.NewTokenizer(strings.NewReader(content))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			return false
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken, xhtml.EndTagToken:
			if z.Token().DataAtom != 0 {
				return true
			}
		}
	}
}

// dropLanguageTag removes the info string left behind when a ```html or
// ```markdown fence was stripped
func dropLanguageTag(s string) string {
	first, rest, _ := strings.Cut(s, "\n")
	switch strings.ToLower(strings.TrimSpace(first)) {
	case "html", "markdown", "md":
		return strings.TrimSpace(rest)
	}
	return s
}
