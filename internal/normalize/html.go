package normalize

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	tagRegex       = regexp.MustCompile(`(?s)<.*?>`)
	excessNewlines = regexp.MustCompile(`\n{3,}`)
)

// HTMLToMarkdown turns a vendor HTML snippet into lightweight markdown.
// Only strong/b, li, br and p are rewritten; every other tag is dropped
// and its text kept. It is not a full HTML renderer.
func HTMLToMarkdown(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	unescaped := html.UnescapeString(text)

	var b strings.Builder
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(unescaped))
	if err != nil {
		b.WriteString(tagRegex.ReplaceAllString(unescaped, ""))
	} else {
		writeMarkdown(&b, doc.Find("body").Contents())
	}

	out := excessNewlines.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out)
}

func writeMarkdown(b *strings.Builder, sel *goquery.Selection) {
	sel.Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "#text":
			b.WriteString(s.Text())
		case "#comment", "script", "style":
		case "strong", "b":
			b.WriteString("**")
			writeMarkdown(b, s.Contents())
			b.WriteString("**")
		case "li":
			b.WriteString("- ")
			writeMarkdown(b, s.Contents())
			b.WriteString("\n")
		case "br":
			b.WriteString("\n")
		case "p":
			writeMarkdown(b, s.Contents())
			b.WriteString("\n\n")
		default:
			writeMarkdown(b, s.Contents())
		}
	})
}
