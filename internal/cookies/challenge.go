package cookies

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DetectChallenge reports whether body is an HTML page or a block notice
// where JSON was expected. The search API answers blocked clients with
// status 200 and such a page.
func DetectChallenge(body []byte) bool {
	lower := bytes.ToLower(body)
	return bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("blocked"))
}

// PageTitle returns the trimmed <title> of an HTML document, or "" when
// body has none.
func PageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
