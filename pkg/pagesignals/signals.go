// Package pagesignals extracts simple content-quality heuristics from HTML.
package pagesignals

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// ThinContentWords is the word count below which a page counts as thin.
	ThinContentWords = 200

	// Risk points added per signal.
	ThinContentRisk = 20
	LoremIpsumRisk  = 30
	NoHTTPSRisk     = 25
)

// loremMarkers are filler phrases left behind by unfinished templates.
var loremMarkers = []string{"lorem ipsum", "dolor sit amet"} //nolint: gochecknoglobals

// Signals describes the visible text of a page.
type Signals struct {
	WordCount   int
	ThinContent bool
	LoremIpsum  bool
}

// Risk returns the risk points contributed by the content signals.
func (s Signals) Risk() int {
	risk := 0
	if s.ThinContent {
		risk += ThinContentRisk
	}
	if s.LoremIpsum {
		risk += LoremIpsumRisk
	}

	return risk
}

// Text returns the lower-cased visible text of body with script, style and
// noscript content removed and whitespace collapsed. Text nodes are joined
// with a space so adjacent block elements do not merge words. Unparseable
// input yields "".
func Text(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	return strings.ToLower(strings.Join(strings.Fields(strings.Join(parts, " ")), " "))
}

// Extract computes Signals for body.
func Extract(body []byte) Signals {
	text := Text(body)
	words := len(strings.Fields(text))

	lorem := false
	for _, m := range loremMarkers {
		if strings.Contains(text, m) {
			lorem = true

			break
		}
	}

	return Signals{
		WordCount:   words,
		ThinContent: words < ThinContentWords,
		LoremIpsum:  lorem,
	}
}
