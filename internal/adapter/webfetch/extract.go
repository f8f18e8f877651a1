package webfetch

import (
	"strings"

	"golang.org/x/net/html"
)

// skipElements never contribute readable text.
var skipElements = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"iframe":   {},
	"svg":      {},
	"nav":      {},
	"header":   {},
	"footer":   {},
	"aside":    {},
	"form":     {},
}

// ExtractReadable parses an HTML document and returns its title and the
// paragraph-level text joined with newlines. Content inside article or
// main regions is preferred; the whole document is used only when neither
// is present.
func ExtractReadable(content string) (title, text string, err error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", "", err
	}

	title = findTitle(doc)

	regions := findRegions(doc, "article", "main")
	if len(regions) == 0 {
		regions = []*html.Node{doc}
	}

	var paragraphs []string
	for _, region := range regions {
		collectParagraphs(region, &paragraphs)
	}

	return title, strings.Join(paragraphs, "\n"), nil
}

func findTitle(doc *html.Node) string {
	var title string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(nodeText(n))
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)
	return title
}

// findRegions returns every node matching one of the given element names.
func findRegions(doc *html.Node, names ...string) []*html.Node {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}

	var regions []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, ok := wanted[n.Data]; ok {
				regions = append(regions, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return regions
}

// collectParagraphs gathers trimmed <p> text, skipping chrome elements.
func collectParagraphs(n *html.Node, out *[]string) {
	if n.Type == html.ElementNode {
		if _, skip := skipElements[n.Data]; skip {
			return
		}
		if n.Data == "p" {
			if txt := strings.TrimSpace(nodeText(n)); txt != "" {
				*out = append(*out, txt)
			}
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectParagraphs(c, out)
	}
}

// nodeText concatenates all text nodes under n, skipping chrome elements.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if _, skip := skipElements[n.Data]; skip {
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Window slices text into overlapping windows. Sizes are counted in
// characters, not bytes, so multibyte text is never split mid-rune.
// Windows shorter than minChars are discarded.
func Window(text string, windowChars, overlapChars, minChars int) []string {
	if windowChars <= 0 || text == "" {
		return nil
	}
	if overlapChars >= windowChars {
		overlapChars = windowChars / 4
	}

	runes := []rune(text)
	var windows []string
	start := 0
	for start < len(runes) {
		end := start + windowChars
		if end > len(runes) {
			end = len(runes)
		}
		if end-start >= minChars {
			windows = append(windows, string(runes[start:end]))
		}
		if end == len(runes) {
			break
		}
		start = end - overlapChars
	}
	return windows
}
