// Package content implements the two-stage extraction pipeline: a
// mechanical cleaner that always succeeds, and an optional AI-assisted
// extractor gated by a relevance classification.
package content

import (
	"bytes"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/deadonfilm/enrich/internal/model"
)

// Clean strips markup and locates title, byline, publish date, and
// publication via meta-tag and structural heuristics. It never fails;
// unparseable input yields an empty CleanedContent.
func Clean(input []byte) model.CleanedContent {
	node, err := html.Parse(bytes.NewReader(input))
	if err != nil || node == nil {
		return model.CleanedContent{OriginalBytes: len(input)}
	}

	meta := collectMeta(node)

	out := model.CleanedContent{
		Title:         firstNonEmpty(meta["og:title"], findTitle(node)),
		Publication:   firstNonEmpty(meta["og:site_name"], meta["publisher"]),
		Author:        firstNonEmpty(meta["author"], meta["article:author"]),
		OriginalBytes: len(input),
	}

	if raw := firstNonEmpty(meta["article:published_time"], meta["date"], meta["publishdate"]); raw != "" {
		if ts := parsePublishDate(raw); ts != nil {
			out.PublishDate = ts
		}
	}

	// Prefer semantic content roots over the whole body.
	content := findFirst(node, "main")
	if content == nil {
		content = findFirst(node, "article")
	}
	if content == nil {
		content = findFirst(node, "body")
	}

	var b strings.Builder
	if content != nil {
		collectText(&b, content)
	}
	out.Text = normalizeWhitespace(b.String())
	return out
}

// collectMeta gathers <meta> name/property → content pairs, lowercased keys.
func collectMeta(n *html.Node) map[string]string {
	meta := make(map[string]string)
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, "meta") {
			var key, val string
			for _, attr := range cur.Attr {
				switch strings.ToLower(attr.Key) {
				case "name", "property":
					key = strings.ToLower(attr.Val)
				case "content":
					val = attr.Val
				}
			}
			if key != "" && val != "" {
				if _, seen := meta[key]; !seen {
					meta[key] = strings.TrimSpace(val)
				}
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
		}
	}
	dfs(n)
	return meta
}

var publishDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

func parsePublishDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range publishDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts
		}
	}
	return nil
}

func findTitle(n *html.Node) string {
	head := findFirst(n, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(t.FirstChild.Data)
}

func findFirst(n *html.Node, tag string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			res = cur
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}

func collectText(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		name := strings.ToLower(n.Data)
		switch name {
		case "script", "style", "noscript", "nav", "footer", "aside", "iframe", "form":
			return
		case "br", "hr":
			b.WriteString("\n")
		case "p", "h1", "h2", "h3", "h4", "h5", "h6", "li", "ul", "ol":
			b.WriteString("\n")
		}
	}

	if n.Type == html.TextNode {
		data := strings.ReplaceAll(n.Data, "\t", " ")
		data = strings.ReplaceAll(data, "\r", " ")
		b.WriteString(data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}

	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n\n")
		case "li":
			b.WriteString("\n")
		}
	}
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if len(out) > 0 && out[len(out)-1] == "" {
				continue
			}
			out = append(out, "")
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
