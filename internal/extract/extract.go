package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/hyperifyio/gopricecmp/internal/pricing"
)

// AIAssist is the external extraction collaborator, invoked only when the
// deterministic tiers come up short. Implementations must cap their output
// and tolerate being skipped entirely.
type AIAssist interface {
	Extract(ctx context.Context, payload, sourceURL, query string) ([]pricing.Candidate, error)
}

// Extractor turns a raw payload into price candidates using tiers in
// decreasing trust order: structured markup, regex patterns, then the
// optional AI collaborator. It escalates to the next tier only while the
// accumulated usable-candidate count is below MinCandidates.
type Extractor struct {
	// MinCandidates is the escalation threshold. Zero means 3.
	MinCandidates int
	// MaxAIChars bounds the payload prefix sent to the AI tier. Zero means 15000.
	MaxAIChars int
	// AI is the optional last tier. Nil disables it.
	AI AIAssist
}

// Extract never fails: parse errors degrade to fewer candidates. Given
// identical payload and context it returns an identical candidate list.
func (e *Extractor) Extract(ctx context.Context, body []byte, sourceID, sourceURL, query string) []pricing.Candidate {
	minWanted := e.MinCandidates
	if minWanted <= 0 {
		minWanted = 3
	}

	out := fromStructured(body, sourceID, sourceURL)

	if usable(out) < minWanted {
		title, text := visibleText(body)
		out = append(out, matchPatterns(text, title, sourceID, sourceURL)...)
	}

	if usable(out) < minWanted && e.AI != nil {
		limit := e.MaxAIChars
		if limit <= 0 {
			limit = 15000
		}
		prefix := truncate(string(body), limit)
		aiCands, err := e.AI.Extract(ctx, prefix, sourceURL, query)
		if err == nil {
			for i := range aiCands {
				if aiCands[i].SourceID == "" {
					aiCands[i].SourceID = sourceID
				}
			}
			out = append(out, aiCands...)
		}
	}
	return out
}

// ExtractText runs only the pattern tier over plain text, for sources whose
// payloads are snippets rather than full pages.
func (e *Extractor) ExtractText(text, name, sourceID, link string) []pricing.Candidate {
	return matchPatterns(text, name, sourceID, link)
}

func usable(cands []pricing.Candidate) int {
	n := 0
	for _, c := range cands {
		if strings.TrimSpace(c.RawPriceText) != "" {
			n++
		}
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back off to a rune boundary so a multi-byte currency symbol is never
	// split into invalid UTF-8.
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// visibleText renders the page to plain text for pattern matching, keeping
// block separation and skipping script, style and navigation boilerplate.
// Returns the document title alongside.
func visibleText(body []byte) (title, text string) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil || root == nil {
		return "", string(body)
	}
	title = strings.TrimSpace(findTitle(root))

	content := findFirst(root, "body")
	if content == nil {
		content = root
	}
	var b strings.Builder
	collectText(&b, content)
	return title, collapseBlank(b.String())
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
	return t.FirstChild.Data
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
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "nav", "footer", "iframe":
			return
		case "br", "p", "li", "div", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
			b.WriteString("\n")
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(strings.ReplaceAll(n.Data, "\t", " "))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}

func collapseBlank(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
