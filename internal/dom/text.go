package dom

import (
	"strings"

	"golang.org/x/net/html"
)

var blockLevelTags = map[string]struct{}{
	"address": {}, "article": {}, "aside": {}, "blockquote": {}, "dd": {}, "div": {},
	"dl": {}, "dt": {}, "figcaption": {}, "figure": {}, "footer": {}, "form": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {}, "header": {},
	"hr": {}, "li": {}, "main": {}, "nav": {}, "ol": {}, "p": {}, "pre": {},
	"section": {}, "table": {}, "tr": {}, "ul": {},
}

var hiddenTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {}, "head": {},
}

// textAccumulator collects rendered text, collapsing runs of whitespace the
// way a browser lays out inline content.
type textAccumulator struct {
	builder      strings.Builder
	pendingSpace bool
	lastWasNL    bool
}

func newTextAccumulator() *textAccumulator {
	return &textAccumulator{lastWasNL: true}
}

func (t *textAccumulator) String() string {
	lines := strings.Split(t.builder.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func (t *textAccumulator) appendText(raw string) {
	if raw == "" {
		return
	}
	if isCollapsible(raw[0]) {
		t.pendingSpace = true
	}
	words := strings.Fields(raw)
	if len(words) == 0 {
		return
	}
	if t.pendingSpace && !t.lastWasNL {
		t.builder.WriteByte(' ')
	}
	t.builder.WriteString(strings.Join(words, " "))
	t.pendingSpace = isCollapsible(raw[len(raw)-1])
	t.lastWasNL = false
}

func (t *textAccumulator) ensureNewline() {
	t.pendingSpace = false
	if t.lastWasNL {
		return
	}
	t.builder.WriteByte('\n')
	t.lastWasNL = true
}

func isCollapsible(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

func accumulateVisibleText(node *html.Node, acc *textAccumulator) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		acc.appendText(node.Data)
	case html.ElementNode, html.DocumentNode:
		tag := strings.ToLower(node.Data)
		if _, hidden := hiddenTags[tag]; hidden {
			return
		}
		if hasAttr(node, "hidden") {
			return
		}
		if tag == "br" {
			acc.ensureNewline()
			return
		}
		_, block := blockLevelTags[tag]
		if block {
			acc.ensureNewline()
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			accumulateVisibleText(child, acc)
		}
		switch tag {
		case "td", "th":
			acc.pendingSpace = true
		default:
			if block {
				acc.ensureNewline()
			}
		}
	}
}

// VisibleText renders the text a reader would see for the given nodes.
func VisibleText(nodes ...*html.Node) string {
	acc := newTextAccumulator()
	for _, n := range nodes {
		accumulateVisibleText(n, acc)
	}
	return acc.String()
}

func hasAttr(node *html.Node, attr string) bool {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, attr) {
			return true
		}
	}
	return false
}
