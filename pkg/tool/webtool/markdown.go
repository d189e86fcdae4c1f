// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webtool

import (
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// noisySelectors are stripped from the document before rendering, on top of
// whatever go-readability already discarded - ad containers and layout
// chrome that sometimes survive inside an article's own markup.
var noisySelectors = []string{
	"script", "style", "nav", "footer", "header", "aside",
	"[class*='advert']", "[class*='cookie']", "[id*='advert']",
}

// cleanHTML parses rawHTML and removes noisySelectors before any further
// conversion, so the markdown/text/heading walks never see them.
func cleanHTML(rawHTML string) (*html.Node, error) {
	doc, err := dom.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	for _, sel := range noisySelectors {
		matcher, err := cascadia.Compile(sel)
		if err != nil {
			continue
		}
		for _, n := range matcher.MatchAll(doc) {
			dom.RemoveNode(n)
		}
	}
	return doc, nil
}

// htmlToMarkdown walks a cleaned HTML document and renders a markdown
// approximation, collecting the text of every heading it encounters along
// the way. goldmark itself only renders markdown to HTML, so this inverse
// walk is hand-rolled over the DOM rather than a library call.
func htmlToMarkdown(rawHTML string) (string, []string) {
	doc, err := cleanHTML(rawHTML)
	if err != nil {
		return "", nil
	}

	var b strings.Builder
	var headings []string
	renderNode(&b, &headings, doc, 0)

	out := collapseBlankLines(b.String())
	return strings.TrimSpace(out), headings
}

func renderNode(b *strings.Builder, headings *[]string, n *html.Node, listDepth int) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			b.WriteString(text)
			b.WriteString(" ")
		}
		return
	}
	if n.Type != html.ElementNode {
		renderChildren(b, headings, n, listDepth)
		return
	}

	switch n.Data {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		level := int(n.Data[1] - '0')
		text := strings.TrimSpace(dom.TextContent(n))
		if text != "" {
			*headings = append(*headings, text)
			b.WriteString("\n" + strings.Repeat("#", level) + " " + text + "\n\n")
		}
	case "p", "div":
		renderChildren(b, headings, n, listDepth)
		b.WriteString("\n\n")
	case "br":
		b.WriteString("\n")
	case "strong", "b":
		b.WriteString("**")
		renderChildren(b, headings, n, listDepth)
		b.WriteString("**")
	case "em", "i":
		b.WriteString("*")
		renderChildren(b, headings, n, listDepth)
		b.WriteString("*")
	case "code":
		b.WriteString("`")
		renderChildren(b, headings, n, listDepth)
		b.WriteString("`")
	case "pre":
		b.WriteString("\n```\n")
		b.WriteString(dom.TextContent(n))
		b.WriteString("\n```\n\n")
	case "a":
		href := dom.Attr(n, "href")
		text := strings.TrimSpace(dom.TextContent(n))
		if href != "" && text != "" {
			b.WriteString("[" + text + "](" + href + ")")
		} else {
			renderChildren(b, headings, n, listDepth)
		}
		b.WriteString(" ")
	case "li":
		b.WriteString("\n" + strings.Repeat("  ", listDepth) + "- ")
		renderChildren(b, headings, n, listDepth+1)
	case "ul", "ol":
		renderChildren(b, headings, n, listDepth+1)
		b.WriteString("\n")
	case "img":
		alt := dom.Attr(n, "alt")
		src := dom.Attr(n, "src")
		if src != "" {
			b.WriteString("![" + alt + "](" + src + ") ")
		}
	case "script", "style", "noscript":
		// Skip entirely.
	default:
		renderChildren(b, headings, n, listDepth)
	}
}

func renderChildren(b *strings.Builder, headings *[]string, n *html.Node, listDepth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(b, headings, c, listDepth)
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
