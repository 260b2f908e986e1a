// Package dom exposes a parsed HTML document through the types.Page interface.
package dom

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"elpais-crawler/pkg/types"
)

// Document is a static, already-loaded page backed by goquery.
type Document struct {
	doc *goquery.Document
	url string
}

var _ types.Page = (*Document)(nil)

// Parse reads an HTML document fetched from pageURL.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc, url: pageURL}, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(markup, pageURL string) (*Document, error) {
	return Parse(strings.NewReader(markup), pageURL)
}

func (d *Document) URL() string { return d.url }

// Lang returns the html element's lang attribute.
func (d *Document) Lang() string {
	lang, _ := d.doc.Find("html").First().Attr("lang")
	return strings.TrimSpace(lang)
}

// Title returns the document title.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// Links returns the anchors of the document as (href, visible text) pairs.
func (d *Document) Links(selector string) []Link {
	if selector == "" {
		selector = "a[href]"
	}
	var links []Link
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		links = append(links, Link{Href: strings.TrimSpace(href), Text: VisibleText(s.Nodes...)})
	})
	return links
}

// Link is an anchor found in a document.
type Link struct {
	Href string
	Text string
}

// QueryAll returns every match of selector. Static documents never change, so
// wait is ignored and an empty result is returned immediately.
func (d *Document) QueryAll(ctx context.Context, selector string, _ time.Duration) ([]types.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := compile(d.doc.Selection, selector)
	if err != nil {
		return nil, err
	}
	return wrap(sel), nil
}

// Element is a single node of a Document.
type Element struct {
	sel *goquery.Selection
}

var _ types.Element = (*Element)(nil)

// ScrollIntoView is a no-op for static documents.
func (e *Element) ScrollIntoView(ctx context.Context) error {
	return ctx.Err()
}

func (e *Element) Find(ctx context.Context, selector string) (types.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := compile(e.sel, selector)
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%q: %w", selector, types.ErrNoMatch)
	}
	return &Element{sel: sel.First()}, nil
}

func (e *Element) FindAll(ctx context.Context, selector string) ([]types.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := compile(e.sel, selector)
	if err != nil {
		return nil, err
	}
	return wrap(sel), nil
}

// Text returns the visible text of the element.
func (e *Element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return VisibleText(e.sel.Nodes...), nil
}

func (e *Element) Attr(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// compile parses selector up front so that a malformed locator surfaces as
// an error instead of an empty match.
func compile(root *goquery.Selection, selector string) (*goquery.Selection, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, fmt.Errorf("empty selector")
	}
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return root.FindMatcher(matcher), nil
}

func wrap(sel *goquery.Selection) []types.Element {
	out := make([]types.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{sel: s})
	})
	return out
}
