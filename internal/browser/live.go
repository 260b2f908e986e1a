package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"elpais-crawler/pkg/types"
)

const elementTimeout = 10 * time.Second

// livePage queries the DOM of a running tab.
type livePage struct {
	session *ChromeSession
	url     string
}

func (p *livePage) URL() string { return p.url }

// QueryAll waits up to wait for selector to match. A timeout yields an
// empty result rather than an error.
func (p *livePage) QueryAll(ctx context.Context, selector string, wait time.Duration) ([]types.Element, error) {
	if wait <= 0 {
		wait = elementTimeout
	}
	var nodes []*cdp.Node
	err := p.session.run(ctx, wait, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll))
	if err != nil {
		if waitExpired(ctx, err) {
			return nil, nil
		}
		return nil, err
	}
	return p.session.wrap(nodes), nil
}

// waitExpired reports whether err is the element wait running out rather
// than the caller giving up.
func waitExpired(ctx context.Context, err error) bool {
	return ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded)
}

func (s *ChromeSession) wrap(nodes []*cdp.Node) []types.Element {
	out := make([]types.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &liveElement{session: s, node: n})
	}
	return out
}

// liveElement is a DOM node of a running tab.
type liveElement struct {
	session *ChromeSession
	node    *cdp.Node
}

func (e *liveElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *liveElement) ScrollIntoView(ctx context.Context) error {
	return e.session.run(ctx, elementTimeout, chromedp.ScrollIntoView(e.ids(), chromedp.ByNodeID))
}

func (e *liveElement) Find(ctx context.Context, selector string) (types.Element, error) {
	found, err := e.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%q: %w", selector, types.ErrNoMatch)
	}
	return found[0], nil
}

// FindAll queries descendants without waiting for them to appear.
func (e *liveElement) FindAll(ctx context.Context, selector string) ([]types.Element, error) {
	var nodes []*cdp.Node
	err := e.session.run(ctx, elementTimeout,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, err
	}
	return e.session.wrap(nodes), nil
}

// Text returns the rendered text of the element.
func (e *liveElement) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.session.run(ctx, elementTimeout, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *liveElement) Attr(ctx context.Context, name string) (string, bool, error) {
	var value string
	var ok bool
	err := e.session.run(ctx, elementTimeout, chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID))
	if err != nil {
		return "", false, err
	}
	return value, ok, nil
}
