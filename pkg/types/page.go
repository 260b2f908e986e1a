package types

import (
	"context"
	"errors"
	"time"
)

// ErrNoMatch is returned when a selector matches nothing inside an element.
var ErrNoMatch = errors.New("no element matches selector")

// Page is a loaded document that can be queried for elements.
type Page interface {
	// URL returns the address of the loaded document.
	URL() string
	// QueryAll returns every element matching selector, waiting at most wait
	// for at least one to appear.
	QueryAll(ctx context.Context, selector string, wait time.Duration) ([]Element, error)
}

// Element is a node of a loaded document.
type Element interface {
	ScrollIntoView(ctx context.Context) error
	// Find returns the first descendant matching selector or ErrNoMatch.
	Find(ctx context.Context, selector string) (Element, error)
	// FindAll returns all descendants matching selector; no match is not an error.
	FindAll(ctx context.Context, selector string) ([]Element, error)
	Text(ctx context.Context) (string, error)
	Attr(ctx context.Context, name string) (string, bool, error)
}

// SessionStatus is reported to a remote browser grid before the session ends.
type SessionStatus struct {
	Passed bool
	Reason string
}
