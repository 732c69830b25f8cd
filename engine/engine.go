// Package engine is the single seam between agent-browser and the browser
// automation engine. Callers reference only the types declared here; the
// chromium subpackage provides the implementation.
package engine

import (
	"context"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
)

// Handle types re-exported from the engine's protocol bindings.
type (
	Frame   = cdp.Frame
	Dialog  = page.EventJavascriptDialogOpening
	Request = network.Request
	Route   = fetch.EventRequestPaused
	Session = cdp.Executor
)

// Launcher starts browser instances.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
	Supports(opt Option) bool
}

// Browser is a running engine instance.
type Browser interface {
	NewContext(ctx context.Context) (Context, error)
	Contexts() []Context
	Close() error
}

// Context is an isolated browsing environment. Scripts registered with
// AddInitScript run before any document script on every page of the context,
// including pages created or opened after registration.
type Context interface {
	ID() string
	AddInitScript(ctx context.Context, source string) error
	InitScripts() []string
	NewPage(ctx context.Context) (Page, error)
	Pages() []Page
	Close() error
}

// Page is a single tab inside a Context.
type Page interface {
	ID() string
	Goto(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	// Evaluate runs expression in the page and decodes the result into res.
	// Promises are awaited.
	Evaluate(ctx context.Context, expression string, res any) error
	Locator(selector string) Locator
	MainFrame(ctx context.Context) (*Frame, error)
	Emulate(ctx context.Context, device Device) error
	OnDialog(handler func(*Dialog) bool)
	OnRequest(handler func(*Request))
	Session() Session
	Close() error
}

// Locator addresses the first element matching a CSS selector.
type Locator interface {
	Selector() string
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	WaitVisible(ctx context.Context) error
}
