package chromium

import (
	"agent-browser/engine"
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
	"go.uber.org/zap"
)

// Page is one Chrome tab attached through chromedp.
type Page struct {
	owner  *Context
	id     target.ID
	ctx    context.Context
	cancel context.CancelFunc
}

var _ engine.Page = (*Page)(nil)

func newPage(owner *Context, id target.ID, ctx context.Context, cancel context.CancelFunc) *Page {
	return &Page{owner: owner, id: id, ctx: ctx, cancel: cancel}
}

func (p *Page) ID() string { return string(p.id) }

// Goto navigates and waits for the load event. Navigation errors are
// returned as reported by Chrome.
func (p *Page) Goto(ctx context.Context, url string) error {
	return run(ctx, p.ctx, chromedp.Navigate(url))
}

func (p *Page) URL(ctx context.Context) (string, error) {
	var url string
	if err := run(ctx, p.ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	if err := run(ctx, p.ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Content returns the serialized document.
func (p *Page) Content(ctx context.Context) (string, error) {
	var html string
	err := p.Evaluate(ctx, `(() => {
		const doctype = document.doctype ? new XMLSerializer().serializeToString(document.doctype) : '';
		const root = document.documentElement ? document.documentElement.outerHTML : '';
		return doctype + root;
	})()`, &html)
	if err != nil {
		return "", err
	}
	return html, nil
}

func (p *Page) Evaluate(ctx context.Context, expression string, res any) error {
	return run(ctx, p.ctx, chromedp.Evaluate(expression, res, awaitPromise))
}

func awaitPromise(params *runtime.EvaluateParams) *runtime.EvaluateParams {
	return params.WithAwaitPromise(true)
}

func (p *Page) Locator(selector string) engine.Locator {
	return &Locator{page: p, selector: selector}
}

func (p *Page) MainFrame(ctx context.Context) (*engine.Frame, error) {
	var frame *engine.Frame
	err := run(ctx, p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		if tree == nil || tree.Frame == nil {
			return errors.New("page has no main frame")
		}
		frame = tree.Frame
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return frame, nil
}

type emulatedDevice device.Info

func (d emulatedDevice) Device() device.Info { return device.Info(d) }

func (p *Page) Emulate(ctx context.Context, dev engine.Device) error {
	return run(ctx, p.ctx, chromedp.Emulate(emulatedDevice(dev)))
}

// OnDialog calls handler for every JavaScript dialog; its return value
// accepts or dismisses the dialog.
func (p *Page) OnDialog(handler func(*engine.Dialog) bool) {
	chromedp.ListenTarget(p.ctx, func(ev interface{}) {
		dialog, ok := ev.(*page.EventJavascriptDialogOpening)
		if !ok {
			return
		}
		go func() {
			accept := handler(dialog)
			if err := chromedp.Run(p.ctx, page.HandleJavaScriptDialog(accept)); err != nil {
				p.owner.logger.Warn("Failed to handle dialog", zap.String("page", p.ID()), zap.Error(err))
			}
		}()
	})
}

// OnRequest observes outgoing requests. It does not intercept them.
func (p *Page) OnRequest(handler func(*engine.Request)) {
	chromedp.ListenTarget(p.ctx, func(ev interface{}) {
		if sent, ok := ev.(*network.EventRequestWillBeSent); ok && sent.Request != nil {
			handler(sent.Request)
		}
	})
	go func() {
		if err := chromedp.Run(p.ctx, network.Enable()); err != nil {
			p.owner.logger.Warn("Failed to enable network events", zap.String("page", p.ID()), zap.Error(err))
		}
	}()
}

// Session exposes the tab's DevTools session for raw protocol commands.
func (p *Page) Session() engine.Session {
	if c := chromedp.FromContext(p.ctx); c != nil && c.Target != nil {
		return c.Target
	}
	return nil
}

func (p *Page) Close() error {
	p.owner.remove(p)
	if err := p.closeTab(); err != nil {
		return fmt.Errorf("failed to close page %s: %w", p.id, err)
	}
	return nil
}

func (p *Page) closeTab() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	err := run(ctx, p.ctx, page.Close())
	p.cancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Locator resolves its selector lazily on each call.
type Locator struct {
	page     *Page
	selector string
}

var _ engine.Locator = (*Locator)(nil)

func (l *Locator) Selector() string { return l.selector }

func (l *Locator) Text(ctx context.Context) (string, error) {
	var text string
	if err := run(ctx, l.page.ctx, chromedp.Text(l.selector, &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

func (l *Locator) Click(ctx context.Context) error {
	return run(ctx, l.page.ctx, chromedp.Click(l.selector, chromedp.ByQuery))
}

func (l *Locator) WaitVisible(ctx context.Context) error {
	return run(ctx, l.page.ctx, chromedp.WaitVisible(l.selector, chromedp.ByQuery))
}
