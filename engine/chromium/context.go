package chromium

import (
	"agent-browser/engine"
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Context is a Chrome browser context. It remembers every init script so that
// pages created or opened later receive them before their first document.
type Context struct {
	browser    *Browser
	supervisor *supervisor
	id         cdp.BrowserContextID
	logger     *zap.Logger

	// regMu orders script registration against page preparation, so every
	// prepared page sees each script exactly once.
	regMu sync.Mutex

	mu      sync.RWMutex
	scripts []string
	targets map[target.ID]*registration
	pages   []*Page
	closed  bool
}

// registration is a prepared page session and the scripts installed on it.
type registration struct {
	session target.SessionID
	scripts []page.ScriptIdentifier
}

var _ engine.Context = (*Context)(nil)

func newContext(b *Browser, s *supervisor, id cdp.BrowserContextID, logger *zap.Logger) *Context {
	return &Context{
		browser:    b,
		supervisor: s,
		id:         id,
		logger:     logger.With(zap.String("context", string(id))),
		targets:    make(map[target.ID]*registration),
	}
}

func (c *Context) ID() string { return string(c.id) }

// AddInitScript registers source for all future documents of every page in
// the context. It returns once every prepared page acknowledged it. When one
// page rejects the script it is removed from the others again and the
// context keeps its previous script list.
func (c *Context) AddInitScript(ctx context.Context, source string) error {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return errContextClosed
	}
	targets := make(map[target.ID]*registration, len(c.targets))
	for id, reg := range c.targets {
		targets[id] = reg
	}
	c.mu.RUnlock()

	added := make(map[target.ID]page.ScriptIdentifier, len(targets))
	for id, reg := range targets {
		script, err := c.supervisor.addScript(ctx, reg.session, source)
		if err != nil {
			c.rollback(targets, added)
			return fmt.Errorf("failed to register init script on page %s: %w", id, err)
		}
		added[id] = script
	}

	c.mu.Lock()
	c.scripts = append(c.scripts, source)
	for id, script := range added {
		if reg, ok := c.targets[id]; ok {
			reg.scripts = append(reg.scripts, script)
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *Context) rollback(targets map[target.ID]*registration, added map[target.ID]page.ScriptIdentifier) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	for id, script := range added {
		if err := c.supervisor.removeScript(ctx, targets[id].session, script); err != nil {
			c.logger.Warn("Could not remove init script", zap.String("page", string(id)), zap.Error(err))
		}
	}
}

func (c *Context) InitScripts() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.scripts...)
}

// prepare installs the registered scripts on the paused session of a new
// page target.
func (c *Context) prepare(ctx context.Context, id target.ID, session target.SessionID) error {
	c.regMu.Lock()
	defer c.regMu.Unlock()

	if c.isClosed() {
		return errContextClosed
	}

	if err := c.supervisor.call(ctx, session, cdproto.CommandPageEnable, page.Enable(), nil); err != nil {
		return fmt.Errorf("failed to enable page domain: %w", err)
	}

	reg := &registration{session: session}
	for _, source := range c.scripts {
		script, err := c.supervisor.addScript(ctx, session, source)
		if err != nil {
			return fmt.Errorf("failed to register init script: %w", err)
		}
		reg.scripts = append(reg.scripts, script)
	}

	c.mu.Lock()
	c.targets[id] = reg
	c.mu.Unlock()
	return nil
}

// NewPage opens an about:blank tab in the context. The tab has every
// registered init script before NewPage returns.
func (c *Context) NewPage(ctx context.Context) (engine.Page, error) {
	if c.isClosed() {
		return nil, errContextClosed
	}

	id, err := c.supervisor.createTarget(ctx, c.id)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if err := c.supervisor.waitReady(ctx, id); err != nil {
		c.discard(id)
		return nil, fmt.Errorf("failed to prepare page %s: %w", id, err)
	}

	p, err := c.attach(ctx, id)
	if err != nil {
		c.discard(id)
		return nil, err
	}
	return p, nil
}

func (c *Context) Pages() []engine.Page {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]engine.Page, 0, len(c.pages))
	for _, p := range c.pages {
		out = append(out, p)
	}
	return out
}

// Close closes every page and disposes the browser context.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	pages := c.pages
	c.pages = nil
	c.targets = make(map[target.ID]*registration)
	c.mu.Unlock()

	c.supervisor.unregister(c)
	for _, p := range pages {
		p.closeTab()
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	defer c.browser.forget(c)
	if err := target.DisposeBrowserContext(c.id).Do(c.browser.executor(ctx)); err != nil {
		return fmt.Errorf("failed to dispose browser context %s: %w", c.id, err)
	}
	return nil
}

func (c *Context) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// attach connects chromedp to a prepared target.
func (c *Context) attach(ctx context.Context, id target.ID) (*Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(c.browser.ctx, chromedp.WithTargetID(id))
	if err := await(ctx, tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to attach to page %s: %w", id, err)
	}

	p := newPage(c, id, tabCtx, tabCancel)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		p.closeTab()
		return nil, errContextClosed
	}
	c.pages = append(c.pages, p)
	c.mu.Unlock()

	c.logger.Debug("Page attached", zap.String("page", string(id)))
	return p, nil
}

// discard closes a target that never became a usable page.
func (c *Context) discard(id target.ID) {
	c.forgetTarget(id)

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := c.supervisor.closeTarget(ctx, id); err != nil {
		c.logger.Warn("Could not close page", zap.String("page", string(id)), zap.Error(err))
	}
}

// adopt takes over a popup opened by one of the context's pages. The popup
// already carries the init scripts and was resumed by the supervisor.
func (c *Context) adopt(id target.ID) {
	ctx, cancel := context.WithTimeout(c.browser.ctx, adoptTimeout)
	defer cancel()

	if _, err := c.attach(ctx, id); err != nil {
		c.logger.Warn("Could not adopt popup", zap.String("page", string(id)), zap.Error(err))
		c.discard(id)
	}
}

func (c *Context) remove(p *Page) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.targets, p.id)
	for i, existing := range c.pages {
		if existing == p {
			c.pages = append(c.pages[:i], c.pages[i+1:]...)
			return
		}
	}
}

func (c *Context) forgetTarget(id target.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.targets, id)
}
