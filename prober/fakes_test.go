package prober

import (
	"agent-browser/engine"
	"context"
	"errors"
	"strings"
	"sync"
)

// fakeLauncher serves pages whose signals depend on the URL: hosts containing
// "leak" report webdriver, hosts containing "down" fail to load.
type fakeLauncher struct {
	launchErr error
}

func (l *fakeLauncher) Launch(context.Context, engine.LaunchOptions) (engine.Browser, error) {
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	return &fakeBrowser{}, nil
}

func (l *fakeLauncher) Supports(engine.Option) bool { return true }

type fakeBrowser struct{}

func (b *fakeBrowser) NewContext(context.Context) (engine.Context, error) { return &fakeContext{}, nil }
func (b *fakeBrowser) Contexts() []engine.Context                         { return nil }
func (b *fakeBrowser) Close() error                                       { return nil }

type fakeContext struct {
	mu      sync.Mutex
	scripts []string
}

func (c *fakeContext) ID() string { return "fake" }

func (c *fakeContext) AddInitScript(_ context.Context, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts = append(c.scripts, source)
	return nil
}

func (c *fakeContext) InitScripts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.scripts...)
}

func (c *fakeContext) NewPage(context.Context) (engine.Page, error) {
	return &fakePage{url: "about:blank"}, nil
}

func (c *fakeContext) Pages() []engine.Page { return nil }
func (c *fakeContext) Close() error         { return nil }

type fakePage struct {
	url string
}

func (p *fakePage) ID() string { return "page" }

func (p *fakePage) Goto(_ context.Context, url string) error {
	if strings.Contains(url, "down") {
		return errors.New("net::ERR_CONNECTION_REFUSED")
	}
	p.url = url
	return nil
}

func (p *fakePage) URL(context.Context) (string, error)   { return p.url, nil }
func (p *fakePage) Title(context.Context) (string, error) { return "  " + p.url + "  ", nil }
func (p *fakePage) Content(context.Context) (string, error) {
	return "<html></html>", nil
}

func (p *fakePage) Evaluate(_ context.Context, _ string, res any) error {
	sig, ok := res.(*signals)
	if !ok {
		return errors.New("unexpected result type")
	}
	*sig = signals{
		Webdriver:     strings.Contains(p.url, "leak"),
		HasChrome:     true,
		PluginCount:   3,
		Languages:     []string{"en-US", "en"},
		Notifications: "prompt",
		WebGLVendor:   "Intel Inc.",
		WebGLRenderer: "Intel Iris OpenGL Engine",
	}
	return nil
}

func (p *fakePage) Locator(string) engine.Locator                    { return nil }
func (p *fakePage) MainFrame(context.Context) (*engine.Frame, error) { return nil, nil }
func (p *fakePage) Emulate(context.Context, engine.Device) error     { return nil }
func (p *fakePage) OnDialog(func(*engine.Dialog) bool)               {}
func (p *fakePage) OnRequest(func(*engine.Request))                  {}
func (p *fakePage) Session() engine.Session                          { return nil }
func (p *fakePage) Close() error                                     { return nil }
