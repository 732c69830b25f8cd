// Package chromium drives Chrome through chromedp and implements the engine
// interfaces.
package chromium

import (
	"agent-browser/engine"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Config carries engine settings that are not part of engine.LaunchOptions.
type Config struct {
	ExecPath     string
	WindowWidth  int
	WindowHeight int
	// UserAgents is rotated per launch when LaunchOptions.UserAgent is empty.
	UserAgents []string
}

func DefaultConfig() Config {
	return Config{
		WindowWidth:  1920,
		WindowHeight: 1080,
		UserAgents:   DefaultUserAgents(),
	}
}

// DefaultUserAgents returns a fresh copy of the desktop Chrome user agents
// rotated when nothing else is configured.
func DefaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	}
}

// Launcher starts Chrome processes through chromedp's exec allocator.
type Launcher struct {
	cfg    Config
	logger *zap.Logger
}

var _ engine.Launcher = (*Launcher)(nil)

func NewLauncher(cfg Config, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{cfg: cfg, logger: logger.Named("chromium")}
}

// Supports reports true for every launch option: each one maps onto a
// Chrome command line switch.
func (l *Launcher) Supports(opt engine.Option) bool {
	switch opt {
	case engine.OptionHeadless, engine.OptionUserAgent, engine.OptionProxy,
		engine.OptionArgs, engine.OptionAllowFileAccess:
		return true
	}
	return false
}

// Launch starts Chrome and waits for the DevTools handshake. ctx bounds the
// handshake only; the browser lives until Browser.Close.
func (l *Launcher) Launch(ctx context.Context, opts engine.LaunchOptions) (engine.Browser, error) {
	if err := opts.Validate(l); err != nil {
		return nil, err
	}

	l.logger.Info("Launching Chrome browser", zap.Bool("headless", opts.Headless))

	userDataDir, err := os.MkdirTemp("", "agent-browser-")
	if err != nil {
		return nil, &engine.LaunchError{Err: fmt.Errorf("failed to create profile directory: %w", err)}
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(
		context.WithoutCancel(ctx),
		append(l.allocatorOptions(opts), chromedp.UserDataDir(userDataDir))...,
	)
	sugar := l.logger.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	)

	if err := await(ctx, browserCtx); err != nil {
		browserCancel()
		allocCancel()
		os.RemoveAll(userDataDir)
		return nil, &engine.LaunchError{Err: err}
	}

	s, err := dialSupervisor(ctx, userDataDir, l.logger)
	if err != nil {
		browserCancel()
		allocCancel()
		os.RemoveAll(userDataDir)
		return nil, &engine.LaunchError{Err: err}
	}

	l.logger.Info("Browser ready")
	return newBrowser(browserCtx, browserCancel, allocCancel, s, userDataDir, l.logger), nil
}

func (l *Launcher) allocatorOptions(opts engine.LaunchOptions) []chromedp.ExecAllocatorOption {
	width, height := l.cfg.WindowWidth, l.cfg.WindowHeight
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(width, height),
	}

	if l.cfg.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(l.cfg.ExecPath))
	}

	if opts.Headless {
		allocOpts = append(allocOpts,
			chromedp.Flag("headless", "new"),
			chromedp.Flag("hide-scrollbars", true),
			chromedp.Flag("mute-audio", true),
		)
	}

	if ua := l.userAgent(opts); ua != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(ua))
	}

	if opts.Proxy != nil {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy.Server))
		if opts.Proxy.Bypass != "" {
			allocOpts = append(allocOpts, chromedp.Flag("proxy-bypass-list", opts.Proxy.Bypass))
		}
	}

	if opts.AllowFileAccess {
		allocOpts = append(allocOpts,
			chromedp.Flag("allow-file-access-from-files", true),
			chromedp.Flag("allow-file-access", true),
		)
	}

	for _, arg := range opts.Args {
		name, value, ok := parseArg(arg)
		if !ok {
			l.logger.Warn("Ignoring malformed browser argument", zap.String("arg", arg))
			continue
		}
		allocOpts = append(allocOpts, chromedp.Flag(name, value))
	}

	return allocOpts
}

func (l *Launcher) userAgent(opts engine.LaunchOptions) string {
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		return ua
	}
	if len(l.cfg.UserAgents) == 0 {
		return ""
	}
	return l.cfg.UserAgents[rand.Intn(len(l.cfg.UserAgents))]
}

// parseArg splits a Chrome switch such as "--lang=de-DE" or "--mute-audio"
// into the name/value pair chromedp.Flag expects.
func parseArg(arg string) (string, any, bool) {
	arg = strings.TrimSpace(arg)
	if !strings.HasPrefix(arg, "-") {
		return "", nil, false
	}
	arg = strings.TrimLeft(arg, "-")
	if arg == "" {
		return "", nil, false
	}

	name, value, hasValue := strings.Cut(arg, "=")
	if name == "" {
		return "", nil, false
	}
	if !hasValue {
		return name, true, true
	}
	return name, value, true
}
