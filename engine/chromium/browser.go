package chromium

import (
	"agent-browser/engine"
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	closeTimeout = 10 * time.Second
	adoptTimeout = 30 * time.Second
)

var (
	errBrowserClosed = errors.New("browser is closed")
	errContextClosed = errors.New("browser context is closed")
)

// Browser wraps one Chrome process.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	supervisor  *supervisor
	userDataDir string
	logger      *zap.Logger

	mu       sync.Mutex
	contexts []*Context
	closed   bool
}

var _ engine.Browser = (*Browser)(nil)

func newBrowser(
	ctx context.Context, cancel, allocCancel context.CancelFunc,
	s *supervisor, userDataDir string, logger *zap.Logger,
) *Browser {
	return &Browser{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		supervisor:  s,
		userDataDir: userDataDir,
		logger:      logger,
	}
}

// executor binds ctx to the browser-level DevTools session.
func (b *Browser) executor(ctx context.Context) context.Context {
	return cdp.WithExecutor(ctx, chromedp.FromContext(b.ctx).Browser)
}

// NewContext creates an isolated browser context. Pages opened in it, popups
// included, are prepared by the supervisor before they run.
func (b *Browser) NewContext(ctx context.Context) (engine.Context, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, errBrowserClosed
	}

	id, err := target.CreateBrowserContext().Do(b.executor(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	bc := newContext(b, b.supervisor, id, b.logger)
	b.supervisor.register(bc)

	b.mu.Lock()
	b.contexts = append(b.contexts, bc)
	b.mu.Unlock()

	b.logger.Debug("Browser context created", zap.String("context", string(id)))
	return bc, nil
}

func (b *Browser) Contexts() []engine.Context {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]engine.Context, 0, len(b.contexts))
	for _, c := range b.contexts {
		out = append(out, c)
	}
	return out
}

func (b *Browser) forget(bc *Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, c := range b.contexts {
		if c == bc {
			b.contexts = append(b.contexts[:i], b.contexts[i+1:]...)
			return
		}
	}
}

// Close disposes every context and shuts Chrome down. Calling it again is a
// no-op.
func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	contexts := append([]*Context(nil), b.contexts...)
	b.mu.Unlock()

	b.logger.Info("Closing browser...")

	var errs []error
	for _, c := range contexts {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	b.supervisor.close()
	if err := chromedp.Cancel(b.ctx); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, fmt.Errorf("failed to stop browser: %w", err))
	}
	b.cancel()
	b.allocCancel()

	if b.userDataDir != "" {
		if err := os.RemoveAll(b.userDataDir); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove profile directory: %w", err))
		}
	}

	return errors.Join(errs...)
}
