// Package session owns the lifecycle of a single stealth browser session.
package session

import (
	"agent-browser/engine"
	"agent-browser/stealth"
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Manager launches one browser, creates a context carrying the stealth
// catalogue and tracks the active page. Managers do not share state, so any
// number of them can run side by side.
type Manager struct {
	launcher  engine.Launcher
	catalogue *stealth.Catalogue
	logger    *zap.Logger

	mu          sync.Mutex
	state       State
	browser     engine.Browser
	bctx        engine.Context
	page        engine.Page
	abortLaunch context.CancelFunc
	launchDone  chan struct{}
}

type Option func(*Manager)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func New(launcher engine.Launcher, catalogue *stealth.Catalogue, opts ...Option) *Manager {
	m := &Manager{
		launcher:  launcher,
		catalogue: catalogue,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("session")
	return m
}

// Launch starts the browser, creates a context, attaches the stealth
// catalogue and opens the initial page, in that order. It is only valid on an
// unlaunched Manager. Engine failures are returned as *engine.LaunchError and
// leave the Manager unlaunched.
func (m *Manager) Launch(ctx context.Context, opts engine.LaunchOptions) error {
	m.mu.Lock()
	switch m.state {
	case Launching, Launched:
		m.mu.Unlock()
		return ErrAlreadyLaunched
	case Closing, Closed:
		m.mu.Unlock()
		return ErrClosed
	}

	if err := opts.Validate(m.launcher); err != nil {
		m.mu.Unlock()
		return err
	}

	launchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.state = Launching
	m.abortLaunch = cancel
	m.launchDone = done
	m.mu.Unlock()

	browser, bctx, page, err := m.start(launchCtx, opts)
	cancel()

	m.mu.Lock()
	m.abortLaunch = nil
	closing := m.state == Closing
	if !closing {
		if err != nil {
			m.state = Unlaunched
		} else {
			m.browser, m.bctx, m.page = browser, bctx, page
			m.state = Launched
		}
	}
	m.mu.Unlock()

	if closing {
		// Close ran while we were launching. It waits on done and then
		// finishes the transition to Closed.
		if browser != nil {
			m.teardown(browser, bctx)
		}
		close(done)
		return ErrClosed
	}
	close(done)

	if err != nil {
		m.logger.Error("Launch failed", zap.Error(err))
		return err
	}
	m.logger.Info("Session launched", zap.Bool("headless", opts.Headless))
	return nil
}

func (m *Manager) start(ctx context.Context, opts engine.LaunchOptions) (engine.Browser, engine.Context, engine.Page, error) {
	browser, err := m.launcher.Launch(ctx, opts)
	if err != nil {
		return nil, nil, nil, asLaunchError(err)
	}

	bctx, err := browser.NewContext(ctx)
	if err != nil {
		m.teardown(browser, nil)
		return nil, nil, nil, asLaunchError(err)
	}

	if err := stealth.Attach(ctx, bctx, m.catalogue); err != nil {
		m.teardown(browser, bctx)
		return nil, nil, nil, asLaunchError(err)
	}
	m.logger.Debug("Stealth catalogue attached",
		zap.String("context", bctx.ID()),
		zap.Int("scripts", m.catalogue.Len()),
	)

	page, err := bctx.NewPage(ctx)
	if err != nil {
		m.teardown(browser, bctx)
		return nil, nil, nil, asLaunchError(err)
	}

	return browser, bctx, page, nil
}

func asLaunchError(err error) error {
	var launchErr *engine.LaunchError
	if errors.As(err, &launchErr) {
		return err
	}
	return &engine.LaunchError{Err: err}
}

// Page returns the tracked page.
func (m *Manager) Page() (engine.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Launched {
		return nil, ErrNotLaunched
	}
	return m.page, nil
}

// Context returns the browser context the stealth catalogue is bound to.
func (m *Manager) Context() (engine.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Launched {
		return nil, ErrNotLaunched
	}
	return m.bctx, nil
}

// NewPage opens another page in the session's context and makes it the
// tracked page.
func (m *Manager) NewPage(ctx context.Context) (engine.Page, error) {
	bctx, err := m.Context()
	if err != nil {
		return nil, err
	}

	page, err := bctx.NewPage(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Launched {
		_ = page.Close()
		return nil, ErrNotLaunched
	}
	m.page = page
	return page, nil
}

func (m *Manager) IsLaunched() bool {
	return m.State() == Launched
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close releases the browser. It never fails and may be called from any
// state, any number of times; on an unlaunched or closed Manager it does
// nothing.
func (m *Manager) Close() {
	m.mu.Lock()
	switch m.state {
	case Launching:
		m.state = Closing
		abort, done := m.abortLaunch, m.launchDone
		m.mu.Unlock()

		if abort != nil {
			abort()
		}
		<-done

	case Launched:
		m.state = Closing
		browser, bctx := m.browser, m.bctx
		m.browser, m.bctx, m.page = nil, nil, nil
		m.mu.Unlock()

		m.teardown(browser, bctx)

	default:
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.state = Closed
	m.mu.Unlock()
	m.logger.Info("Session closed")
}

func (m *Manager) teardown(browser engine.Browser, bctx engine.Context) {
	if bctx != nil {
		if err := bctx.Close(); err != nil {
			m.logger.Warn("Failed to close browser context", zap.Error(err))
		}
	}
	if browser != nil {
		if err := browser.Close(); err != nil {
			m.logger.Warn("Failed to close browser", zap.Error(err))
		}
	}
}
