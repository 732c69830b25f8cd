package session

import (
	"agent-browser/engine"
	"agent-browser/stealth"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	launcher  *mockLauncher
	browser   *mockBrowser
	bctx      *mockContext
	page      *mockPage
	catalogue *stealth.Catalogue

	mu    sync.Mutex
	calls []string
}

func (f *fixture) record(name string) func(mock.Arguments) {
	return func(mock.Arguments) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, name)
	}
}

func (f *fixture) order() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// newFixture wires a launcher whose browser, context and page all succeed.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		launcher:  &mockLauncher{},
		browser:   &mockBrowser{},
		bctx:      &mockContext{},
		page:      &mockPage{id: "page-1"},
		catalogue: stealth.DefaultCatalogue(stealth.DefaultProfile()),
	}

	f.launcher.On("Supports", mock.Anything).Return(true)
	f.launcher.On("Launch", mock.Anything, mock.Anything).Run(f.record("launch")).Return(f.browser, nil)
	f.browser.On("NewContext", mock.Anything).Run(f.record("context")).Return(f.bctx, nil)
	f.browser.On("Close").Run(f.record("browser.close")).Return(nil)
	f.bctx.On("InitScripts").Return([]string(nil))
	f.bctx.On("AddInitScript", mock.Anything, mock.Anything).Run(f.record("script")).Return(nil)
	f.bctx.On("NewPage", mock.Anything).Run(f.record("page")).Return(f.page, nil).Once()
	f.bctx.On("Close").Run(f.record("context.close")).Return(nil)
	return f
}

func (f *fixture) manager() *Manager {
	return New(f.launcher, f.catalogue)
}

func TestManager_LaunchAndClose(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	assert.Equal(t, Unlaunched, m.State())
	assert.False(t, m.IsLaunched())

	require.NoError(t, m.Launch(context.Background(), engine.LaunchOptions{Headless: true}))
	assert.Equal(t, Launched, m.State())
	assert.True(t, m.IsLaunched())

	page, err := m.Page()
	require.NoError(t, err)
	assert.Equal(t, "page-1", page.ID())

	bctx, err := m.Context()
	require.NoError(t, err)
	assert.Equal(t, "ctx", bctx.ID())

	m.Close()
	assert.Equal(t, Closed, m.State())
	assert.False(t, m.IsLaunched())

	f.browser.AssertNumberOfCalls(t, "Close", 1)
	f.bctx.AssertNumberOfCalls(t, "Close", 1)
}

func TestManager_ScriptsAttachedBeforeFirstPage(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	require.NoError(t, m.Launch(context.Background(), engine.LaunchOptions{Headless: true}))
	defer m.Close()

	want := []string{"launch", "context"}
	for range f.catalogue.Scripts() {
		want = append(want, "script")
	}
	want = append(want, "page")
	assert.Equal(t, want, f.order())

	for _, s := range f.catalogue.Scripts() {
		f.bctx.AssertCalled(t, "AddInitScript", mock.Anything, s.Source())
	}
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	m.Close()
	assert.Equal(t, Unlaunched, m.State(), "closing an unlaunched session does nothing")

	require.NoError(t, m.Launch(context.Background(), engine.LaunchOptions{Headless: true}))
	m.Close()
	m.Close()

	assert.Equal(t, Closed, m.State())
	f.browser.AssertNumberOfCalls(t, "Close", 1)
}

func TestManager_SecondLaunchRejected(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	require.NoError(t, m.Launch(context.Background(), engine.LaunchOptions{Headless: true}))
	defer m.Close()

	err := m.Launch(context.Background(), engine.LaunchOptions{Headless: true})
	assert.ErrorIs(t, err, ErrAlreadyLaunched)
	f.launcher.AssertNumberOfCalls(t, "Launch", 1)
}

func TestManager_LaunchAfterClose(t *testing.T) {
	f := newFixture(t)
	m := f.manager()

	require.NoError(t, m.Launch(context.Background(), engine.LaunchOptions{Headless: true}))
	m.Close()

	err := m.Launch(context.Background(), engine.LaunchOptions{Headless: true})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_NotLaunched(t *testing.T) {
	m := newFixture(t).manager()

	_, err := m.Page()
	assert.ErrorIs(t, err, ErrNotLaunched)

	_, err = m.Context()
	assert.ErrorIs(t, err, ErrNotLaunched)

	_, err = m.NewPage(context.Background())
	assert.ErrorIs(t, err, ErrNotLaunched)
}

func TestManager_LaunchFailure(t *testing.T) {
	launcher := &mockLauncher{}
	launcher.On("Supports", mock.Anything).Return(true)
	launcher.On("Launch", mock.Anything, mock.Anything).Return(nil, errors.New("exec: chrome not found")).Once()

	m := New(launcher, stealth.DefaultCatalogue(stealth.DefaultProfile()))

	err := m.Launch(context.Background(), engine.LaunchOptions{Headless: true})

	var launchErr *engine.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Contains(t, err.Error(), "chrome not found")
	assert.Equal(t, Unlaunched, m.State())
	assert.False(t, m.IsLaunched())

	_, err = m.Page()
	assert.ErrorIs(t, err, ErrNotLaunched)
}

func TestManager_RetryAfterLaunchFailure(t *testing.T) {
	f := newFixture(t)
	f.launcher.ExpectedCalls = nil
	f.launcher.On("Supports", mock.Anything).Return(true)
	f.launcher.On("Launch", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()
	f.launcher.On("Launch", mock.Anything, mock.Anything).Return(f.browser, nil).Once()

	m := f.manager()
	require.Error(t, m.Launch(context.Background(), engine.LaunchOptions{Headless: true}))
	require.NoError(t, m.Launch(context.Background(), engine.LaunchOptions{Headless: true}))
	defer m.Close()

	assert.True(t, m.IsLaunched())
}

func TestManager_AttachFailureTearsDown(t *testing.T) {
	f := newFixture(t)
	f.bctx.ExpectedCalls = nil
	f.bctx.On("InitScripts").Return([]string(nil))
	f.bctx.On("AddInitScript", mock.Anything, mock.Anything).Return(errors.New("context destroyed"))
	f.bctx.On("Close").Return(nil)

	m := f.manager()
	err := m.Launch(context.Background(), engine.LaunchOptions{Headless: true})

	var launchErr *engine.LaunchError
	require.ErrorAs(t, err, &launchErr)
	assert.Equal(t, Unlaunched, m.State())
	f.bctx.AssertNotCalled(t, "NewPage", mock.Anything)
	f.bctx.AssertNumberOfCalls(t, "Close", 1)
	f.browser.AssertNumberOfCalls(t, "Close", 1)
}

func TestManager_UnsupportedOption(t *testing.T) {
	launcher := &mockLauncher{}
	launcher.On("Supports", engine.OptionProxy).Return(false)
	launcher.On("Supports", mock.Anything).Return(true)

	m := New(launcher, stealth.NewCatalogue())
	err := m.Launch(context.Background(), engine.LaunchOptions{
		Headless: true,
		Proxy:    &engine.Proxy{Server: "http://127.0.0.1:8080"},
	})

	var unsupported *engine.UnsupportedOptionError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, []engine.Option{engine.OptionProxy}, unsupported.Options)
	assert.Equal(t, Unlaunched, m.State())
	launcher.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything)
}

func TestManager_CloseWhileLaunching(t *testing.T) {
	launcher := &mockLauncher{}
	started := make(chan struct{})
	launcher.On("Supports", mock.Anything).Return(true)
	launcher.On("Launch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.Canceled)

	m := New(launcher, stealth.DefaultCatalogue(stealth.DefaultProfile()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Launch(context.Background(), engine.LaunchOptions{Headless: true})
	}()

	<-started
	assert.Equal(t, Launching, m.State())

	closed := make(chan struct{})
	go func() {
		m.Close()
		close(closed)
	}()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("launch was not aborted")
	}
	<-closed

	assert.Equal(t, Closed, m.State())
	assert.False(t, m.IsLaunched())
}

func TestManager_NewPage(t *testing.T) {
	f := newFixture(t)
	second := &mockPage{id: "page-2"}
	f.bctx.On("NewPage", mock.Anything).Return(second, nil).Once()

	m := f.manager()
	require.NoError(t, m.Launch(context.Background(), engine.LaunchOptions{Headless: true}))
	defer m.Close()

	page, err := m.NewPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "page-2", page.ID())

	tracked, err := m.Page()
	require.NoError(t, err)
	assert.Same(t, second, tracked)
}

func TestManager_IndependentSessions(t *testing.T) {
	a, b := newFixture(t), newFixture(t)
	ma, mb := a.manager(), b.manager()

	require.NoError(t, ma.Launch(context.Background(), engine.LaunchOptions{Headless: true}))
	require.NoError(t, mb.Launch(context.Background(), engine.LaunchOptions{Headless: true}))

	ma.Close()

	assert.Equal(t, Closed, ma.State())
	assert.True(t, mb.IsLaunched())
	b.browser.AssertNotCalled(t, "Close")

	mb.Close()
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unlaunched", Unlaunched.String())
	assert.Equal(t, "launching", Launching.String())
	assert.Equal(t, "launched", Launched.String())
	assert.Equal(t, "closing", Closing.String())
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestManager_NilCatalogue(t *testing.T) {
	f := newFixture(t)
	m := New(f.launcher, nil)

	require.NoError(t, m.Launch(context.Background(), engine.LaunchOptions{Headless: true}))
	defer m.Close()

	f.bctx.AssertNotCalled(t, "AddInitScript", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"launch", "context", "page"}, f.order())
}
