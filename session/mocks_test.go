package session

import (
	"agent-browser/engine"
	"context"

	"github.com/stretchr/testify/mock"
)

type mockLauncher struct{ mock.Mock }

func (m *mockLauncher) Launch(ctx context.Context, opts engine.LaunchOptions) (engine.Browser, error) {
	args := m.Called(ctx, opts)
	b, _ := args.Get(0).(engine.Browser)
	return b, args.Error(1)
}

func (m *mockLauncher) Supports(opt engine.Option) bool {
	return m.Called(opt).Bool(0)
}

type mockBrowser struct{ mock.Mock }

func (m *mockBrowser) NewContext(ctx context.Context) (engine.Context, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).(engine.Context)
	return c, args.Error(1)
}

func (m *mockBrowser) Contexts() []engine.Context {
	c, _ := m.Called().Get(0).([]engine.Context)
	return c
}

func (m *mockBrowser) Close() error { return m.Called().Error(0) }

type mockContext struct{ mock.Mock }

func (m *mockContext) ID() string { return "ctx" }

func (m *mockContext) AddInitScript(ctx context.Context, source string) error {
	return m.Called(ctx, source).Error(0)
}

func (m *mockContext) InitScripts() []string {
	s, _ := m.Called().Get(0).([]string)
	return s
}

func (m *mockContext) NewPage(ctx context.Context) (engine.Page, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(engine.Page)
	return p, args.Error(1)
}

func (m *mockContext) Pages() []engine.Page {
	p, _ := m.Called().Get(0).([]engine.Page)
	return p
}

func (m *mockContext) Close() error { return m.Called().Error(0) }

type mockPage struct {
	mock.Mock
	id string
}

func (m *mockPage) ID() string { return m.id }

func (m *mockPage) Goto(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *mockPage) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockPage) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockPage) Content(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockPage) Evaluate(ctx context.Context, expression string, res any) error {
	return m.Called(ctx, expression, res).Error(0)
}

func (m *mockPage) Locator(selector string) engine.Locator {
	l, _ := m.Called(selector).Get(0).(engine.Locator)
	return l
}

func (m *mockPage) MainFrame(ctx context.Context) (*engine.Frame, error) {
	args := m.Called(ctx)
	f, _ := args.Get(0).(*engine.Frame)
	return f, args.Error(1)
}

func (m *mockPage) Emulate(ctx context.Context, device engine.Device) error {
	return m.Called(ctx, device).Error(0)
}

func (m *mockPage) OnDialog(handler func(*engine.Dialog) bool) { m.Called(handler) }
func (m *mockPage) OnRequest(handler func(*engine.Request))    { m.Called(handler) }

func (m *mockPage) Session() engine.Session {
	s, _ := m.Called().Get(0).(engine.Session)
	return s
}

func (m *mockPage) Close() error { return m.Called().Error(0) }
