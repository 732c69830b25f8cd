package chromium

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/go-json-experiment/json"
	"go.uber.org/zap"
)

const (
	devToolsActivePort = "DevToolsActivePort"
	portPollInterval   = 50 * time.Millisecond
)

var errSupervisorClosed = errors.New("devtools connection closed")

// supervisor holds a second DevTools connection with browser-level
// auto-attach and waitForDebuggerOnStart. Every new page target starts
// paused on this connection; pages of a registered context receive the
// context's init scripts on that session before they are resumed. The
// session stays attached because the scripts live on it.
type supervisor struct {
	conn   chromedp.Transport
	logger *zap.Logger
	lastID atomic.Int64
	done   chan struct{}
	once   sync.Once

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[int64]chan *cdproto.Message
	contexts map[cdp.BrowserContextID]*Context
	sessions map[target.SessionID]*attachment
	ready    map[target.ID]*readiness
}

// attachment tracks a page session of a registered context.
type attachment struct {
	owner    *Context
	id       target.ID
	prepared bool
	detached bool
}

type readiness struct {
	done chan struct{}
	err  error
}

// dialSupervisor connects to the browser that writes its endpoint into
// userDataDir and turns on auto-attach.
func dialSupervisor(ctx context.Context, userDataDir string, logger *zap.Logger) (*supervisor, error) {
	url, err := waitDevToolsURL(ctx, userDataDir)
	if err != nil {
		return nil, err
	}

	conn, err := chromedp.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	s := newSupervisor(conn, logger)
	if err := s.start(ctx); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func newSupervisor(conn chromedp.Transport, logger *zap.Logger) *supervisor {
	s := &supervisor{
		conn:     conn,
		logger:   logger.Named("supervisor"),
		done:     make(chan struct{}),
		pending:  make(map[int64]chan *cdproto.Message),
		contexts: make(map[cdp.BrowserContextID]*Context),
		sessions: make(map[target.SessionID]*attachment),
		ready:    make(map[target.ID]*readiness),
	}
	go s.readLoop()
	return s
}

func (s *supervisor) start(ctx context.Context) error {
	params := target.SetAutoAttach(true, true).WithFlatten(true)
	if err := s.call(ctx, "", cdproto.CommandTargetSetAutoAttach, params, nil); err != nil {
		return fmt.Errorf("failed to enable auto-attach: %w", err)
	}
	return nil
}

func waitDevToolsURL(ctx context.Context, userDataDir string) (string, error) {
	path := filepath.Join(userDataDir, devToolsActivePort)
	ticker := time.NewTicker(portPollInterval)
	defer ticker.Stop()

	for {
		if data, err := os.ReadFile(path); err == nil {
			if url, err := parseDevToolsActivePort(data); err == nil {
				return url, nil
			}
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("failed to read %s: %w", path, ctx.Err())
		case <-ticker.C:
		}
	}
}

// parseDevToolsActivePort builds the browser websocket URL from the file
// Chrome writes next to its profile: the port on the first line, the
// browser target path on the second.
func parseDevToolsActivePort(data []byte) (string, error) {
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return "", errors.New("incomplete DevToolsActivePort file")
	}

	port := strings.TrimSpace(lines[0])
	path := strings.TrimSpace(lines[1])
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("invalid DevTools port %q", port)
	}
	if !strings.HasPrefix(path, "/devtools/browser/") {
		return "", fmt.Errorf("invalid DevTools path %q", path)
	}
	return "ws://127.0.0.1:" + port + path, nil
}

// call sends one command and waits for its reply. An empty session targets
// the browser.
func (s *supervisor) call(ctx context.Context, session target.SessionID, method cdproto.MethodType, params, res any) error {
	var buf []byte
	if params != nil {
		var err error
		if buf, err = json.Marshal(params); err != nil {
			return fmt.Errorf("failed to encode %s: %w", method, err)
		}
	}

	id := s.lastID.Add(1)
	reply := make(chan *cdproto.Message, 1)
	s.mu.Lock()
	s.pending[id] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}()

	s.writeMu.Lock()
	err := s.conn.Write(ctx, &cdproto.Message{ID: id, SessionID: session, Method: method, Params: buf})
	s.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case msg := <-reply:
		if msg.Error != nil {
			return fmt.Errorf("%s: %w", method, msg.Error)
		}
		if res != nil && len(msg.Result) > 0 {
			return json.Unmarshal(msg.Result, res)
		}
		return nil
	case <-s.done:
		return errSupervisorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *supervisor) readLoop() {
	defer s.close()

	for {
		msg := new(cdproto.Message)
		if err := s.conn.Read(context.Background(), msg); err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Debug("DevTools connection lost", zap.Error(err))
			}
			return
		}

		switch {
		case msg.ID != 0:
			s.mu.Lock()
			reply, ok := s.pending[msg.ID]
			s.mu.Unlock()
			if ok {
				reply <- msg
			}
		case msg.SessionID != "":
			// page events belong to chromedp's own sessions
		case msg.Method == cdproto.EventTargetAttachedToTarget:
			ev := new(target.EventAttachedToTarget)
			if err := json.Unmarshal(msg.Params, ev); err != nil {
				s.logger.Warn("Malformed attach event", zap.Error(err))
				continue
			}
			go s.onAttached(ev)
		case msg.Method == cdproto.EventTargetDetachedFromTarget:
			ev := new(target.EventDetachedFromTarget)
			if err := json.Unmarshal(msg.Params, ev); err == nil {
				s.onDetached(ev.SessionID)
			}
		}
	}
}

// onAttached runs for every target the browser pauses for us. Targets that
// belong to no registered context are resumed and released.
func (s *supervisor) onAttached(ev *target.EventAttachedToTarget) {
	ctx, cancel := context.WithTimeout(context.Background(), adoptTimeout)
	defer cancel()

	info := ev.TargetInfo
	owner := s.owner(info)
	if owner == nil {
		s.release(ctx, ev)
		return
	}

	a := &attachment{owner: owner, id: info.TargetID}
	s.mu.Lock()
	s.sessions[ev.SessionID] = a
	s.mu.Unlock()

	err := owner.prepare(ctx, info.TargetID, ev.SessionID)
	if err == nil {
		s.settle(ev.SessionID, a)
		if ev.WaitingForDebugger {
			err = s.call(ctx, ev.SessionID, cdproto.CommandRuntimeRunIfWaitingForDebugger, runtime.RunIfWaitingForDebugger(), nil)
		}
	}

	popup := info.OpenerID != ""
	if err != nil {
		s.mu.Lock()
		delete(s.sessions, ev.SessionID)
		s.mu.Unlock()
		owner.forgetTarget(info.TargetID)
		owner.logger.Warn("Could not prepare page", zap.String("page", string(info.TargetID)), zap.Error(err))
		if popup {
			if cerr := s.closeTarget(ctx, info.TargetID); cerr != nil {
				owner.logger.Warn("Could not close popup", zap.String("page", string(info.TargetID)), zap.Error(cerr))
			}
		}
	}

	if !popup {
		s.markReady(info.TargetID, err)
		return
	}
	if err == nil {
		owner.adopt(info.TargetID)
	}
}

func (s *supervisor) owner(info *target.Info) *Context {
	if info == nil || info.Type != "page" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contexts[info.BrowserContextID]
}

func (s *supervisor) release(ctx context.Context, ev *target.EventAttachedToTarget) {
	if ev.WaitingForDebugger {
		if err := s.call(ctx, ev.SessionID, cdproto.CommandRuntimeRunIfWaitingForDebugger, runtime.RunIfWaitingForDebugger(), nil); err != nil {
			s.logger.Debug("Could not resume target", zap.String("session", string(ev.SessionID)), zap.Error(err))
		}
	}
	if err := s.call(ctx, "", cdproto.CommandTargetDetachFromTarget, target.DetachFromTarget().WithSessionID(ev.SessionID), nil); err != nil {
		s.logger.Debug("Could not detach target", zap.String("session", string(ev.SessionID)), zap.Error(err))
	}
}

// settle marks a prepared session. A session whose target went away while
// it was being prepared is forgotten right away.
func (s *supervisor) settle(session target.SessionID, a *attachment) {
	s.mu.Lock()
	detached := a.detached
	if detached {
		delete(s.sessions, session)
	} else {
		a.prepared = true
	}
	s.mu.Unlock()

	if detached {
		a.owner.forgetTarget(a.id)
	}
}

func (s *supervisor) onDetached(session target.SessionID) {
	s.mu.Lock()
	a, ok := s.sessions[session]
	if !ok {
		s.mu.Unlock()
		return
	}
	if !a.prepared {
		a.detached = true
		s.mu.Unlock()
		return
	}
	delete(s.sessions, session)
	delete(s.ready, a.id)
	s.mu.Unlock()

	a.owner.forgetTarget(a.id)
}

// readiness must be called with mu held.
func (s *supervisor) readiness(id target.ID) *readiness {
	r, ok := s.ready[id]
	if !ok {
		r = &readiness{done: make(chan struct{})}
		s.ready[id] = r
	}
	return r
}

func (s *supervisor) markReady(id target.ID, err error) {
	s.mu.Lock()
	r := s.readiness(id)
	s.mu.Unlock()

	r.err = err
	close(r.done)
}

// waitReady blocks until the page target id was prepared and resumed.
func (s *supervisor) waitReady(ctx context.Context, id target.ID) error {
	s.mu.Lock()
	r := s.readiness(id)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.ready, id)
		s.mu.Unlock()
	}()

	select {
	case <-r.done:
		return r.err
	case <-s.done:
		return errSupervisorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *supervisor) register(c *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[c.id] = c
}

func (s *supervisor) unregister(c *Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contexts[c.id] == c {
		delete(s.contexts, c.id)
	}
}

func (s *supervisor) createTarget(ctx context.Context, browserContext cdp.BrowserContextID) (target.ID, error) {
	var res target.CreateTargetReturns
	params := target.CreateTarget("about:blank").WithBrowserContextID(browserContext)
	if err := s.call(ctx, "", cdproto.CommandTargetCreateTarget, params, &res); err != nil {
		return "", err
	}
	return res.TargetID, nil
}

func (s *supervisor) closeTarget(ctx context.Context, id target.ID) error {
	return s.call(ctx, "", cdproto.CommandTargetCloseTarget, target.CloseTarget(id), nil)
}

func (s *supervisor) addScript(ctx context.Context, session target.SessionID, source string) (page.ScriptIdentifier, error) {
	var res page.AddScriptToEvaluateOnNewDocumentReturns
	params := page.AddScriptToEvaluateOnNewDocument(source)
	if err := s.call(ctx, session, cdproto.CommandPageAddScriptToEvaluateOnNewDocument, params, &res); err != nil {
		return "", err
	}
	return res.Identifier, nil
}

func (s *supervisor) removeScript(ctx context.Context, session target.SessionID, id page.ScriptIdentifier) error {
	return s.call(ctx, session, cdproto.CommandPageRemoveScriptToEvaluateOnNewDocument, page.RemoveScriptToEvaluateOnNewDocument(id), nil)
}

func (s *supervisor) close() {
	s.once.Do(func() {
		close(s.done)
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("Failed to close DevTools connection", zap.Error(err))
		}
	})
}
