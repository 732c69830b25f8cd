package stealth

import (
	"fmt"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// Purpose names the detection signal a script neutralizes.
type Purpose string

const (
	PurposeWebdriver         Purpose = "webdriver"
	PurposeChromeRuntime     Purpose = "chrome-runtime"
	PurposeCDPMarkers        Purpose = "cdp-markers"
	PurposePlugins           Purpose = "plugins"
	PurposeLanguages         Purpose = "languages"
	PurposeAutomationMarkers Purpose = "automation-markers"
	PurposePermissions       Purpose = "permissions"
	PurposeWebGL             Purpose = "webgl"
)

// Script is one self-contained init script. Every script wraps its body in
// try/catch so a missing API never surfaces as a page-visible error.
type Script struct {
	purpose Purpose
	source  string
}

func NewScript(purpose Purpose, body string) Script {
	return Script{purpose: purpose, source: guard(body)}
}

func (s Script) Purpose() Purpose { return s.purpose }
func (s Script) Source() string   { return s.source }

func guard(body string) string {
	return "(() => {\n  try {\n" + strings.TrimRight(body, "\n") + "\n  } catch (e) {}\n})();\n"
}

// JSLiteral encodes v as a JavaScript literal that is safe to splice into
// script source, inline <script> blocks included. Values that cannot be
// encoded become null.
func JSLiteral(v any) string {
	b, err := json.Marshal(v, jsontext.EscapeForHTML(true), jsontext.EscapeForJS(true))
	if err != nil {
		return "null"
	}
	return string(b)
}

func webdriverScript() Script {
	return NewScript(PurposeWebdriver, `
    if (typeof navigator === 'undefined') return;
    Object.defineProperty(navigator, 'webdriver', {
      get: () => false,
      configurable: true,
    });`)
}

func chromeRuntimeScript() Script {
	return NewScript(PurposeChromeRuntime, `
    if (typeof window === 'undefined' || window.chrome) return;
    const now = () => Date.now();
    const started = now();
    window.chrome = {
      app: { isInstalled: false },
      runtime: {
        onConnect: { addListener: () => {}, removeListener: () => {} },
        onMessage: { addListener: () => {}, removeListener: () => {} },
        connect: () => {},
        sendMessage: () => {},
      },
      loadTimes: () => ({
        requestTime: started / 1000,
        startLoadTime: started / 1000,
        finishDocumentLoadTime: now() / 1000,
        finishLoadTime: now() / 1000,
        navigationType: 'Other',
        wasFetchedViaSpdy: true,
        wasNpnNegotiated: true,
        npnNegotiatedProtocol: 'h2',
        connectionInfo: 'h2',
      }),
      csi: () => ({
        startE: started,
        onloadT: now(),
        pageT: now() - started,
        tran: 15,
      }),
    };`)
}

func cdpMarkersScript() Script {
	return NewScript(PurposeCDPMarkers, fmt.Sprintf(`
    if (typeof window === 'undefined') return;
    const prefixes = %s;
    for (const key of Object.getOwnPropertyNames(window)) {
      if (prefixes.some((p) => key.indexOf(p) === 0)) {
        try { delete window[key]; } catch (e) {}
      }
    }`, JSLiteral(cdpMarkerPrefixes)))
}

func pluginsScript() Script {
	return NewScript(PurposePlugins, `
    if (typeof navigator === 'undefined') return;
    const plugins = [
      { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
      { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '' },
      { name: 'Native Client', filename: 'internal-nacl-plugin', description: '' },
    ];
    plugins.item = (i) => plugins[i] || null;
    plugins.namedItem = (n) => plugins.find((p) => p.name === n) || null;
    plugins.refresh = () => {};
    Object.defineProperty(navigator, 'plugins', {
      get: () => plugins,
      configurable: true,
    });`)
}

func languagesScript(languages []string) Script {
	return NewScript(PurposeLanguages, fmt.Sprintf(`
    if (typeof navigator === 'undefined') return;
    const languages = Object.freeze(%s);
    Object.defineProperty(navigator, 'languages', {
      get: () => languages,
      configurable: true,
    });`, JSLiteral(languages)))
}

func automationMarkersScript() Script {
	return NewScript(PurposeAutomationMarkers, fmt.Sprintf(`
    if (typeof window === 'undefined') return;
    const markers = %s;
    for (const key of Object.getOwnPropertyNames(window)) {
      const lower = key.toLowerCase();
      if (markers.some((m) => lower.indexOf(m) !== -1)) {
        try { delete window[key]; } catch (e) {}
      }
    }`, JSLiteral(brandMarkers)))
}

func permissionsScript() Script {
	return NewScript(PurposePermissions, `
    if (typeof navigator === 'undefined' || !navigator.permissions) return;
    const permissions = navigator.permissions;
    const original = typeof permissions.query === 'function' ? permissions.query : null;
    permissions.query = function query(params) {
      if (params && params.name === 'notifications') {
        return Promise.resolve({ state: 'prompt', onchange: null });
      }
      if (original) {
        return original.call(permissions, params);
      }
      return Promise.resolve({ state: 'granted', onchange: null });
    };`)
}

func webglScript(vendor, renderer string) Script {
	return NewScript(PurposeWebGL, fmt.Sprintf(`
    const vendorCode = %d;
    const rendererCode = %d;
    const vendor = %s;
    const renderer = %s;
    const patch = (ctor) => {
      if (typeof ctor !== 'function' || !ctor.prototype) return;
      const proto = ctor.prototype;
      const original = proto.getParameter;
      if (typeof original !== 'function') return;
      proto.getParameter = function getParameter(param) {
        if (param === vendorCode) return vendor;
        if (param === rendererCode) return renderer;
        return original.call(this, param);
      };
    };
    if (typeof WebGLRenderingContext !== 'undefined') patch(WebGLRenderingContext);
    if (typeof WebGL2RenderingContext !== 'undefined') patch(WebGL2RenderingContext);`,
		UnmaskedVendorCode, UnmaskedRendererCode, JSLiteral(vendor), JSLiteral(renderer)))
}
