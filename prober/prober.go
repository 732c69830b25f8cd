// Package prober loads pages in stealth sessions and records which
// automation signals remain observable.
package prober

import (
	"agent-browser/engine"
	"agent-browser/models"
	"agent-browser/stealth"
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// signalsScript inspects the same globals anti-bot scripts look at.
var signalsScript = fmt.Sprintf(`(async () => {
	const cdcPrefixes = %s;
	const brandMarkers = %s;
	const names = Object.getOwnPropertyNames(window);
	let notifications = '';
	try {
		if (navigator.permissions && navigator.permissions.query) {
			notifications = (await navigator.permissions.query({ name: 'notifications' })).state;
		}
	} catch (e) {}
	let vendor = '', renderer = '';
	try {
		const gl = document.createElement('canvas').getContext('webgl');
		if (gl) {
			vendor = String(gl.getParameter(%d) || '');
			renderer = String(gl.getParameter(%d) || '');
		}
	} catch (e) {}
	return {
		webdriver: !!navigator.webdriver,
		hasChrome: typeof window.chrome === 'object' && window.chrome !== null,
		cdpMarkers: names.filter((n) => cdcPrefixes.some((p) => n.indexOf(p) === 0)),
		automationMarkers: names.filter((n) => brandMarkers.some((m) => n.toLowerCase().indexOf(m) !== -1)),
		pluginCount: navigator.plugins ? navigator.plugins.length : 0,
		languages: Array.from(navigator.languages || []),
		notifications: notifications,
		webglVendor: vendor,
		webglRenderer: renderer,
	};
})()`,
	stealth.JSLiteral(stealth.CDPMarkerPrefixes()),
	stealth.JSLiteral(stealth.BrandMarkers()),
	stealth.UnmaskedVendorCode,
	stealth.UnmaskedRendererCode,
)

type signals struct {
	Webdriver         bool     `json:"webdriver"`
	HasChrome         bool     `json:"hasChrome"`
	CDPMarkers        []string `json:"cdpMarkers"`
	AutomationMarkers []string `json:"automationMarkers"`
	PluginCount       int      `json:"pluginCount"`
	Languages         []string `json:"languages"`
	Notifications     string   `json:"notifications"`
	WebGLVendor       string   `json:"webglVendor"`
	WebGLRenderer     string   `json:"webglRenderer"`
}

type Prober struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{logger: logger.Named("prober")}
}

// Probe navigates page to url and collects the detection signals. Navigation
// errors are returned unchanged.
func (p *Prober) Probe(ctx context.Context, page engine.Page, url string) (models.ProbeResult, error) {
	if err := page.Goto(ctx, url); err != nil {
		return models.ProbeResult{}, err
	}
	return p.Inspect(ctx, page, url)
}

// Inspect collects the detection signals of the page's current document.
func (p *Prober) Inspect(ctx context.Context, page engine.Page, url string) (models.ProbeResult, error) {
	var sig signals
	if err := page.Evaluate(ctx, signalsScript, &sig); err != nil {
		return models.ProbeResult{}, fmt.Errorf("failed to evaluate signals: %w", err)
	}

	finalURL, err := page.URL(ctx)
	if err != nil {
		return models.ProbeResult{}, fmt.Errorf("failed to read page url: %w", err)
	}
	title, err := page.Title(ctx)
	if err != nil {
		return models.ProbeResult{}, fmt.Errorf("failed to read page title: %w", err)
	}

	result := models.ProbeResult{
		URL:                    url,
		FinalURL:               finalURL,
		Title:                  strings.TrimSpace(title),
		Webdriver:              sig.Webdriver,
		HasChrome:              sig.HasChrome,
		CDPMarkers:             sig.CDPMarkers,
		AutomationMarkers:      sig.AutomationMarkers,
		PluginCount:            sig.PluginCount,
		Languages:              sig.Languages,
		NotificationPermission: sig.Notifications,
		WebGLVendor:            sig.WebGLVendor,
		WebGLRenderer:          sig.WebGLRenderer,
		ProbedAt:               time.Now().UTC(),
	}

	if leaks := result.Leaks(); len(leaks) > 0 {
		p.logger.Warn("Page can observe automation", zap.String("url", url), zap.Strings("leaks", leaks))
	} else {
		p.logger.Debug("Page probed clean", zap.String("url", url))
	}
	return result, nil
}
