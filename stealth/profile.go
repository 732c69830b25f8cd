package stealth

// WebGL debug-renderer-info parameter codes (UNMASKED_VENDOR_WEBGL and
// UNMASKED_RENDERER_WEBGL).
const (
	UnmaskedVendorCode   = 37445
	UnmaskedRendererCode = 37446
)

var (
	cdpMarkerPrefixes = []string{"cdc_", "$cdc_"}
	brandMarkers      = []string{"playwright", "puppeteer", "chromedp"}
)

// CDPMarkerPrefixes returns the global name prefixes left behind by DevTools
// protocol instrumentation.
func CDPMarkerPrefixes() []string { return append([]string(nil), cdpMarkerPrefixes...) }

// BrandMarkers returns lower-case substrings of globals injected by
// automation engines.
func BrandMarkers() []string { return append([]string(nil), brandMarkers...) }

// Profile holds the values the catalogue reports to the page.
type Profile struct {
	Languages     []string
	WebGLVendor   string
	WebGLRenderer string
}

func DefaultProfile() Profile {
	return Profile{
		Languages:     []string{"en-US", "en"},
		WebGLVendor:   "Intel Inc.",
		WebGLRenderer: "Intel Iris OpenGL Engine",
	}
}

func (p Profile) withDefaults() Profile {
	def := DefaultProfile()
	if len(p.Languages) == 0 {
		p.Languages = def.Languages
	}
	if p.WebGLVendor == "" {
		p.WebGLVendor = def.WebGLVendor
	}
	if p.WebGLRenderer == "" {
		p.WebGLRenderer = def.WebGLRenderer
	}
	return p
}
