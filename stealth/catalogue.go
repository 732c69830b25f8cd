// Package stealth holds the ordered catalogue of anti-fingerprinting init
// scripts and binds it to browser contexts.
package stealth

// Catalogue is an immutable, ordered list of scripts. Build it once at
// startup and share it between sessions.
type Catalogue struct {
	scripts []Script
}

// NewCatalogue copies scripts, preserving their order.
func NewCatalogue(scripts ...Script) *Catalogue {
	return &Catalogue{scripts: append([]Script(nil), scripts...)}
}

// DefaultCatalogue returns the standard evasion set for profile. Zero-valued
// profile fields fall back to DefaultProfile.
func DefaultCatalogue(profile Profile) *Catalogue {
	profile = profile.withDefaults()
	return NewCatalogue(
		webdriverScript(),
		chromeRuntimeScript(),
		cdpMarkersScript(),
		pluginsScript(),
		languagesScript(profile.Languages),
		automationMarkersScript(),
		permissionsScript(),
		webglScript(profile.WebGLVendor, profile.WebGLRenderer),
	)
}

func (c *Catalogue) Len() int {
	if c == nil {
		return 0
	}
	return len(c.scripts)
}

// Scripts returns a copy of the scripts in injection order.
func (c *Catalogue) Scripts() []Script {
	return append([]Script(nil), c.scripts...)
}

func (c *Catalogue) Purposes() []Purpose {
	out := make([]Purpose, len(c.scripts))
	for i, s := range c.scripts {
		out[i] = s.purpose
	}
	return out
}

// Lookup returns the script for purpose.
func (c *Catalogue) Lookup(purpose Purpose) (Script, bool) {
	for _, s := range c.scripts {
		if s.purpose == purpose {
			return s, true
		}
	}
	return Script{}, false
}
