package engine

import (
	"strings"
)

// Option names a LaunchOptions field for capability queries.
type Option string

const (
	OptionHeadless        Option = "headless"
	OptionUserAgent       Option = "userAgent"
	OptionProxy           Option = "proxy"
	OptionArgs            Option = "args"
	OptionAllowFileAccess Option = "allowFileAccess"
)

// Proxy routes browser traffic through Server. Bypass is a comma separated
// host list that skips the proxy.
type Proxy struct {
	Server string
	Bypass string
}

// LaunchOptions is consumed once by Launcher.Launch.
type LaunchOptions struct {
	Headless        bool
	UserAgent       string
	Proxy           *Proxy
	Args            []string
	AllowFileAccess bool
}

// Requested lists the options a caller set. Headless is always present.
func (o LaunchOptions) Requested() []Option {
	opts := []Option{OptionHeadless}
	if strings.TrimSpace(o.UserAgent) != "" {
		opts = append(opts, OptionUserAgent)
	}
	if o.Proxy != nil {
		opts = append(opts, OptionProxy)
	}
	if len(o.Args) > 0 {
		opts = append(opts, OptionArgs)
	}
	if o.AllowFileAccess {
		opts = append(opts, OptionAllowFileAccess)
	}
	return opts
}

// Validate rejects every requested option the launcher cannot honor, so a
// caller never believes e.g. a proxy is active when it is not.
func (o LaunchOptions) Validate(l Launcher) error {
	var unsupported []Option
	for _, opt := range o.Requested() {
		if !l.Supports(opt) {
			unsupported = append(unsupported, opt)
		}
	}
	if len(unsupported) > 0 {
		return &UnsupportedOptionError{Options: unsupported}
	}
	if o.Proxy != nil && strings.TrimSpace(o.Proxy.Server) == "" {
		return &UnsupportedOptionError{Options: []Option{OptionProxy}, Reason: "proxy server is empty"}
	}
	return nil
}
