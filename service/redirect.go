package service

import (
	"net/url"
	"strings"
)

// RedirectPolicy validates user-supplied post-action redirect targets
// against an open-redirect allowlist.
type RedirectPolicy struct {
	// SafeHosts are hosts other than the request host that may be
	// redirected to.
	SafeHosts []string

	// Fallback is the default post-login destination used whenever the
	// requested target is missing or unsafe.
	Fallback string
}

// Resolve returns target when it is safe to follow from host, otherwise the
// fallback. An attacker-controlled target is never followed as given.
func (p RedirectPolicy) Resolve(target, host string) string {
	if target == "" || !p.isSafe(target, host) {
		return p.Fallback
	}
	return target
}

// isSafe mirrors the framework rule: a target is safe when it has no host of
// its own or its host is the request host or allowlisted, and its scheme, if
// any, is http(s). Backslashes are normalized first so "/\evil.example"
// cannot smuggle a protocol-relative URL past the parser.
func (p RedirectPolicy) isSafe(target, host string) bool {
	normalized := strings.ReplaceAll(target, "\\", "/")

	parsed, err := url.Parse(normalized)
	if err != nil {
		return false
	}

	if parsed.Scheme != "" && parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	if parsed.Host == "" {
		return true
	}
	if parsed.Host == host {
		return true
	}
	for _, safe := range p.SafeHosts {
		if parsed.Host == safe {
			return true
		}
	}
	return false
}
