package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedirectPolicyResolve(t *testing.T) {
	policy := RedirectPolicy{
		SafeHosts: []string{"console.example"},
		Fallback:  "/dashboard",
	}

	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"empty target", "", "/dashboard"},
		{"relative path", "/dashboard/project/1", "/dashboard/project/1"},
		{"same host", "https://gate.example/settings", "https://gate.example/settings"},
		{"allowlisted host", "https://console.example/home", "https://console.example/home"},
		{"foreign host", "https://evil.example/phish", "/dashboard"},
		{"protocol relative", "//evil.example/phish", "/dashboard"},
		{"backslash smuggling", "/\\evil.example/phish", "/dashboard"},
		{"javascript scheme", "javascript:alert(1)", "/dashboard"},
		{"data scheme", "data:text/html,x", "/dashboard"},
		{"query only", "?next=1", "?next=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, policy.Resolve(tt.target, "gate.example"))
		})
	}
}
