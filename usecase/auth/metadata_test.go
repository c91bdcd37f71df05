package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseUserAgent(t *testing.T) {
	cases := []struct {
		name    string
		ua      string
		browser string
		device  string
		os      string
	}{
		{"empty", "", "Unknown Browser", "Unknown Device", "Unknown OS"},
		{"chrome mac", chromeOnMac, "Chrome", "Desktop", "macOS"},
		{
			"edge windows",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
			"Edge", "Desktop", "Windows",
		},
		{
			"safari iphone",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
			"Safari", "Mobile", "iOS",
		},
		{
			"firefox linux",
			"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
			"Firefox", "Desktop", "Linux",
		},
		{
			"chrome android phone",
			"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
			"Chrome", "Mobile", "Android",
		},
		{
			"ipad",
			"Mozilla/5.0 (iPad; CPU OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/604.1",
			"Safari", "Tablet", "iOS",
		},
		{"curl", "curl/8.5.0", "Unknown Browser", "Unknown Device", "Unknown OS"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			browser, device, os := ParseUserAgent(tc.ua)
			require.Equal(t, tc.browser, browser)
			require.Equal(t, tc.device, device)
			require.Equal(t, tc.os, os)
		})
	}
}

func TestNewProfile(t *testing.T) {
	p := NewProfile("grace", "HOPPER")
	require.Equal(t, "Grace Hopper", p.Username)
	require.Equal(t, "https://avatar.vercel.sh/vercel.svg?text=GH", p.Avatar)

	first, last := randomName()
	require.NotEmpty(t, first)
	require.NotEmpty(t, last)
}
