package ui

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeAccentColor(t *testing.T) {
	valid := map[string]string{
		"0":        "0",
		" 208 ":    "208",
		"#FF8800":  "#ff8800",
		"#f80":     "#ff8800",
		" #0a0B0c": "#0a0b0c",
	}
	for in, want := range valid {
		got, ok := normalizeAccentColor(in)
		require.True(t, ok, in)
		require.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "256", "-3", "#12345", "#ggg", "orange", "1.5"} {
		_, ok := normalizeAccentColor(in)
		require.False(t, ok, in)
	}
}

func TestConfigureTheme(t *testing.T) {
	origAccent, origAccentBold, origColor := Accent, AccentBold, accentColor
	t.Cleanup(func() {
		Accent, AccentBold, accentColor = origAccent, origAccentBold, origColor
	})

	got, ok := AccentColor()
	require.True(t, ok)
	require.Equal(t, defaultAccent, got)

	// empty keeps whatever is active
	ConfigureTheme("#f80")
	ConfigureTheme("")
	got, _ = AccentColor()
	require.Equal(t, "#ff8800", got)

	ConfigureTheme("not-a-color")
	got, _ = AccentColor()
	require.Equal(t, "#ff8800", got)

	ConfigureTheme("OFF")
	_, ok = AccentColor()
	require.False(t, ok)
	require.True(t, AccentBold.GetBold())
}
