// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewThemePreference(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error("Expected dark theme when preference is dark")
	}

	light := NewTheme("light")
	if light.IsDark {
		t.Error("Expected light theme when preference is light")
	}
}

func TestRateStyleTiers(t *testing.T) {
	theme := NewTheme("dark")

	tests := []struct {
		name string
		rate int
		want interface{}
	}{
		{"well above fast", 100, theme.RateFast.GetForeground()},
		{"fast boundary", 70, theme.RateFast.GetForeground()},
		{"just below fast", 69, theme.RateGood.GetForeground()},
		{"good boundary", 40, theme.RateGood.GetForeground()},
		{"just below good", 39, theme.RateMedium.GetForeground()},
		{"medium boundary", 20, theme.RateMedium.GetForeground()},
		{"just below medium", 19, theme.RateSlow.GetForeground()},
		{"zero", 0, theme.RateSlow.GetForeground()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := theme.RateStyle(tt.rate).GetForeground()
			if got != tt.want {
				t.Errorf("RateStyle(%d) foreground = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}
}
