package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "iPhone 15 Pro", "iphone-15-pro"},
		{"special chars collapse", "Sony WH-1000XM5!!", "sony-wh-1000xm5"},
		{"leading and trailing junk", "  ***Galaxy S24***  ", "galaxy-s24"},
		{"runs of separators", "Mac -- Book    Air", "mac-book-air"},
		{"already a slug", "pixel-8a", "pixel-8a"},
		{"diacritics fold", "Nescafé Gold", "nescafe-gold"},
		{"empty", "", ""},
		{"only junk", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	names := []string{
		"iPhone 15 Pro Max (256GB)",
		"LG C3 OLED 55\"",
		"Crème Brûlée Maker",
		"___",
		"a",
	}
	for _, name := range names {
		once := Normalize(name)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", name)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	for range 5 {
		assert.Equal(t, Normalize("OnePlus 12R"), Normalize("OnePlus 12R"))
	}
}
