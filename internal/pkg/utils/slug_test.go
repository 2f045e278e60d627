package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Kazakh Cuisine":   "kazakh-cuisine",
		"  Fast   food!! ": "fast-food",
		"Café & Bar":       "café-bar",
		"Пиццерия 24/7":    "пиццерия-24-7",
		"---":              "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
