package genre

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Science Fiction": "science-fiction",
		"Sci-Fi/Fantasy":  "sci-fi-fantasy",
		"  Cien años  ":   "cien-anos",
		"LitRPG":          "litrpg",
		"!!!":             "",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "science-fiction", Canonical("Sci-Fi"))
	assert.Equal(t, "science-fiction", Canonical("science fiction"))
	assert.Equal(t, "young-adult", Canonical("YA"))
	assert.Equal(t, "fantasy", Canonical("Fantasy"))
	assert.Equal(t, "", Canonical("   "))
}
