package validators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abc \n", 0))
	assert.Equal(t, "ab", SanitizeString(" abcdef", 2))
	assert.Empty(t, SanitizeString("   ", 10))
}

func TestSanitizeStringDropsControlsAndKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "1 Main St\nSpringfield", SanitizeString("1 Main St\x00\nSpringfield\t", 0))
	// "é" is two bytes; a cap of 2 must not split it
	assert.Equal(t, "a", SanitizeString("aé", 2))
}
