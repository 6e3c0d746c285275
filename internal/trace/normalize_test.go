package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName_NFC(t *testing.T) {
	// "é" as combining sequence (e + U+0301) vs precomposed U+00E9.
	decomposed := "résumé-agent"
	precomposed := "résumé-agent"

	assert.Equal(t, precomposed, NormalizeName(decomposed))
	assert.Equal(t, precomposed, NormalizeName(precomposed), "already-normal input is unchanged")
	assert.Equal(t, "plain-ascii", NormalizeName("plain-ascii"))
}
