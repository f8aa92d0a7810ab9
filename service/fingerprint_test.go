package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint_StableAndPrefixed(t *testing.T) {
	a := Fingerprint("Mozilla/5.0", "en-US", "1920x1080")
	b := Fingerprint("Mozilla/5.0", "en-US", "1920x1080")

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "user_"))
}

func TestFingerprint_DiffersForDifferentInputs(t *testing.T) {
	a := Fingerprint("Mozilla/5.0", "en-US")
	b := Fingerprint("Mozilla/5.0", "de-DE")

	assert.NotEqual(t, a, b)
}

func TestFingerprint_EmptyInput(t *testing.T) {
	assert.Equal(t, "user_0", Fingerprint())
}
