package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSCall(t *testing.T) {
	got, err := jsCall(jsCount, `button[aria-label="Close"]`)
	require.NoError(t, err)
	assert.Equal(t, `(`+jsCount+`)("button[aria-label=\"Close\"]")`, got)

	got, err = jsCall(jsSetStyle, "header", 2, "display", "none")
	require.NoError(t, err)
	assert.Contains(t, got, `("header", 2, "display", "none")`)

	got, err = jsCall(jsViewportHeight)
	require.NoError(t, err)
	assert.Equal(t, "("+jsViewportHeight+")()", got)

	_, err = jsCall(jsCount, func() {})
	assert.Error(t, err)
}

func TestKeyForwarderScript(t *testing.T) {
	script, err := keyForwarderScript("protectViewerKey", []string{"F9", "F10"})
	require.NoError(t, err)
	assert.Contains(t, script, `const binding = "protectViewerKey";`)
	assert.Contains(t, script, `new Set(["F9","F10"])`)
}

func TestParseKeyPress(t *testing.T) {
	kp, err := ParseKeyPress(`{"key":"F9"}`)
	require.NoError(t, err)
	assert.Equal(t, "F9", kp.Key)

	_, err = ParseKeyPress(`{}`)
	assert.Error(t, err)
	_, err = ParseKeyPress(`F9`)
	assert.Error(t, err)
}
