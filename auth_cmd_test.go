package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptSecretPipedInput(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)

	_, err = w.WriteString("hunter22\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	orig := os.Stdin
	os.Stdin = r

	t.Cleanup(func() {
		os.Stdin = orig
		r.Close()
	})

	// A pipe is not a terminal, so the line-read fallback applies and the
	// trailing newline is stripped.
	secret, err := promptSecret("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter22", secret)
}
