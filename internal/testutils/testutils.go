// Package testutils holds small helpers shared by package tests.
package testutils

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// Quiet silences logrus for the duration of a test.
func Quiet(t *testing.T) {
	t.Helper()
	logrus.SetOutput(io.Discard)
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
	})
}

// WriteTempFile writes content into a temp file and returns its path.
func WriteTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
