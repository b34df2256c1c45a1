package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspectCmdErrorsOnMissingFile(t *testing.T) {
	cmd := inspectCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.mp3")})
	assert.Error(t, cmd.Execute())
}
