package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAnalysisJSON = `{
	"track": {"duration": 4.0, "tempo": 120, "time_signature": 4},
	"beats": [
		{"start": 0, "duration": 1, "confidence": 1},
		{"start": 1, "duration": 1, "confidence": 1},
		{"start": 2, "duration": 1, "confidence": 1},
		{"start": 3, "duration": 1, "confidence": 1}
	],
	"segments": []
}`

func writeSampleAnalysis(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleAnalysisJSON), 0o644))
	return path
}

func TestGraphCmdPrintsJumpGraphJSON(t *testing.T) {
	path := writeSampleAnalysis(t)

	cmd := graphCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "totalBeats")
	assert.Contains(t, out.String(), "lastBranchPoint")
}

func TestGraphCmdErrorsOnMissingFile(t *testing.T) {
	cmd := graphCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, cmd.Execute())
}

func TestGraphCmdErrorsOnInvalidAnalysis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"beats": []}`), 0o644))

	cmd := graphCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	assert.Error(t, cmd.Execute())
}
