package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--identities", "alice,bob"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSendPrintsTranscript(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(in, []byte("hello world"), 0o600))
	outFile := filepath.Join(dir, "out", "hello.txt")

	out, err := run(t, "send", "--from", "alice", "--to", "bob", "--out", outFile, in)
	require.NoError(t, err)

	assert.Contains(t, out, "[handshake]")
	assert.Contains(t, out, "[key-exchange]")
	assert.Contains(t, out, "[file-transfer]")
	assert.Contains(t, out, "sha256 b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9")

	got, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestSendUnknownIdentity(t *testing.T) {
	in := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(in, []byte("x"), 0o600))

	_, err := run(t, "send", "--from", "alice", "--to", "zed", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UnknownIdentity")
}

func TestReplayDemo(t *testing.T) {
	out, err := run(t, "replay-demo")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "completed")
	assert.Contains(t, lines[1], "ReplayDetected")
}

func TestTokenIsIssued(t *testing.T) {
	t.Setenv("TRANSFER_CONFIG", "")
	out, err := run(t, "token", "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(strings.TrimSpace(out), ".")))
}
