package prismcli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/prismbuffer/internal/prismcli"
)

func runCLI(t *testing.T, dir string, stdin string, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)

	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	var out, errOut bytes.Buffer

	code = prismcli.Run(strings.NewReader(stdin), &out, &errOut, append([]string{"prismctl"}, args...))

	return out.String(), errOut.String(), code
}

func TestPushPop_RoundTripsThroughCLI(t *testing.T) {
	dir := t.TempDir()

	cfg := prismcli.Config{DirectoryName: "cli-buf", ParentDirectory: dir}
	writeConfig(t, dir, cfg)

	_, _, code := runCLI(t, dir, "hello-world", "push")
	require.Equal(t, 0, code)

	stdout, _, code := runCLI(t, dir, "", "pop")
	require.Equal(t, 0, code)
	require.Equal(t, "hello-world", stdout)
}

func TestPop_OnEmptyBuffer_ReportsEmptyWithoutError(t *testing.T) {
	dir := t.TempDir()

	cfg := prismcli.Config{DirectoryName: "cli-buf-empty", ParentDirectory: dir}
	writeConfig(t, dir, cfg)

	stdout, stderr, code := runCLI(t, dir, "", "pop")
	require.Equal(t, 0, code)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "buffer empty")
}

func TestStats_ReportsCountsAfterPush(t *testing.T) {
	dir := t.TempDir()

	cfg := prismcli.Config{DirectoryName: "cli-buf-stats", ParentDirectory: dir}
	writeConfig(t, dir, cfg)

	_, _, code := runCLI(t, dir, "payload", "push")
	require.Equal(t, 0, code)

	stdout, _, code := runCLI(t, dir, "", "stats")
	require.Equal(t, 0, code)
	require.Contains(t, stdout, "disk_items=1")
}

func TestUnknownCommand_ReturnsNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, prismcli.Config{DirectoryName: "cli-buf-unknown", ParentDirectory: dir})

	_, stderr, code := runCLI(t, dir, "", "bogus")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "unknown command")
}

func writeConfig(t *testing.T, dir string, cfg prismcli.Config) {
	t.Helper()

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, prismcli.ConfigFileName), data, 0o644))
}
