package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRoutes(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, "routes", "--data-dir", dir, "--http-port", "8080", "--https-port", "0")
	require.NoError(t, err)

	assert.Contains(t, out, " 1. *mod.RequestLogModule")
	assert.Contains(t, out, "*app.AdminModule")
	assert.NotContains(t, out, "*mod.HTTPSModule")
	assert.Contains(t, out, "POST    /api/auth/login")
	assert.Contains(t, out, "GET     /api/admin/stats")
	assert.FileExists(t, filepath.Join(dir, "katapult.db"))
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "katapult.yaml")
	yaml := "http:\n  port: 8080\n  https_port: 0\ndata_dir: " + dir + "\nauth:\n  allow_registration: false\n"
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o644))

	out, err := run(t, "routes", "--config", file)
	require.NoError(t, err)
	assert.NotContains(t, out, "/api/auth/register")
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "katapult.yaml")
	require.NoError(t, os.WriteFile(file, []byte("db:\n  driver: mysql\n"), 0o644))

	_, err := run(t, "routes", "--config", file, "--data-dir", dir, "--https-port", "0")
	assert.ErrorContains(t, err, "unknown db driver")

	_, err = run(t, "routes", "--config", file, "--db", "sqlite", "--data-dir", dir, "--https-port", "0")
	assert.NoError(t, err)
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, "routes", "--http-port", "0", "--https-port", "0", "--data-dir", t.TempDir())
	assert.ErrorContains(t, err, "both http and https are disabled")
}

func TestVersion(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3")
}
