package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svn "github.com/kfsone/svndelta/lib"
)

func TestNewConfigDefaults(t *testing.T) {
	filename := filepath.Join(t.TempDir(), DefaultConfigFile)
	config, err := NewConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Filename:   filename,
		Revision:   svn.InvalidRevnum,
		Recurse:    true,
		TextDeltas: true,
		Timeout:    time.Minute,
	}, config)
}

func TestNewConfigFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "svndelta.yml")
	require.NoError(t, os.WriteFile(filename, []byte(`
url: http://svn.example.com/repos/project
dump: project-*.dump
revision: 12
path: /trunk/
recurse: false
text-deltas: false
timeout: 30s
`), 0o644))

	config, err := NewConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Filename:   filename,
		URL:        "http://svn.example.com/repos/project",
		Dump:       "project-*.dump",
		Revision:   12,
		Path:       "trunk",
		Recurse:    false,
		TextDeltas: false,
		Timeout:    30 * time.Second,
	}, config)
}

func TestNewConfigBadFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "svndelta.yml")
	require.NoError(t, os.WriteFile(filename, []byte("revision: [1, 2]\n"), 0o644))

	_, err := NewConfig(filename)
	require.Error(t, err)
	assert.Contains(t, err.Error(), filename)
}

func parseConfigFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	addConfigFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestApplyFlags(t *testing.T) {
	config, err := NewConfig("")
	require.NoError(t, err)

	flags := parseConfigFlags(t, "--url", "http://svn.example.com/repos", "-r", "7", "-N", "--path", "/a/b/", "--no-text-deltas", "--timeout", "5s")
	require.NoError(t, config.applyFlags(flags))
	assert.Equal(t, &Config{
		URL:        "http://svn.example.com/repos",
		Revision:   7,
		Path:       "a/b",
		Recurse:    false,
		TextDeltas: false,
		Timeout:    5 * time.Second,
	}, config)
}

func TestApplyFlagsOnlyChanged(t *testing.T) {
	config := &Config{URL: "http://from/file", Revision: 3, Recurse: true}
	require.NoError(t, config.applyFlags(parseConfigFlags(t, "--dump", "other.dump")))
	assert.Equal(t, &Config{URL: "http://from/file", Dump: "other.dump", Revision: 3, Recurse: true}, config)
}

func TestApplyFlagsBadRevision(t *testing.T) {
	config := &Config{}
	assert.Error(t, config.applyFlags(parseConfigFlags(t, "--revision=-2")))
}
