package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	yml "gopkg.in/yaml.v3"

	svn "github.com/kfsone/svndelta/lib"
)

// DefaultConfigFile is read from the current directory unless --config says
// otherwise.
const DefaultConfigFile = "svndelta.yml"

// Config captures the yaml description of what to check out from where, and
// how. Flags given on the command line win over the file.
type Config struct {
	Filename   string        `yaml:"-"`
	URL        string        `yaml:"url,omitempty"`
	Dump       string        `yaml:"dump,omitempty"`
	Revision   svn.Revnum    `yaml:"revision"`
	Path       string        `yaml:"path,omitempty"`
	Recurse    bool          `yaml:"recurse"`
	TextDeltas bool          `yaml:"text-deltas"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// NewConfig returns a Config populated from the yaml definition in a given
// file. A file that does not exist leaves the defaults.
func NewConfig(filename string) (*Config, error) {
	config := &Config{
		Filename:   filename,
		Revision:   svn.InvalidRevnum,
		Recurse:    true,
		TextDeltas: true,
		Timeout:    time.Minute,
	}

	// Only try and load the file if it has a name.
	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("%s: %w", filename, err)
			}
		}
	}

	config.Filename = filename
	config.Path = svn.CleanPath(config.Path)

	return config, nil
}

// Flags shadowing the config file; only those actually given are applied.
var (
	urlFlag      string
	dumpFlag     string
	revisionFlag int64
	pathFlag     string
	nonRecursive bool
	noTextDeltas bool
	timeoutFlag  time.Duration
)

func addConfigFlags(flags *pflag.FlagSet) {
	flags.StringVar(&urlFlag, "url", "", "repository URL")
	flags.StringVar(&dumpFlag, "dump", "", "dump file or glob of dump files")
	flags.Int64VarP(&revisionFlag, "revision", "r", -1, "revision to check out or update to, -1 for the youngest")
	flags.StringVar(&pathFlag, "path", "", "repository path to check out")
	flags.BoolVarP(&nonRecursive, "non-recursive", "N", false, "only the top directory and its files")
	flags.BoolVar(&noTextDeltas, "no-text-deltas", false, "fetch whole files instead of deltas against the working copy")
	flags.DurationVar(&timeoutFlag, "timeout", 0, "http timeout")
}

func (c *Config) applyFlags(flags *pflag.FlagSet) error {
	if flags.Changed("url") {
		c.URL = urlFlag
	}
	if flags.Changed("dump") {
		c.Dump = dumpFlag
	}
	if flags.Changed("revision") {
		if revisionFlag < int64(svn.InvalidRevnum) {
			return fmt.Errorf("invalid --revision %d", revisionFlag)
		}
		c.Revision = svn.Revnum(revisionFlag)
	}
	if flags.Changed("path") {
		c.Path = svn.CleanPath(pathFlag)
	}
	if flags.Changed("non-recursive") {
		c.Recurse = !nonRecursive
	}
	if flags.Changed("no-text-deltas") {
		c.TextDeltas = !noTextDeltas
	}
	if flags.Changed("timeout") {
		c.Timeout = timeoutFlag
	}
	return nil
}
