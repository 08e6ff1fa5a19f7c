package main

// svndelta moves Subversion trees around as streams of edits.
//
// A working copy is checked out from an "svnadmin dump" of a repository by
// walking a revision of it, or brought up to date against a DAV server with
// an update REPORT: the working copy describes what it holds, the server
// answers with the edits needed to bring it to the requested revision, and
// the file contents are fetched as text deltas against what is already on
// disk.
//
// Use "svndelta.yml" to hold defaults for the flags.
//
//  # repository URL a working copy is checked out from or updated against
//  url: http://svn.example.com/repos/project
//
//  # dump file (or glob of dump files) to check out from
//  dump: project-*.dump
//
//  # revision to check out/update to; -1 means the youngest
//  revision: -1
//
//  # sub-tree of the repository to check out
//  path: /trunk
//
//  # request text deltas against the working copy's content
//  text-deltas: true
//
//  # http timeout
//  timeout: 30s

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	configFile string
	reportFile string
	quiet      bool
	verbose    bool

	config *Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "svndelta",
		Short:         "Check out and update Subversion working copies as tree deltas",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) (err error) {
			if quiet && verbose {
				return fmt.Errorf("--quiet and --verbose are mutually exclusive")
			}
			if config, err = NewConfig(configFile); err != nil {
				return err
			}
			return config.applyFlags(cmd.Flags())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", DefaultConfigFile, "path to config file")
	flags.StringVar(&reportFile, "report", "", "write a yaml summary of the run to this file")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	flags.BoolVar(&verbose, "verbose", false, "more output")
	addConfigFlags(flags)

	// glog registers -v, -logtostderr and friends on the standard flag set.
	flags.AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(newCheckoutCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newSwitchCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newCatCmd())
	rootCmd.AddCommand(newDumpInfoCmd())
	return rootCmd
}

func main() {
	// glog complains about logging before flag.Parse; cobra parses for it.
	_ = flag.CommandLine.Parse(nil)
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Errorf("error: %w", err).Error()))
		stop()
		glog.Flush()
		os.Exit(1)
	}
}

// Log prints a message if --verbose was specified.
func Log(format string, args ...any) {
	if verbose {
		fmt.Println(oneLine("-- " + fmt.Sprintf(format, args...)))
	}
	glog.V(1).Infof(format, args...)
}

// Info prints a message if --quiet was not specified.
func Info(format string, args ...any) {
	if !quiet {
		fmt.Println(oneLine("-- " + fmt.Sprintf(format, args...)))
	}
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", "<cr>")
	return strings.ReplaceAll(s, "\n", "<lf>")
}
