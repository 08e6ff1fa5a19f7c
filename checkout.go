package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	svn "github.com/kfsone/svndelta/lib"
	"github.com/kfsone/svndelta/lib/dav"
	"github.com/kfsone/svndelta/lib/wc"
)

// Handle types of a checked working-copy editor.
type (
	wcDir  = *svn.CheckedDir[*wc.Dir]
	wcFile = *svn.CheckedFile[*wc.Dir, *wc.File]
)

func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout DEST",
		Short: "Check out a working copy from a server or a dump file",
		Long: `Check the directory at --url out of the server into a new working copy at
DEST, listing each directory and fetching every file whole.

With --dump, build the revision from the dump file(s) instead and check the
tree at --path out; --url is then only recorded as the working copy's
repository URL for later updates.

Examples:
  svndelta checkout --url http://svn/repos/trunk wc
  svndelta checkout -N -r 120 --url http://svn/repos/trunk wc
  svndelta checkout --dump project.dump --url http://svn/repos wc
  svndelta checkout --dump 'part-*.dump' -r 120 --path /trunk --url http://svn/repos/trunk wc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := newRunReport("checkout")
			report.Path = config.Path
			return writeReport(report, runCheckout(cmd.Context(), args[0], report))
		},
	}
}

func runCheckout(ctx context.Context, dest string, report *RunReport) error {
	url, err := requireURL()
	if err != nil {
		return err
	}

	if config.Dump == "" {
		return checkoutURL(ctx, dest, url, report)
	}

	repos, err := loadRepos()
	if err != nil {
		return err
	}
	defer repos.Close()
	return checkoutRevision(ctx, repos, dest, url, report)
}

// checkoutURL checks the configured revision of the directory at url out of
// the server into a new working copy at dest.
func checkoutURL(ctx context.Context, dest, url string, report *RunReport) error {
	w, err := wc.Create(dest, url)
	if err != nil {
		return fmt.Errorf("create working copy %s: %w", dest, err)
	}
	defer w.Close()

	out := newPrinter(report)
	editor := svn.NewChecked[*wc.Dir, *wc.File](w.NewEditor(out.notify))
	Info("Checking out %s into %s", url, dest)
	err = dav.Checkout[wcDir, wcFile](ctx, newSession(url), config.Revision, config.Recurse, editor)
	if err == nil {
		var top *wc.Entry
		if top, err = w.Entry(""); err == nil {
			report.Revision = top.Revision
		}
	}
	return out.finish(err, "Checked out revision %d.", report.Revision)
}

// checkoutRevision checks the configured revision of fs out into a new
// working copy at dest.
func checkoutRevision(ctx context.Context, fs svn.FS, dest, url string, report *RunReport) error {
	rev := config.Revision
	if !rev.Valid() {
		rev = fs.Youngest()
	}
	root, err := fs.RevisionRoot(rev)
	if err != nil {
		return err
	}
	report.Revision = rev

	w, err := wc.Create(dest, url)
	if err != nil {
		return fmt.Errorf("create working copy %s: %w", dest, err)
	}
	defer w.Close()

	out := newPrinter(report)
	editor := svn.NewChecked[*wc.Dir, *wc.File](w.NewEditor(out.notify))
	Info("Checking out /%s@%d into %s", config.Path, rev, dest)
	err = svn.Checkout[wcDir, wcFile](ctx, root, config.Path, url, config.Recurse, editor)
	return out.finish(err, "Checked out revision %d.", rev)
}
