package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	svn "github.com/kfsone/svndelta/lib"
	"github.com/kfsone/svndelta/lib/dav"
	"github.com/kfsone/svndelta/lib/wc"
)

func newSession(url string) *dav.Session {
	transport := dav.NewHTTPTransport(&http.Client{Timeout: config.Timeout})
	transport.UserAgent = "svndelta"
	return dav.NewSession(transport, url)
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update DEST",
		Short: "Bring a working copy up to date with its repository",
		Long: `Describe the working copy at DEST to the server it was checked out from,
or --url, and apply the changes needed to bring it to --revision.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := newRunReport("update")
			return writeReport(report, runUpdate(cmd.Context(), args[0], "", report))
		},
	}
}

func newSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch URL DEST",
		Short: "Move a working copy onto another repository URL",
		Long: `Update the working copy at DEST so it mirrors URL instead of the URL it
was checked out from, then record URL as its repository URL.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := newRunReport("switch")
			report.URL = args[0]
			return writeReport(report, runUpdate(cmd.Context(), args[1], args[0], report))
		},
	}
}

// runUpdate updates the working copy at dest, onto switchURL if that is not
// empty.
func runUpdate(ctx context.Context, dest, switchURL string, report *RunReport) error {
	w, err := wc.Open(dest)
	if err != nil {
		return err
	}
	defer w.Close()

	top, err := w.Entry("")
	if err != nil {
		return err
	}
	url := top.URL
	if config.URL != "" {
		url = config.URL
	}

	out := newPrinter(report)
	editor := w.NewEditor(out.notify)
	session := newSession(url)
	if config.TextDeltas {
		session.BaseURL = editor.BaseURL
	}
	checked := svn.NewChecked[*wc.Dir, *wc.File](editor)

	var reporter *dav.Reporter[wcDir, wcFile]
	if switchURL == "" {
		Info("Updating %s from %s", dest, url)
		reporter = dav.DoUpdate[wcDir, wcFile](session, config.Revision, "", config.Recurse, checked)
	} else {
		Info("Switching %s from %s to %s", dest, url, switchURL)
		reporter = dav.DoSwitch[wcDir, wcFile](session, config.Revision, "", config.Recurse, switchURL, checked)
	}

	if err := w.Crawl(reporter); err != nil {
		_ = reporter.AbortReport()
		return out.finish(err, "")
	}
	err = reporter.FinishReport(ctx)
	if err == nil && switchURL != "" {
		err = w.Relocate(url, switchURL)
	}
	if err == nil {
		if top, err = w.Entry(""); err == nil {
			report.Revision = top.Revision
		}
	}
	return out.finish(err, "At revision %d.", report.Revision)
}
