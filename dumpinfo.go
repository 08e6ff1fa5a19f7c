package main

import (
	"fmt"

	"github.com/spf13/cobra"

	svn "github.com/kfsone/svndelta/lib"
)

func newDumpInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump-info [FILE...]",
		Short: "Summarize dump files",
		Long: `Parse the dump files, --dump if none are given, and list what they hold.
Use --report to write the summary, with every revision, as yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := newRunReport("dump-info")
			return writeReport(report, runDumpInfo(args, report))
		},
	}
}

func runDumpInfo(filenames []string, report *RunReport) (err error) {
	if len(filenames) == 0 {
		if filenames, err = dumpFilenames(config.Dump); err != nil {
			return err
		}
	}

	for _, filename := range filenames {
		Log("Loading dump file: %s", filename)
		dumpfile, err := svn.NewDumpFile(filename)
		if err != nil {
			return err
		}
		err = dumpfile.LoadRevisions()
		if err == nil {
			report.Dumps = append(report.Dumps, summarizeDump(dumpfile, report))
		}
		dumpfile.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func summarizeDump(dumpfile *svn.DumpFile, report *RunReport) DumpSummary {
	summary := DumpSummary{
		Path:      dumpfile.Path,
		Format:    dumpfile.DumpHeader.Format,
		UUID:      dumpfile.DumpHeader.ReposUUID,
		First:     svn.InvalidRevnum,
		Last:      dumpfile.GetHead(),
		Revisions: len(dumpfile.Revisions),
	}
	nodes := 0
	for _, rev := range dumpfile.Revisions {
		if !summary.First.Valid() {
			summary.First = rev.Number
		}
		nodes += len(rev.Nodes)
		report.Revisions = append(report.Revisions, RevisionSummary{
			Number: rev.Number,
			Author: rev.Author(),
			Date:   rev.Date(),
			Nodes:  len(rev.Nodes),
			Bytes:  rev.Size(),
		})
		Log("r%d %s %s: %d nodes", rev.Number, rev.Author(), rev.Date(), len(rev.Nodes))
	}

	if !quiet {
		fmt.Println(summaryStyle.Render(dumpfile.Path))
		fmt.Printf("  format %d, uuid %s\n", summary.Format, summary.UUID)
		fmt.Printf("  r%d:r%d, %d revisions, %d nodes\n", summary.First, summary.Last, summary.Revisions, nodes)
	}
	return summary
}
