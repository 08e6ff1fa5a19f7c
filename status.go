package main

import (
	"context"

	"github.com/spf13/cobra"

	svn "github.com/kfsone/svndelta/lib"
	"github.com/kfsone/svndelta/lib/dav"
	"github.com/kfsone/svndelta/lib/wc"
)

// statusNode is the handle a statusEditor gives out for both directories and
// files.
type statusNode struct {
	path  string
	kind  svn.NodeKind
	added bool
	text  bool
	props bool
}

// statusEditor turns a status-only edit into change lines. Nothing is
// written to the working copy.
type statusEditor struct {
	svn.NopEditor[*statusNode, *statusNode]
	emit      func(change)
	targetRev svn.Revnum
}

func (e *statusEditor) SetTargetRevision(rev svn.Revnum) error {
	e.targetRev = rev
	return nil
}

func (e *statusEditor) OpenRoot(svn.Revnum) (*statusNode, error) {
	return &statusNode{kind: svn.NodeKindDir}, nil
}

func (e *statusEditor) DeleteEntry(name string, _ svn.Revnum, parent *statusNode) error {
	e.emit(change{Action: wc.ActionDelete, Path: svn.JoinPath(parent.path, name)})
	return nil
}

func (e *statusEditor) AddDirectory(name string, parent *statusNode, _ string, _ svn.Revnum) (*statusNode, error) {
	return &statusNode{path: svn.JoinPath(parent.path, name), kind: svn.NodeKindDir, added: true}, nil
}

func (e *statusEditor) OpenDirectory(name string, parent *statusNode, _ svn.Revnum) (*statusNode, error) {
	return &statusNode{path: svn.JoinPath(parent.path, name), kind: svn.NodeKindDir}, nil
}

func (e *statusEditor) ChangeDirProp(dir *statusNode, name string, _ *string) error {
	dir.props = dir.props || svn.GetPropKind(name) == svn.PropKindRegular
	return nil
}

func (e *statusEditor) CloseDirectory(dir *statusNode) error {
	e.close(dir)
	return nil
}

func (e *statusEditor) AddFile(name string, parent *statusNode, _ string, _ svn.Revnum) (*statusNode, error) {
	return &statusNode{path: svn.JoinPath(parent.path, name), kind: svn.NodeKindFile, added: true}, nil
}

func (e *statusEditor) OpenFile(name string, parent *statusNode, _ svn.Revnum) (*statusNode, error) {
	return &statusNode{path: svn.JoinPath(parent.path, name), kind: svn.NodeKindFile}, nil
}

func (e *statusEditor) ApplyTextDelta(file *statusNode) (svn.WindowHandler, error) {
	file.text = true
	return func(*svn.Window) error { return nil }, nil
}

func (e *statusEditor) ChangeFileProp(file *statusNode, name string, _ *string) error {
	file.props = file.props || svn.GetPropKind(name) == svn.PropKindRegular
	return nil
}

func (e *statusEditor) CloseFile(file *statusNode) error {
	e.close(file)
	return nil
}

func (e *statusEditor) close(n *statusNode) {
	c := change{Props: n.props, Kind: n.kind, Path: n.path}
	switch {
	case n.added:
		c.Action = wc.ActionAdd
	case n.text:
		c.Action = wc.ActionUpdate
	case !n.props || n.path == "":
		return
	}
	e.emit(c)
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status DEST",
		Short: "Show what an update of a working copy would change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report := newRunReport("status")
			return writeReport(report, runStatus(cmd.Context(), args[0], report))
		},
	}
}

func runStatus(ctx context.Context, dest string, report *RunReport) error {
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
	editor := &statusEditor{emit: out.Queue, targetRev: svn.InvalidRevnum}
	checked := svn.NewChecked[*statusNode, *statusNode](editor)
	reporter := dav.DoStatus[*svn.CheckedDir[*statusNode], *svn.CheckedFile[*statusNode, *statusNode]](newSession(url), "", config.Recurse, checked)

	if err := w.Crawl(reporter); err != nil {
		_ = reporter.AbortReport()
		return out.finish(err, "")
	}
	err = reporter.FinishReport(ctx)
	report.Revision = editor.targetRev
	return out.finish(err, "Status against revision %d.", editor.targetRev)
}
