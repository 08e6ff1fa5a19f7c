package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	svn "github.com/kfsone/svndelta/lib"
	"github.com/kfsone/svndelta/lib/wc"
)

var (
	addStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	updateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	deleteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	propStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	summaryStyle = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// change is one line of output: what happened, or would happen, to a path.
type change struct {
	Action wc.Action
	Props  bool
	Kind   svn.NodeKind
	Path   string
}

func (c change) String() string {
	text := " "
	switch c.Action {
	case wc.ActionAdd:
		text = addStyle.Render(string(c.Action))
	case wc.ActionUpdate:
		text = updateStyle.Render(string(c.Action))
	case wc.ActionDelete:
		text = deleteStyle.Render(string(c.Action))
	}
	props := " "
	if c.Props {
		props = propStyle.Render("M")
	}
	path := c.Path
	if c.Kind == svn.NodeKindDir {
		path += "/"
	}
	return fmt.Sprintf("%s%s   %s", text, props, path)
}

// printer writes changes to stdout from its own goroutine so an edit is never
// held up by the terminal, and tallies them into the run report.
type printer struct {
	*Helper[change, *RunReport]
	report *RunReport
}

func newPrinter(report *RunReport) *printer {
	return &printer{
		Helper: NewHelper(64, printChange, report),
		report: report,
	}
}

func printChange(c change, report *RunReport) {
	report.record(c)
	if !quiet {
		fmt.Println(c)
	}
}

// notify adapts working-copy notifications.
func (p *printer) notify(n wc.Notification) {
	p.Queue(change{Action: n.Action, Kind: n.Kind, Path: n.Path})
}

// finish drains the queue and, if the run succeeded, prints the closing
// line. It returns err.
func (p *printer) finish(err error, format string, args ...any) error {
	p.CloseWait()
	if err == nil && !quiet {
		fmt.Println(summaryStyle.Render(fmt.Sprintf(format, args...)))
	}
	return err
}
