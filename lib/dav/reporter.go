package dav

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"

	"github.com/golang/glog"

	svn "github.com/kfsone/svndelta/lib"
)

const (
	reportHead = `<S:update-report xmlns:S="` + SVNNamespace + `">` + "\n"
	reportTail = `</S:update-report>` + "\n"
)

// Reporter collects what a working copy holds and, on FinishReport, sends
// it to the server and drives the editor with the server's answer.
type Reporter[D, F any] struct {
	session      *Session
	editor       svn.Editor[D, F]
	fetchContent bool

	body   bytes.Buffer
	closed bool
}

// DoUpdate starts a report for updating the working copy to rev, or to the
// youngest revision if rev is invalid. target, if not empty, limits the
// update to one entry of the session root.
func DoUpdate[D, F any](s *Session, rev svn.Revnum, target string, recurse bool, editor svn.Editor[D, F]) *Reporter[D, F] {
	return newReporter(s, rev, target, "", recurse, true, editor)
}

// DoStatus starts a report that only describes what an update would change.
// No content or properties are fetched.
func DoStatus[D, F any](s *Session, target string, recurse bool, editor svn.Editor[D, F]) *Reporter[D, F] {
	return newReporter(s, svn.InvalidRevnum, target, "", recurse, false, editor)
}

// DoSwitch starts a report that moves the working copy onto switchURL at rev.
func DoSwitch[D, F any](s *Session, rev svn.Revnum, target string, recurse bool, switchURL string, editor svn.Editor[D, F]) *Reporter[D, F] {
	return newReporter(s, rev, target, switchURL, recurse, true, editor)
}

func newReporter[D, F any](s *Session, rev svn.Revnum, target, dstPath string, recurse, fetchContent bool, editor svn.Editor[D, F]) *Reporter[D, F] {
	r := &Reporter[D, F]{session: s, editor: editor, fetchContent: fetchContent}
	r.body.WriteString(reportHead)

	// An invalid revision means "latest", which is what no revision asks for.
	if rev.Valid() {
		r.element("target-revision", "", rev.String())
	}
	if target != "" {
		r.element("update-target", "", target)
	}
	if dstPath != "" {
		r.element("dst-path", "", dstPath)
	}
	if !recurse {
		r.element("recursive", "", "no")
	}
	return r
}

func (r *Reporter[D, F]) element(name, attrs, text string) {
	r.body.WriteString("<S:" + name + attrs + ">")
	_ = xml.EscapeText(&r.body, []byte(text))
	r.body.WriteString("</S:" + name + ">\n")
}

// SetPath records that the working copy holds path at rev.
func (r *Reporter[D, F]) SetPath(path string, rev svn.Revnum) error {
	if r.closed {
		return ErrReportClosed
	}
	r.element("entry", fmt.Sprintf(` rev="%d"`, rev), path)
	return nil
}

// DeletePath records that path is missing from the working copy.
func (r *Reporter[D, F]) DeletePath(path string) error {
	if r.closed {
		return ErrReportClosed
	}
	r.element("missing", "", path)
	return nil
}

// Body returns the request body as it stands.
func (r *Reporter[D, F]) Body() []byte {
	return r.body.Bytes()
}

// FinishReport sends the report and drives the editor with the response. A
// failed request aborts the edit like any other failure.
func (r *Reporter[D, F]) FinishReport(ctx context.Context) error {
	if r.closed {
		return ErrReportClosed
	}
	r.closed = true
	r.body.WriteString(reportTail)

	glog.V(svn.LogLevelSession).Infof("[report]REPORT %s (%d bytes)\n", r.session.URL, r.body.Len())
	response, err := r.session.Transport.Report(ctx, r.session.URL, bytes.NewReader(r.body.Bytes()))
	if err != nil {
		if abortErr := r.editor.AbortEdit(); abortErr != nil {
			glog.Warningf("[report]abort failed: %v\n", abortErr)
		}
		return err
	}
	defer response.Close()

	return DriveReport(ctx, r.session, response, r.fetchContent, r.editor)
}

// AbortReport discards the report without contacting the server.
func (r *Reporter[D, F]) AbortReport() error {
	if r.closed {
		return ErrReportClosed
	}
	r.closed = true
	r.body.Reset()
	return nil
}
