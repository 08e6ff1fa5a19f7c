package dav

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kfsone/svndelta/lib/edittest"
)

const emptyReport = `<S:update-report xmlns:S="svn:"><S:target-revision rev="5"/><S:open-directory rev="4"></S:open-directory></S:update-report>`

func TestReporterUpdateBody(t *testing.T) {
	m := newMemTransport()
	m.report = emptyReport
	rec := edittest.New()

	r := DoUpdate[*edittest.Node, *edittest.Node](NewSession(m, testRoot), 5, "", true, rec)
	require.NoError(t, r.SetPath("", 4))
	require.NoError(t, r.DeletePath("gone.txt"))
	require.NoError(t, r.SetPath("a<b.txt", 3))
	require.NoError(t, r.FinishReport(context.Background()))

	assert.Equal(t, `<S:update-report xmlns:S="svn:">
<S:target-revision>5</S:target-revision>
<S:entry rev="4"></S:entry>
<S:missing>gone.txt</S:missing>
<S:entry rev="3">a&lt;b.txt</S:entry>
</S:update-report>
`, string(m.reported))
	assert.Equal(t, []string{"target 5", "open-root", "close-dir ", "close-edit"}, rec.Calls)
}

func TestReporterOptions(t *testing.T) {
	s := NewSession(newMemTransport(), testRoot)
	rec := edittest.New()

	sw := DoSwitch[*edittest.Node, *edittest.Node](s, 7, "sub", false, "http://svn.example.com/repos/branches/b1", rec)
	assert.Equal(t, `<S:update-report xmlns:S="svn:">
<S:target-revision>7</S:target-revision>
<S:update-target>sub</S:update-target>
<S:dst-path>http://svn.example.com/repos/branches/b1</S:dst-path>
<S:recursive>no</S:recursive>
`, string(sw.Body()))

	// Status asks about the youngest revision.
	st := DoStatus[*edittest.Node, *edittest.Node](s, "", true, rec)
	assert.Equal(t, reportHead, string(st.Body()))
}

func TestReporterClosed(t *testing.T) {
	m := newMemTransport()
	m.report = emptyReport
	rec := edittest.New()

	r := DoUpdate[*edittest.Node, *edittest.Node](NewSession(m, testRoot), 5, "", true, rec)
	require.NoError(t, r.FinishReport(context.Background()))
	assert.ErrorIs(t, r.SetPath("", 1), ErrReportClosed)
	assert.ErrorIs(t, r.DeletePath("x"), ErrReportClosed)
	assert.ErrorIs(t, r.FinishReport(context.Background()), ErrReportClosed)
	assert.ErrorIs(t, r.AbortReport(), ErrReportClosed)

	aborted := DoUpdate[*edittest.Node, *edittest.Node](NewSession(m, testRoot), 5, "", true, rec)
	require.NoError(t, aborted.AbortReport())
	assert.Empty(t, aborted.Body())
	assert.ErrorIs(t, aborted.FinishReport(context.Background()), ErrReportClosed)
}

func TestReporterRequestFailure(t *testing.T) {
	m := newMemTransport()
	m.reportErr = errors.New("connection refused")
	rec := edittest.New()

	r := DoUpdate[*edittest.Node, *edittest.Node](NewSession(m, testRoot), 5, "", true, rec)
	require.NoError(t, r.SetPath("", 4))
	err := r.FinishReport(context.Background())
	assert.ErrorIs(t, err, m.reportErr)
	assert.Equal(t, []string{"abort-edit"}, rec.Calls)
}
