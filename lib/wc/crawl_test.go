package wc

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svn "github.com/kfsone/svndelta/lib"
)

type reportLog []string

func (r *reportLog) SetPath(path string, rev svn.Revnum) error {
	*r = append(*r, fmt.Sprintf("set /%s@%d", path, rev))
	return nil
}

func (r *reportLog) DeletePath(path string) error {
	*r = append(*r, "missing /"+path)
	return nil
}

func TestCrawlUniform(t *testing.T) {
	w := newWC(t)
	checkoutSample(t, w)

	var log reportLog
	require.NoError(t, w.Crawl(&log))
	assert.Equal(t, reportLog{"set /@1"}, log)
}

func TestCrawlMixedRevisions(t *testing.T) {
	w := newWC(t)
	checkoutSample(t, w)

	// Update only README, leaving src behind at r1.
	edit(t, w, 2, func(e *Editor, root *Dir) {
		file, err := e.OpenFile("README", root, 1)
		require.NoError(t, err)
		require.NoError(t, e.CloseFile(file))
	})

	var log reportLog
	require.NoError(t, w.Crawl(&log))
	assert.Equal(t, reportLog{"set /@2", "set /src@1"}, log)
}

func TestCrawlMissing(t *testing.T) {
	w := newWC(t)
	checkoutSample(t, w)
	require.NoError(t, os.Remove(abs(t, w, "README")))
	require.NoError(t, os.RemoveAll(abs(t, w, "src")))

	var log reportLog
	require.NoError(t, w.Crawl(&log))
	assert.Equal(t, reportLog{"set /@1", "missing /README", "missing /src"}, log)
}

func TestCrawlReporterFailure(t *testing.T) {
	w := newWC(t)
	checkoutSample(t, w)
	assert.ErrorIs(t, w.Crawl(failingReporter{}), os.ErrClosed)
}

type failingReporter struct{}

func (failingReporter) SetPath(string, svn.Revnum) error { return os.ErrClosed }
func (failingReporter) DeletePath(string) error          { return os.ErrClosed }
