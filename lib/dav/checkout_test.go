package dav

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svn "github.com/kfsone/svndelta/lib"
	"github.com/kfsone/svndelta/lib/edittest"
)

const (
	vccURL      = host + "/repos/vcc/default"
	bc7         = host + "/repos/bc/7/trunk"
	bc5         = host + "/repos/bc/5/trunk"
	bcReadme    = bc7 + "/README"
	bcDocs      = bc7 + "/docs"
	bcSrc       = bc7 + "/src"
	bcMain      = bcSrc + "/main.c"
	readmeVsnID = "/repos/ver/3/trunk/README"
)

// baselineTransport publishes testRoot with youngest revision 7, and a
// labelled baseline for r5.
func baselineTransport() *memTransport {
	m := newMemTransport()
	m.resources[testRoot] = &Resource{URL: "/repos/trunk", IsCollection: true, Props: map[string]string{
		svn.DAVPropVersionControlledConfiguration: "/repos/vcc/default",
		svn.PropBaselineRelativePath:              "trunk",
	}}
	m.resources[vccURL] = &Resource{URL: "/repos/vcc/default", Props: map[string]string{
		svn.DAVPropCheckedIn: "/repos/bln/7",
	}}
	m.resources[host+"/repos/bln/7"] = &Resource{URL: "/repos/bln/7", Props: map[string]string{
		svn.DAVPropVersionName:        "7",
		svn.DAVPropBaselineCollection: "/repos/bc/7/",
	}}
	m.labels[vccURL+"@5"] = &Resource{URL: "/repos/bln/5", Props: map[string]string{
		svn.DAVPropVersionName:        "5",
		svn.DAVPropBaselineCollection: "/repos/bc/5/",
	}}
	return m
}

// checkoutTransport adds the r7 tree:
//
//	README
//	docs/
//	src/main.c
func checkoutTransport() *memTransport {
	m := baselineTransport()
	m.resources[bc7] = &Resource{URL: "/repos/bc/7/trunk/", IsCollection: true, Props: map[string]string{
		svn.DAVPropCheckedIn:   "/repos/ver/7/trunk",
		svn.DAVPropVersionName: "7",
		"svn:custom:owner":     "ops",
	}}
	m.resources[bcReadme] = &Resource{URL: "/repos/bc/7/trunk/README", Props: map[string]string{
		svn.DAVPropCheckedIn:          readmeVsnID,
		svn.DAVPropVersionName:        "3",
		svn.DAVPropCreatorDisplayName: "alice",
	}}
	m.resources[bcDocs] = &Resource{URL: "/repos/bc/7/trunk/docs", IsCollection: true, Props: map[string]string{
		svn.DAVPropCheckedIn: "/repos/ver/4/trunk/docs",
	}}
	m.resources[bcSrc] = &Resource{URL: "/repos/bc/7/trunk/src", IsCollection: true, Props: map[string]string{
		svn.DAVPropCheckedIn: "/repos/ver/6/trunk/src",
		"svn:ignore":         "*.o",
	}}
	m.resources[bcMain] = &Resource{URL: "/repos/bc/7/trunk/src/main.c", Props: map[string]string{
		svn.DAVPropCheckedIn: "/repos/ver/6/trunk/src/main.c",
		"svn:eol-style":      "native",
	}}
	// Listed out of order; the driver sorts.
	m.listings[bc7] = []string{bcSrc, bcReadme, bcDocs}
	m.listings[bcSrc] = []string{bcMain}

	m.files[bcReadme] = memFile{contentType: "text/plain", body: []byte("read me\n")}
	m.files[bcMain] = memFile{contentType: "text/plain", body: []byte("int main;\n")}
	return m
}

func TestGetBaseline(t *testing.T) {
	m := baselineTransport()
	s := NewSession(m, testRoot)

	baseline, err := s.GetBaseline(context.Background(), svn.InvalidRevnum)
	require.NoError(t, err)
	assert.Equal(t, &Baseline{Revision: 7, Root: bc7}, baseline)

	baseline, err = s.GetBaseline(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, &Baseline{Revision: 5, Root: bc5}, baseline)

	rev, err := s.LatestRevnum(context.Background())
	require.NoError(t, err)
	assert.Equal(t, svn.Revnum(7), rev)

	assert.Equal(t, []string{
		testRoot, vccURL, host + "/repos/bln/7",
		testRoot, vccURL + "@5",
		testRoot, vccURL, host + "/repos/bln/7",
	}, m.propfinds)
}

func TestGetBaselineErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *memTransport)
		rev   svn.Revnum
		err   error
	}{
		{"not a directory", func(m *memTransport) { m.resources[testRoot].IsCollection = false }, svn.InvalidRevnum, svn.ErrNotDirectory},
		{"no configuration", func(m *memTransport) {
			delete(m.resources[testRoot].Props, svn.DAVPropVersionControlledConfiguration)
		}, svn.InvalidRevnum, ErrMalformedResponse},
		{"no baseline", func(m *memTransport) { delete(m.resources[vccURL].Props, svn.DAVPropCheckedIn) }, svn.InvalidRevnum, ErrMalformedResponse},
		{"unknown revision", func(*memTransport) {}, 9, ErrRequestFailed},
		{"bad version name", func(m *memTransport) {
			m.resources[host+"/repos/bln/7"].Props[svn.DAVPropVersionName] = "seven"
		}, svn.InvalidRevnum, ErrMalformedResponse},
		{"wrong revision", func(m *memTransport) { m.labels[vccURL+"@5"].Props[svn.DAVPropVersionName] = "4" }, 5, ErrMalformedResponse},
		{"no collection", func(m *memTransport) {
			delete(m.resources[host+"/repos/bln/7"].Props, svn.DAVPropBaselineCollection)
		}, svn.InvalidRevnum, ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := baselineTransport()
			tt.setup(m)
			_, err := NewSession(m, testRoot).GetBaseline(context.Background(), tt.rev)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func checkout(t *testing.T, m *memTransport, rev svn.Revnum, recurse bool) (*edittest.Recorder, error) {
	t.Helper()
	rec := edittest.New()
	err := Checkout[*edittest.Node, *edittest.Node](context.Background(), NewSession(m, testRoot), rev, recurse, rec)
	return rec, err
}

func TestCheckout(t *testing.T) {
	m := checkoutTransport()
	rec, err := checkout(t, m, svn.InvalidRevnum, true)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"target 7",
		"open-root",
		"dir-prop  svn:entry:committed-rev=7",
		"dir-prop  owner=ops",
		"dir-prop  svn:wc:ra_dav:version-url=/repos/ver/7/trunk",
		"add-file README",
		"text README",
		"file-prop README svn:entry:last-author=alice",
		"file-prop README svn:entry:committed-rev=3",
		"file-prop README svn:wc:ra_dav:version-url=" + readmeVsnID,
		"close-file README",
		"add-dir docs",
		"dir-prop docs svn:wc:ra_dav:version-url=/repos/ver/4/trunk/docs",
		"close-dir docs",
		"add-dir src",
		"dir-prop src svn:ignore=*.o",
		"dir-prop src svn:wc:ra_dav:version-url=/repos/ver/6/trunk/src",
		"add-file src/main.c",
		"text src/main.c",
		"file-prop src/main.c svn:eol-style=native",
		"file-prop src/main.c svn:wc:ra_dav:version-url=/repos/ver/6/trunk/src/main.c",
		"close-file src/main.c",
		"close-dir src",
		"close-dir ",
		"close-edit",
	}, rec.Calls)

	assert.Equal(t, "read me\n", string(rec.Contents["README"]))
	assert.Equal(t, "int main;\n", string(rec.Contents["src/main.c"]))
	assert.Equal(t, []string{bc7, bcDocs, bcSrc}, m.lists)
	// Whole files only.
	for _, get := range m.gets {
		assert.Empty(t, get.base, get.url)
	}
}

func TestCheckoutNonRecursive(t *testing.T) {
	m := checkoutTransport()
	rec, err := checkout(t, m, svn.InvalidRevnum, false)
	require.NoError(t, err)

	assert.Empty(t, rec.Filter("add-dir"))
	assert.Equal(t, []string{"add-file README"}, rec.Filter("add-file"))
	assert.Equal(t, []string{"close-dir ", "close-edit"}, rec.Calls[len(rec.Calls)-2:])
	assert.Equal(t, []string{bc7}, m.lists)
}

func TestCheckoutRevision(t *testing.T) {
	m := checkoutTransport()
	m.resources[bc5] = &Resource{URL: "/repos/bc/5/trunk", IsCollection: true, Props: map[string]string{}}

	rec, err := checkout(t, m, 5, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"target 5", "open-root", "close-dir ", "close-edit"}, rec.Calls)
	assert.Equal(t, []string{bc5}, m.lists)
}

func TestCheckoutFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *memTransport)
		err   error
		last  string
	}{
		{"missing file", func(m *memTransport) { delete(m.files, bcMain) }, ErrRequestFailed, "text src/main.c"},
		{"foreign member", func(m *memTransport) {
			m.resources[host+"/elsewhere"] = &Resource{URL: "/elsewhere"}
			m.listings[bcSrc] = append(m.listings[bcSrc], host+"/elsewhere")
		}, ErrMalformedResponse, "add-dir src"},
		{"nested member", func(m *memTransport) {
			m.resources[bcSrc+"/deep/x.c"] = &Resource{URL: "/repos/bc/7/trunk/src/deep/x.c"}
			m.listings[bcSrc] = []string{bcSrc + "/deep/x.c"}
		}, ErrMalformedResponse, "add-dir src"},
		{"no baseline", func(m *memTransport) { delete(m.resources, vccURL) }, ErrRequestFailed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := checkoutTransport()
			tt.setup(m)
			rec, err := checkout(t, m, svn.InvalidRevnum, true)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, "abort-edit", rec.Calls[len(rec.Calls)-1])
			assert.Empty(t, rec.Filter("close-edit"))
			if tt.last != "" {
				require.GreaterOrEqual(t, len(rec.Calls), 2)
				assert.Equal(t, tt.last, rec.Calls[len(rec.Calls)-2])
			}
		})
	}
}

func TestSplitListing(t *testing.T) {
	s := NewSession(newMemTransport(), testRoot)
	self, members, err := s.splitListing(bcSrc, []*Resource{
		{URL: "/repos/bc/7/trunk/src/zz%20top.c"},
		{URL: "/repos/bc/7/trunk/src/"},
		{URL: host + "/repos/bc/7/trunk/src/lib", IsCollection: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "/repos/bc/7/trunk/src/", self.URL)
	require.Len(t, members, 2)
	assert.Equal(t, "lib", members[0].name)
	assert.Equal(t, bcSrc+"/lib", members[0].url)
	assert.Equal(t, "zz top.c", members[1].name)
	assert.Equal(t, bcSrc+"/zz%20top.c", members[1].url)

	_, _, err = s.splitListing(bcSrc, []*Resource{{URL: "/repos/bc/7/trunk/src/a.c"}})
	assert.ErrorIs(t, err, ErrMalformedResponse, "listing without the directory itself")
	_, _, err = s.splitListing(bcSrc, []*Resource{{URL: "/repos/bc/7/trunk/src"}, {URL: "/repos/bc/7/trunk/src/.."}})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCheckoutEditorFailure(t *testing.T) {
	rec := edittest.New()
	rec.FailOn = "add-dir src"
	err := Checkout[*edittest.Node, *edittest.Node](context.Background(), NewSession(checkoutTransport(), testRoot), svn.InvalidRevnum, true, rec)
	assert.ErrorIs(t, err, edittest.ErrInjected)
	assert.Equal(t, []string{"add-dir src", "abort-edit"}, rec.Calls[len(rec.Calls)-2:])
}

func TestCheckoutCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := edittest.New()
	err := Checkout[*edittest.Node, *edittest.Node](ctx, NewSession(checkoutTransport(), testRoot), svn.InvalidRevnum, true, rec)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "abort-edit", rec.Calls[len(rec.Calls)-1])
}
